// Package fbdev speaks the Linux framebuffer device ABI: screen info
// queries, panning, mode activation, memory mapping, and the Qualcomm
// MSM/MDP display commit that actually pushes pixels to the panel.
//
// Struct layouts mirror linux/fb.h and must not be reordered.
package fbdev

import "unsafe"

// Request codes from linux/fb.h.
const (
	FBIOGET_VSCREENINFO uintptr = 0x4600
	FBIOPUT_VSCREENINFO uintptr = 0x4601
	FBIOGET_FSCREENINFO uintptr = 0x4602
	FBIOPAN_DISPLAY     uintptr = 0x4606
)

const (
	FB_TYPE_PACKED_PIXELS uint32 = 0
	FB_VISUAL_TRUECOLOR   uint32 = 2
)

// Values for VarScreenInfo.Activate.
const (
	FB_ACTIVATE_NOW   uint32 = 0
	FB_ACTIVATE_ALL   uint32 = 64
	FB_ACTIVATE_FORCE uint32 = 128
)

// FixScreenInfo is struct fb_fix_screeninfo.
// SmemStart/MmioStart are unsigned long in the kernel, hence uintptr.
type FixScreenInfo struct {
	ID           [16]byte
	SmemStart    uintptr
	SmemLen      uint32
	Type         uint32
	TypeAux      uint32
	Visual       uint32
	Xpanstep     uint16
	Ypanstep     uint16
	Ywrapstep    uint16
	LineLength   uint32
	MmioStart    uintptr
	MmioLen      uint32
	Accel        uint32
	Capabilities uint16
	Reserved     [2]uint16
}

// BitField is struct fb_bitfield.
type BitField struct {
	Offset   uint32
	Length   uint32
	MsbRight uint32
}

// VarScreenInfo is struct fb_var_screeninfo, 160 bytes on every arch.
type VarScreenInfo struct {
	Xres         uint32
	Yres         uint32
	XresVirtual  uint32
	YresVirtual  uint32
	Xoffset      uint32
	Yoffset      uint32
	BitsPerPixel uint32
	Grayscale    uint32
	Red          BitField
	Green        BitField
	Blue         BitField
	Transp       BitField
	Nonstd       uint32
	Activate     uint32
	Height       uint32
	Width        uint32
	AccelFlags   uint32
	Pixclock     uint32
	LeftMargin   uint32
	RightMargin  uint32
	UpperMargin  uint32
	LowerMargin  uint32
	HsyncLen     uint32
	VsyncLen     uint32
	Sync         uint32
	Vmode        uint32
	Rotate       uint32
	Colorspace   uint32
	Reserved     [4]uint32
}

// MdpRect is struct mdp_rect from the MSM video vendor headers.
type MdpRect struct {
	X uint32
	Y uint32
	W uint32
	H uint32
}

// MdpDisplayCommit is struct mdp_display_commit. MDP panels hold frames in
// an internal pipeline; neither writing the mapped memory nor panning shows
// anything until this commit kicks the panel.
type MdpDisplayCommit struct {
	Flags         uint32
	WaitForFinish uint32
	Var           VarScreenInfo
	ROI           MdpRect
}

const MDP_DISPLAY_COMMIT_OVERLAY uint32 = 1

// asm-generic ioctl encoding.
const (
	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
)

// MSMFB_DISPLAY_COMMIT is _IOW('m', 164, struct mdp_display_commit).
const MSMFB_DISPLAY_COMMIT uintptr = iocWrite<<iocDirShift |
	unsafe.Sizeof(MdpDisplayCommit{})<<iocSizeShift |
	'm'<<iocTypeShift |
	164<<iocNrShift
