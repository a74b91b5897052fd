package fbdev

import (
	"os"
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/unix"
)

// Conn is what a framebuffer device offers to drivers. *Device talks to the
// kernel, Mock stands in for tests.
type Conn interface {
	Name() string
	Fix() FixScreenInfo
	Var() VarScreenInfo
	PutVar(v *VarScreenInfo) error
	Pan(v *VarScreenInfo) error
	Map(length int) ([]byte, error)
	Unmap() error
	Commit(c *MdpDisplayCommit) error
	Close() error
}

var _ Conn = new(Device) // compile-time interface check

type Device struct {
	path string
	fd   int
	fix  FixScreenInfo
	vs   VarScreenInfo
	mem  []byte
}

// Open opens the device and reads both screen info blocks. Callers get the
// at-open snapshots via Fix/Var and keep their own working copy of var info.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Annotatef(err, "fbdev open %s", path)
	}
	self := &Device{path: path, fd: fd}
	if err = ioctl(uintptr(fd), FBIOGET_FSCREENINFO, uintptr(unsafe.Pointer(&self.fix))); err != nil {
		unix.Close(fd)
		return nil, errors.Annotatef(err, "fbdev %s FBIOGET_FSCREENINFO", path)
	}
	if err = ioctl(uintptr(fd), FBIOGET_VSCREENINFO, uintptr(unsafe.Pointer(&self.vs))); err != nil {
		unix.Close(fd)
		return nil, errors.Annotatef(err, "fbdev %s FBIOGET_VSCREENINFO", path)
	}
	return self, nil
}

func (self *Device) Name() string       { return self.path }
func (self *Device) Fix() FixScreenInfo { return self.fix }
func (self *Device) Var() VarScreenInfo { return self.vs }

func (self *Device) PutVar(v *VarScreenInfo) error {
	err := ioctl(uintptr(self.fd), FBIOPUT_VSCREENINFO, uintptr(unsafe.Pointer(v)))
	return errors.Annotatef(err, "fbdev %s FBIOPUT_VSCREENINFO", self.path)
}

func (self *Device) Pan(v *VarScreenInfo) error {
	err := ioctl(uintptr(self.fd), FBIOPAN_DISPLAY, uintptr(unsafe.Pointer(v)))
	return errors.Annotatef(err, "fbdev %s FBIOPAN_DISPLAY", self.path)
}

func (self *Device) Map(length int) ([]byte, error) {
	mem, err := unix.Mmap(self.fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Annotatef(err, "fbdev %s mmap length=%d", self.path, length)
	}
	self.mem = mem
	return mem, nil
}

func (self *Device) Unmap() error {
	if self.mem == nil {
		return nil
	}
	err := unix.Munmap(self.mem)
	self.mem = nil
	return errors.Annotatef(err, "fbdev %s munmap", self.path)
}

func (self *Device) Commit(c *MdpDisplayCommit) error {
	err := ioctl(uintptr(self.fd), MSMFB_DISPLAY_COMMIT, uintptr(unsafe.Pointer(c)))
	return errors.Annotatef(err, "fbdev %s MSMFB_DISPLAY_COMMIT", self.path)
}

func (self *Device) Close() error {
	if self.fd < 0 {
		return nil
	}
	err := unix.Close(self.fd)
	self.fd = -1
	return errors.Annotatef(err, "fbdev %s close", self.path)
}

func ioctl(fd uintptr, cmd uintptr, data uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, cmd, data); errno != 0 {
		return os.NewSyscallError("ioctl", errno)
	}
	return nil
}
