package video

import "fmt"

// PixelFormat names follow packed component order, high bit to low bit.
type PixelFormat uint32

const (
	FormatUnknown PixelFormat = iota
	FormatABGR8888
	FormatARGB8888
	FormatRGB565
)

func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatABGR8888, FormatARGB8888:
		return 4
	case FormatRGB565:
		return 2
	}
	return 0
}

func (f PixelFormat) String() string {
	switch f {
	case FormatABGR8888:
		return "ABGR8888"
	case FormatARGB8888:
		return "ARGB8888"
	case FormatRGB565:
		return "RGB565"
	}
	return fmt.Sprintf("PixelFormat(%d)", uint32(f))
}

// Surface is pixel storage a driver hands to the application. For msmfb the
// bytes are the mapped panel memory itself, writes land directly in hardware.
type Surface struct {
	Format PixelFormat
	W      int32
	H      int32
	Pitch  int
	Pix    []byte
}

func (s *Surface) String() string {
	return fmt.Sprintf("Surface(%s %dx%d pitch=%d)", s.Format.String(), s.W, s.H, s.Pitch)
}

type Rect struct {
	X int32
	Y int32
	W int32
	H int32
}

// Clip trims a dirty rectangle to window bounds: rejects empty or fully
// negative rectangles, splits negative origins, clamps width and height.
// Returns false when nothing of the rectangle remains visible.
func (r Rect) Clip(boundsW, boundsH int32) (Rect, bool) {
	x, y, w, h := r.X, r.Y, r.W, r.H
	if w <= 0 || h <= 0 || x+w <= 0 || y+h <= 0 {
		return Rect{}, false
	}
	if x < 0 {
		x += w
		w += r.X
	}
	if y < 0 {
		y += h
		h += r.Y
	}
	if x+w > boundsW {
		w = boundsW - x
	}
	if y+h > boundsH {
		h = boundsH - y
	}
	return Rect{X: x, Y: y, W: w, H: h}, true
}

func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d,%d %dx%d)", r.X, r.Y, r.W, r.H)
}
