// Package render draws into window surfaces: solid fills, a test
// pattern, QR codes. Operations return the dirty rectangle to pass to
// UpdateWindowFramebuffer.
package render

import (
	"image"
	"image/color"
	"strings"

	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"

	"github.com/halpix/viewport/video"
)

// Canvas wraps one surface. Not safe for concurrent use.
type Canvas struct {
	surf *video.Surface
}

func New(surf *video.Surface) *Canvas { return &Canvas{surf: surf} }

func (self *Canvas) Surface() *video.Surface { return self.surf }

func (self *Canvas) Bounds() video.Rect {
	return video.Rect{W: self.surf.W, H: self.surf.H}
}

// Set writes one pixel, out of bounds is ignored.
func (self *Canvas) Set(x, y int32, c color.RGBA) {
	if x < 0 || y < 0 || x >= self.surf.W || y >= self.surf.H {
		return
	}
	off := int(y)*self.surf.Pitch + int(x)*self.surf.Format.BytesPerPixel()
	pix := self.surf.Pix
	switch self.surf.Format {
	case video.FormatABGR8888:
		pix[off+0] = c.R
		pix[off+1] = c.G
		pix[off+2] = c.B
		pix[off+3] = c.A
	case video.FormatARGB8888:
		pix[off+0] = c.B
		pix[off+1] = c.G
		pix[off+2] = c.R
		pix[off+3] = c.A
	case video.FormatRGB565:
		v := uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
		pix[off+0] = byte(v)
		pix[off+1] = byte(v >> 8)
	}
}

// Get reads one pixel back, out of bounds is black.
func (self *Canvas) Get(x, y int32) color.RGBA {
	if x < 0 || y < 0 || x >= self.surf.W || y >= self.surf.H {
		return color.RGBA{}
	}
	off := int(y)*self.surf.Pitch + int(x)*self.surf.Format.BytesPerPixel()
	pix := self.surf.Pix
	switch self.surf.Format {
	case video.FormatABGR8888:
		return color.RGBA{R: pix[off+0], G: pix[off+1], B: pix[off+2], A: pix[off+3]}
	case video.FormatARGB8888:
		return color.RGBA{R: pix[off+2], G: pix[off+1], B: pix[off+0], A: pix[off+3]}
	case video.FormatRGB565:
		v := uint16(pix[off+0]) | uint16(pix[off+1])<<8
		return color.RGBA{
			R: uint8(v>>11) << 3,
			G: uint8(v>>5&0x3f) << 2,
			B: uint8(v&0x1f) << 3,
			A: 0xff,
		}
	}
	return color.RGBA{}
}

// Fill paints the intersection of r with the surface and returns it.
func (self *Canvas) Fill(r video.Rect, c color.RGBA) (video.Rect, bool) {
	clipped, ok := intersect(r, self.surf.W, self.surf.H)
	if !ok {
		return video.Rect{}, false
	}
	for y := clipped.Y; y < clipped.Y+clipped.H; y++ {
		for x := clipped.X; x < clipped.X+clipped.W; x++ {
			self.Set(x, y, c)
		}
	}
	return clipped, true
}

// Clear fills the whole surface with opaque black.
func (self *Canvas) Clear() video.Rect {
	r, _ := self.Fill(self.Bounds(), color.RGBA{A: 0xff})
	return r
}

var patternColors = []color.RGBA{
	{0xff, 0xff, 0xff, 0xff},
	{0xff, 0xff, 0x00, 0xff},
	{0x00, 0xff, 0xff, 0xff},
	{0x00, 0xff, 0x00, 0xff},
	{0xff, 0x00, 0xff, 0xff},
	{0xff, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xff, 0xff},
	{0x00, 0x00, 0x00, 0xff},
}

// Pattern paints vertical color bars over the whole surface.
func (self *Canvas) Pattern() video.Rect {
	bounds := self.Bounds()
	bar := bounds.W / int32(len(patternColors))
	if bar < 1 {
		bar = 1
	}
	for i, c := range patternColors {
		x := int32(i) * bar
		w := bar
		if i == len(patternColors)-1 {
			w = bounds.W - x
		}
		self.Fill(video.Rect{X: x, W: w, H: bounds.H}, c)
	}
	return bounds
}

// QR renders text as a QR code at the origin.
func (self *Canvas) QR(text string, border bool, level qrcode.RecoveryLevel) (video.Rect, error) {
	qr, err := qrcode.New(text, level)
	if err != nil {
		return video.Rect{}, errors.Annotate(err, "QR")
	}
	qr.DisableBorder = !border
	minSize := self.surf.W
	if self.surf.H < minSize {
		minSize = self.surf.H
	}
	img := qr.Image(int(minSize)).(*image.Paletted)
	max := img.Bounds().Max
	if int32(max.X) > self.surf.W || int32(max.Y) > self.surf.H {
		return video.Rect{}, errors.Errorf("QR image size=%s > surface size=%s", img.Bounds().Max.String(), self.surf.String())
	}
	self.drawPaletted(img)
	return video.Rect{W: int32(max.X), H: int32(max.Y)}, nil
}

// ASCII dumps the surface as text, two columns per pixel. Intended for
// tests and the CLI.
func (self *Canvas) ASCII() string {
	b := strings.Builder{}
	b.Grow(int(self.surf.W*2+1) * int(self.surf.H))
	for y := int32(0); y < self.surf.H; y++ {
		for x := int32(0); x < self.surf.W; x++ {
			c := self.Get(x, y)
			if c.R == 0 && c.G == 0 && c.B == 0 {
				b.WriteString("  ")
			} else {
				b.WriteString("██")
			}
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func (self *Canvas) drawPaletted(img *image.Paletted) {
	min, max := img.Bounds().Min, img.Bounds().Max
	bg := toRGBA(img.Palette[0])
	fg := toRGBA(img.Palette[1])
	for y := min.Y; y < max.Y; y++ {
		for x := min.X; x < max.X; x++ {
			c := bg
			if img.Pix[img.PixOffset(x, y)] != 0 {
				c = fg
			}
			self.Set(int32(x), int32(y), c)
		}
	}
}

// intersect is plain rectangle intersection, unlike the update-path
// clipping in video.Rect.Clip.
func intersect(r video.Rect, w, h int32) (video.Rect, bool) {
	if r.W <= 0 || r.H <= 0 {
		return video.Rect{}, false
	}
	if r.X < 0 {
		r.W += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.H += r.Y
		r.Y = 0
	}
	if r.X >= w || r.Y >= h || r.W <= 0 || r.H <= 0 {
		return video.Rect{}, false
	}
	if r.X+r.W > w {
		r.W = w - r.X
	}
	if r.Y+r.H > h {
		r.H = h - r.Y
	}
	return r, true
}

func toRGBA(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}
