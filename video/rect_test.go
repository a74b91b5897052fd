package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halpix/viewport/helpers"
)

func TestRectClip(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		in     Rect
		out    Rect
		ok     bool
	}{
		{"fits", Rect{10, 10, 20, 20}, Rect{10, 10, 20, 20}, true},
		{"zero-w", Rect{0, 0, 0, 10}, Rect{}, false},
		{"zero-h", Rect{0, 0, 10, 0}, Rect{}, false},
		{"negative-w", Rect{5, 5, -3, 10}, Rect{}, false},
		{"off-left", Rect{-30, 0, 20, 10}, Rect{}, false},
		{"off-top", Rect{0, -40, 10, 30}, Rect{}, false},
		{"touch-left-edge", Rect{-10, 0, 10, 10}, Rect{}, false},
		{"split-x", Rect{-10, 0, 30, 10}, Rect{20, 0, 20, 10}, true},
		{"split-y", Rect{0, -5, 10, 15}, Rect{0, 10, 10, 10}, true},
		{"clamp-right", Rect{90, 0, 20, 10}, Rect{90, 0, 10, 10}, true},
		{"clamp-bottom", Rect{0, 45, 10, 10}, Rect{0, 45, 10, 5}, true},
		{"clamp-corner", Rect{95, 45, 10, 10}, Rect{95, 45, 5, 5}, true},
		{"exact-border", Rect{90, 40, 10, 10}, Rect{90, 40, 10, 10}, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			out, ok := c.in.Clip(100, 50)
			assert.Equal(t, c.ok, ok)
			assert.Equal(t, c.out, out)
		})
	}
}

func TestRectClipWithinBounds(t *testing.T) {
	t.Parallel()
	rand := helpers.RandUnix()
	const boundsW, boundsH = 100, 50
	for i := 0; i < 1000; i++ {
		r := Rect{
			X: rand.Int31n(boundsW),
			Y: rand.Int31n(boundsH),
			W: 1 + rand.Int31n(200),
			H: 1 + rand.Int31n(200),
		}
		out, ok := r.Clip(boundsW, boundsH)
		if !ok {
			t.Fatalf("in-bounds origin must clip: %s", r.String())
		}
		assert.Equal(t, r.X, out.X)
		assert.Equal(t, r.Y, out.Y)
		assert.True(t, out.W > 0 && out.X+out.W <= boundsW, "x=%d w=%d", out.X, out.W)
		assert.True(t, out.H > 0 && out.Y+out.H <= boundsH, "y=%d h=%d", out.Y, out.H)
	}
}
