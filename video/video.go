// Package video is a uniform capability contract over platform display
// backends: initialize, set mode, pump events, create/update/destroy window
// surfaces, quit. Backends register themselves at import time and one is
// selected at startup by name or availability.
package video

import (
	"os"
	"time"

	"github.com/juju/errors"

	"github.com/halpix/viewport/log2"
)

// EnvDriver overrides driver selection, same idea as DISPLAY for X11.
const EnvDriver = "VIEWPORT_VIDEODRIVER"

// Driver is the per-backend contract. Implementations live in subpackages
// and talk back to their host *Device for event delivery and window state.
type Driver interface {
	Name() string

	Init() error
	Quit()

	SetDisplayMode(d *Display, m DisplayMode) error

	// PumpEvents drains everything the platform has queued right now,
	// never blocks. Runtime errors are logged and swallowed, the loop
	// must survive anything the platform throws at it.
	PumpEvents()

	CreateWindow(w *Window) error
	DestroyWindow(w *Window)

	CreateWindowFramebuffer(w *Window) (*Surface, error)
	UpdateWindowFramebuffer(w *Window, rects []Rect) error
	DestroyWindowFramebuffer(w *Window)
}

// Clipboarder is implemented by drivers whose platform has a clipboard.
type Clipboarder interface {
	SetClipboardText(text string) error
	GetClipboardText() (string, error)
}

type Bootstrap struct {
	Name      string
	Desc      string
	Available func() bool
	New       func(dev *Device) (Driver, error)
}

var bootstraps []Bootstrap

// Register is called from driver package init(). Blank-import the driver
// packages you want compiled in; their import order is the autodetect order.
func Register(b Bootstrap) {
	for _, known := range bootstraps {
		if known.Name == b.Name {
			panic("code error video duplicate driver name=" + b.Name)
		}
	}
	bootstraps = append(bootstraps, b)
}

// Bootstraps returns the registered drivers in registration order.
func Bootstraps() []Bootstrap {
	out := make([]Bootstrap, len(bootstraps))
	copy(out, bootstraps)
	return out
}

type MSMFBOptions struct {
	Device     string
	WaitFinish bool
}

type X11Options struct {
	Display           string
	FocusDebounce     time.Duration
	ScreensaverTickle bool
}

type TouchOptions struct {
	Enable bool
	Device string
}

type Options struct {
	Driver string
	MSMFB  MSMFBOptions
	X11    X11Options
	Touch  TouchOptions
}

// Open selects a driver and brings it up. Explicit name (env beats opt)
// wins even when the driver reports unavailable; with no name the first
// available bootstrap is used.
func Open(log *log2.Log, opt Options) (*Device, error) {
	name := opt.Driver
	if env := os.Getenv(EnvDriver); env != "" {
		name = env
	}

	var boot *Bootstrap
	if name != "" {
		for i := range bootstraps {
			if bootstraps[i].Name == name {
				boot = &bootstraps[i]
				break
			}
		}
		if boot == nil {
			return nil, errors.NotFoundf("video driver=%s", name)
		}
	} else {
		for i := range bootstraps {
			if bootstraps[i].Available() {
				boot = &bootstraps[i]
				break
			}
		}
		if boot == nil {
			return nil, errors.NotFoundf("available video driver")
		}
	}

	dev := NewDevice(log, opt)
	drv, err := boot.New(dev)
	if err != nil {
		return nil, errors.Annotatef(err, "video driver=%s create", boot.Name)
	}
	dev.driver = drv
	if err = drv.Init(); err != nil {
		// partial bring-up may have touched platform state, let the
		// driver restore it before reporting failure
		drv.Quit()
		return nil, errors.Annotatef(err, "video driver=%s init", boot.Name)
	}
	dev.log.Infof("video driver=%s init done displays=%d", boot.Name, len(dev.displays))
	return dev, nil
}
