package state

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/halpix/viewport/helpers"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/video"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Video struct {
		Driver string `hcl:"driver"`
		MSMFB  struct {
			Device     string `hcl:"device"`
			WaitFinish bool   `hcl:"wait_finish"`
		} `hcl:"msmfb"`
		X11 struct {
			Display           string `hcl:"display"`
			FocusDebounceMs   int    `hcl:"focus_debounce_ms"`
			ScreensaverTickle bool   `hcl:"screensaver_tickle"`
		} `hcl:"x11"`
		Touch struct {
			Enable bool   `hcl:"enable"`
			Device string `hcl:"device"`
		} `hcl:"touch"`
	} `hcl:"video"`

	Log struct {
		Debug bool `hcl:"debug"`
	} `hcl:"log"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

// VideoOptions shapes the video block for video.Open. Durations stay zero
// when unset so drivers apply their own defaults.
func (c *Config) VideoOptions() video.Options {
	return video.Options{
		Driver: c.Video.Driver,
		MSMFB: video.MSMFBOptions{
			Device:     c.Video.MSMFB.Device,
			WaitFinish: c.Video.MSMFB.WaitFinish,
		},
		X11: video.X11Options{
			Display:           c.Video.X11.Display,
			FocusDebounce:     helpers.IntMillisecondDefault(c.Video.X11.FocusDebounceMs, 0),
			ScreensaverTickle: c.Video.X11.ScreensaverTickle,
		},
		Touch: video.TouchOptions{
			Enable: c.Video.Touch.Enable,
			Device: c.Video.Touch.Device,
		},
	}
}

func (c *Config) validate() error {
	errs := make([]error, 0, 4)
	if c.Video.X11.FocusDebounceMs < 0 {
		errs = append(errs, errors.NotValidf("config video.x11.focus_debounce_ms=%d", c.Video.X11.FocusDebounceMs))
	}
	if c.Video.Touch.Enable && c.Video.Touch.Device == "" {
		errs = append(errs, errors.NotValidf("config video.touch.enable without device"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
