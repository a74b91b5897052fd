// viewport-cli pokes a video backend by hand: draw fills, patterns and QR
// codes, run pump ticks, inspect modes. Reads commands from a prompt on a
// terminal or from stdin as a script.
package main

import (
	"context"
	"flag"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	prompt "github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/skip2/go-qrcode"

	"github.com/halpix/viewport/helpers/cli"
	"github.com/halpix/viewport/internal/state"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/render"
	"github.com/halpix/viewport/video"
	_ "github.com/halpix/viewport/video/dummy"
	_ "github.com/halpix/viewport/video/msmfb"
	_ "github.com/halpix/viewport/video/term"
	_ "github.com/halpix/viewport/video/x11"
)

const usage = `syntax: COMMAND [ARG]
- info           driver, displays, windows, queue counters
- modes          list display modes, * marks current
- fill RRGGBB    fill the window with a color, hex like c0ffee
- pattern        draw color bars
- qr TEXT        draw TEXT as a QR code
- ascii          dump the window surface as text
- pump [N]       run N event pump ticks 16ms apart (default 1), print events
- text LINE      put LINE into the platform clipboard
- quit           orderly shutdown
`

const pumpInterval = 16 * time.Millisecond

var log = log2.NewStderr(log2.LDebug)

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "viewport.hcl", "")
	flagDriver := cmdline.String("driver", "", "video driver name, overrides config; env "+video.EnvDriver+" beats both")
	cmdline.Parse(os.Args[1:])

	log.SetFlags(log2.LInteractiveFlags)

	ctx, g := state.NewContext(log)
	g.MustInit(ctx, state.MustReadConfig(log, state.NewOsFullReader("."), *flagConfig))

	opt := g.Config.VideoOptions()
	if *flagDriver != "" {
		opt.Driver = *flagDriver
	}
	dev, err := video.Open(log, opt)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	g.Video = dev

	displays := dev.Displays()
	if len(displays) == 0 {
		dev.Quit()
		log.Fatal("video driver=" + dev.DriverName() + " reported no displays")
	}
	mode := displays[0].Current
	win, err := dev.CreateWindow("viewport-cli", mode.W, mode.H)
	if err != nil {
		dev.Quit()
		log.Fatal(errors.ErrorStack(err))
	}
	if _, err = dev.CreateWindowSurface(win); err != nil {
		dev.Quit()
		log.Fatal(errors.ErrorStack(err))
	}
	log.Infof("driver=%s display=%s %dx%d, `help` lists commands",
		dev.DriverName(), displays[0].Name, mode.W, mode.H)

	cli.MainLoop("viewport", newExecutor(ctx), newCompleter(ctx))
	dev.Quit()
}

func newCompleter(ctx context.Context) func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "info", Description: "driver, displays, windows, queue counters"},
		{Text: "modes", Description: "list display modes"},
		{Text: "fill", Description: "fill RRGGBB"},
		{Text: "pattern", Description: "draw color bars"},
		{Text: "qr", Description: "qr TEXT"},
		{Text: "ascii", Description: "dump surface as text"},
		{Text: "pump", Description: "pump [N] event ticks"},
		{Text: "text", Description: "text LINE to clipboard"},
		{Text: "quit", Description: "orderly shutdown"},
	}

	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		cmd, arg := line, ""
		if i := strings.IndexByte(line, ' '); i != -1 {
			cmd, arg = line[:i], strings.TrimSpace(line[i+1:])
		}
		if err := execute(g, cmd, arg); err != nil {
			g.Log.Errorf(errors.ErrorStack(err))
		}
	}
}

func execute(g *state.Global, cmd, arg string) error {
	dev := g.Video
	switch cmd {
	case "help":
		log.Infof(usage)
		return nil

	case "info":
		log.Infof("driver=%s queue=%d dropped=%d", dev.DriverName(), dev.QueueLen(), dev.DroppedEvents())
		for _, d := range dev.Displays() {
			log.Infof("display %s current=%s modes=%d", d.Name, d.Current.String(), len(d.Modes))
		}
		for _, w := range dev.Windows() {
			log.Infof("%s surface=%v", w.String(), w.Surface != nil)
		}
		return nil

	case "modes":
		for _, d := range dev.Displays() {
			for _, m := range d.Modes {
				mark := " "
				if m == d.Current {
					mark = "*"
				}
				log.Infof("%s %s %s", mark, d.Name, m.String())
			}
		}
		return nil

	case "fill":
		c, err := parseColor(arg)
		if err != nil {
			return err
		}
		cv, win, err := canvas(dev)
		if err != nil {
			return err
		}
		cv.Fill(cv.Bounds(), c)
		return dev.UpdateWindowSurface(win, nil)

	case "pattern":
		cv, win, err := canvas(dev)
		if err != nil {
			return err
		}
		cv.Pattern()
		return dev.UpdateWindowSurface(win, nil)

	case "qr":
		if arg == "" {
			return errors.NotValidf("qr without text")
		}
		cv, win, err := canvas(dev)
		if err != nil {
			return err
		}
		if _, err = cv.QR(arg, true, qrcode.Medium); err != nil {
			return errors.Trace(err)
		}
		return dev.UpdateWindowSurface(win, nil)

	case "ascii":
		cv, _, err := canvas(dev)
		if err != nil {
			return err
		}
		log.Infof("\n%s", cv.ASCII())
		return nil

	case "pump":
		n := 1
		if arg != "" {
			i, err := strconv.ParseUint(arg, 10, 16)
			if err != nil {
				return errors.Annotatef(err, "pump arg='%s'", arg)
			}
			n = int(i)
		}
		for ; n > 0; n-- {
			dev.PumpEvents()
			for _, e := range dev.DrainEvents() {
				log.Infof("event %s", e.String())
			}
			if n > 1 {
				time.Sleep(pumpInterval)
			}
		}
		return nil

	case "text":
		if arg == "" {
			return errors.NotValidf("text without line")
		}
		return dev.SetClipboardText(arg)

	case "quit":
		dev.Quit()
		os.Exit(0)
		return nil

	default:
		return errors.NotValidf("command '%s', `help` lists commands", cmd)
	}
}

// canvas wraps the first window's surface. Commands draw on one window, the
// one main() created.
func canvas(dev *video.Device) (*render.Canvas, *video.Window, error) {
	wins := dev.Windows()
	if len(wins) == 0 || wins[0].Surface == nil {
		return nil, nil, errors.Errorf("no window surface")
	}
	return render.New(wins[0].Surface), wins[0], nil
}

func parseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	u, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.RGBA{}, errors.NotValidf("color '%s' want hex RRGGBB", s)
	}
	return color.RGBA{R: uint8(u >> 16), G: uint8(u >> 8), B: uint8(u), A: 0xff}, nil
}
