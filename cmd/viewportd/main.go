// viewportd brings up a video backend, shows one full-screen window with a
// test pattern and logs every event the backend delivers. Kiosk deployments
// run it under systemd; development runs it in a terminal.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"

	"github.com/halpix/viewport/event"
	"github.com/halpix/viewport/internal/state"
	"github.com/halpix/viewport/log2"
	"github.com/halpix/viewport/render"
	"github.com/halpix/viewport/video"
	_ "github.com/halpix/viewport/video/dummy"
	_ "github.com/halpix/viewport/video/msmfb"
	_ "github.com/halpix/viewport/video/term"
	_ "github.com/halpix/viewport/video/x11"
)

var log = log2.NewStderr(log2.LInfo)

var BuildVersion string = "unknown" // set by ldflags -X

const pumpInterval = 16 * time.Millisecond

func main() {
	cmdline := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagConfig := cmdline.String("config", "viewport.hcl", "")
	flagDriver := cmdline.String("driver", "", "video driver name, overrides config; env "+video.EnvDriver+" beats both")
	cmdline.Parse(os.Args[1:])

	if sdnotify("start") {
		// we're under systemd, assume journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.Infof("viewportd version=%s", BuildVersion)

	ctx, g := state.NewContext(log)
	g.BuildVersion = BuildVersion
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
	win, err := dev.CreateWindow("viewport", mode.W, mode.H)
	if err != nil {
		dev.Quit()
		log.Fatal(errors.ErrorStack(err))
	}
	surf, err := dev.CreateWindowSurface(win)
	if err != nil {
		dev.Quit()
		log.Fatal(errors.ErrorStack(err))
	}
	render.New(surf).Pattern()
	if err = dev.UpdateWindowSurface(win, nil); err != nil {
		g.Error(err, "first update")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Infof("signal=%v stopping", s)
		g.Alive.Stop()
	}()

	g.Alive.Add(1)
	go pumpLoop(g)

	sdnotify(daemon.SdNotifyReady)
	log.Infof("viewportd init complete driver=%s display=%s %dx%d",
		dev.DriverName(), displays[0].Name, mode.W, mode.H)

	<-g.Alive.WaitChan()
	dev.Quit()
	if n := dev.DroppedEvents(); n != 0 {
		log.Infof("viewportd dropped events=%d", n)
	}
	sdnotify(daemon.SdNotifyStopping)
}

func pumpLoop(g *state.Global) {
	defer g.Alive.Done()

	dev := g.Video
	tick := time.NewTicker(pumpInterval)
	defer tick.Stop()
	stopCh := g.Alive.StopChan()
	for {
		select {
		case <-stopCh:
			return
		case <-tick.C:
			dev.PumpEvents()
			for _, e := range dev.DrainEvents() {
				onEvent(g, e)
			}
		}
	}
}

func onEvent(g *state.Global, e event.Event) {
	switch e.Kind {
	case event.WindowClosed:
		g.Log.Infof("event %s", e.String())
		g.Alive.Stop()
	case event.MouseMotion, event.TouchMotion:
		// continuous streams drown the log even at debug
	default:
		g.Log.Debugf("event %s", e.String())
	}
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
