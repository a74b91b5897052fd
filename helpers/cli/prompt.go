package cli

import (
	"bufio"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c-bata/go-prompt"
	"github.com/mattn/go-isatty"
)

// MainLoop feeds lines to exec until input runs dry. On a terminal it runs
// an interactive prompt with completion, otherwise stdin is treated as a
// script, one command per line.
func MainLoop(tag string, exec func(line string), complete func(d prompt.Document) []prompt.Suggest) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		for range signalCh {
			os.Exit(1)
		}
	}()

	if isatty.IsTerminal(os.Stdin.Fd()) {
		prompt.New(exec, complete,
			prompt.OptionPrefix(tag+"> "),
		).Run()
		return
	}

	scan := bufio.NewScanner(os.Stdin)
	for scan.Scan() {
		exec(strings.TrimSpace(scan.Text()))
	}
	if err := scan.Err(); err != nil {
		log.Fatal(err)
	}
}
