package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adnsv/extpack/minify"
	"github.com/adnsv/extpack/model"
	"github.com/adnsv/extpack/runner"
	"github.com/fatih/color"
	cli "github.com/jawher/mow.cli"
	log "github.com/sirupsen/logrus"
)

var red = color.New(color.FgRed)

func fail(format string, args ...any) {
	red.Fprintf(os.Stderr, format+"\n", args...)
}

func main() {
	mode := ""
	configFN := ""
	once := false
	zip := false
	debug := false

	app := cli.App("extpack", "Browser extension asset builder")
	app.Version("v version", "extpack "+app_version())
	app.Spec = "[-c=<CONFIG-FILE>] [--debug] MODE [--once] [--zip]"
	app.StringOptPtr(&configFN, "c config", "", "build configuration (defaults to "+model.DefaultConfigFile+" when present)")
	app.BoolOptPtr(&debug, "debug", false, "verbose logging")
	app.StringArgPtr(&mode, "MODE", "", "build mode: production (prod) or development (dev)")
	app.BoolOptPtr(&once, "once", false, "one-time build, skips watching (development mode)")
	app.BoolOptPtr(&zip, "zip", false, "create a zip file of the build (production mode only)")

	app.Action = func() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		if debug {
			log.SetLevel(log.DebugLevel)
		}

		wd, err := os.Getwd()
		if err != nil {
			log.Fatal(err)
		}

		cfg, err := model.LoadConfig(wd, configFN)
		if err != nil {
			fail("error loading configuration: %s", err)
			cli.Exit(1)
		}

		r, err := runner.New(cfg, wd, minify.New())
		if err != nil {
			fail("%s", err)
			cli.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = r.Run(ctx, runner.Options{Mode: mode, Once: once, Zip: zip})
		var uerr *runner.UsageError
		if errors.As(err, &uerr) {
			fail("%s", err)
			fmt.Fprintln(os.Stderr)
			app.PrintHelp()
			cli.Exit(1)
		} else if err != nil {
			fail("%s", err)
			cli.Exit(1)
		}
	}

	app.Run(os.Args)
}
