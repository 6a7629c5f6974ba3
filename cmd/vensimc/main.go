// Package main implements the vensimc command line tool: it reads a parsed
// Vensim model document plus an optional I/O spec and external data series,
// and emits a C translation unit together with the variable/subscript
// listings (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"

	"github.com/dvensim/vensimc/internal/cli"
	"github.com/dvensim/vensimc/internal/pipeline"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	settings, err := cli.ParseFlags()
	if err != nil {
		if usageErr, ok := cli.IsUsageError(err); ok {
			printBanner(settings.Quiet)
			usageErr.ShowUsage()
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := createLogger(settings.Debug, settings.Quiet)
	printBanner(settings.Quiet)
	if !settings.Quiet {
		logger.Info("Build info", log.String("version", buildinfo.Version(version, commit, date)))
	}

	p := pipeline.New(logger)
	result, err := p.Execute(context.Background(), settings.Options)
	if err != nil {
		logger.Fatal(err.Error())
	}

	if !settings.Quiet {
		logger.Info("Done", log.Int("diagnostics", len(result.Diagnostics)), log.Int("files", len(result.WrittenFiles)))
	}
}

func createLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	switch {
	case debug:
		cfg.Level = log.DebugLevel
	case quiet:
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func printBanner(quiet bool) {
	if quiet {
		return
	}
	fmt.Println("[----------------------------------------]")
	fmt.Println("[ vensimc - Vensim model to C transpiler  ]")
	fmt.Printf("[----------------------------------------]\n\n")
}
