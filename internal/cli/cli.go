// Package cli handles command line flag parsing for the vensimc binary.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dvensim/vensimc/internal/pipeline"
)

// Settings holds every flag-derived setting ParseFlags produces, beyond the
// pipeline.Options it assembles: the process-level concerns (log verbosity)
// the pipeline itself has no business knowing about.
type Settings struct {
	Options pipeline.Options
	Debug   bool
	Quiet   bool
}

// ParseFlags parses command line flags and returns the resolved settings.
func ParseFlags() (Settings, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	var settings Settings

	flags.StringVar(&settings.Options.ModelPath, "model", "", "path to the JSON-encoded parse tree document (required)")
	flags.StringVar(&settings.Options.SpecPath, "spec", "", "path to the JSON I/O spec document")
	flags.StringVar(&settings.Options.DataPath, "data", "", "path to the JSON external data series document")
	flags.StringVar(&settings.Options.ModelName, "name", "", "base name for emitted artifacts, derived from -model if empty")
	flags.StringVar(&settings.Options.OutputDir, "o", "", "directory emitted artifacts are written to")
	flags.BoolVar(&settings.Debug, "debug", false, "enable debug logging")
	flags.BoolVar(&settings.Quiet, "q", false, "perform operations quietly")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return settings, &UsageError{flags: flags, msg: err.Error()}
	}

	if settings.Options.ModelPath == "" {
		return settings, &UsageError{flags: flags, msg: "missing required -model flag"}
	}

	return settings, nil
}

// UsageError represents an error that should show usage information.
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: vensimc -model <parse tree document> [options]\n\n")
	e.flags.PrintDefaults()
	fmt.Println()
}

// IsUsageError reports whether err requests a usage banner.
func IsUsageError(err error) (*UsageError, bool) {
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return usageErr, true
	}
	return nil, false
}
