// Command simdemo is a demonstration driver for the kernel package: it is
// an external collaborator in exactly the sense the kernel's own spec
// describes (§1), never a kernel-internal component, so it is the only
// place in this repository that parses flags, uses a structured logger, or
// knows the word "scenario".
//
// Grounded in jmchacon-6502/vcs/vcs_main.go for the overall shape of a
// flag-driven main that builds a system and drives it in a loop, and in
// ja7ad-consumption/cmd/consumption/main.go for the cobra command tree and
// log/slog structured output (replacing vcs_main.go's SDL rendering loop,
// which has no analogue here: this kernel has no framebuffer).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	debugNarration bool
	jsonLogs       bool
)

func main() {
	root := &cobra.Command{
		Use:   "simdemo",
		Short: "Drives the multi-clock discrete-event kernel through small demonstration runs",
		Long: `simdemo builds a Kernel, registers a handful of clocks/processes/storages
on it, and steps it to completion, printing a trace of what ran.

It exists purely to exercise the kernel package from outside: nothing here
is part of the simulation kernel itself.`,
	}
	root.PersistentFlags().BoolVar(&debugNarration, "debug", false, "enable kernel phase/arbitration/deadlock debug narration")
	root.PersistentFlags().BoolVar(&jsonLogs, "json", false, "emit structured logs as JSON instead of text")

	root.AddCommand(newRunCmd())
	root.AddCommand(newScenarioCmd())

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// newLogger builds the slog.Logger this invocation should use, selecting a
// handler by the --json persistent flag (ja7ad-consumption's main offers
// the same csv/json/html choice of output shape via distinct flags; here
// the choice collapses to text-vs-JSON since there is only one kind of
// output, a trace).
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debugNarration {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if jsonLogs {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// fatalf prints a formatted error to stderr and exits 1, matching
// vcs_main.go's log.Fatalf convention for unrecoverable setup errors.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "simdemo: "+format+"\n", args...)
	os.Exit(1)
}
