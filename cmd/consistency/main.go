// Command consistency trains every example family and checks that in-memory
// and file based predictions agree.
//
//	consistency -root examples [-family binary] [-reference engine] [-plot-dir out]
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/gbdtcheck/consistency"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command with args and returns the exit code: 0 when
// every family passes, 1 when a check fails and 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("consistency", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", "examples", "directory holding the example families")
	family := fs.String("family", "", "run only this family (binary, multiclass, regression, lambdarank)")
	reference := fs.String("reference", "none", "reference predictions: none, file or engine")
	workDir := fs.String("work-dir", "", "output directory for -reference engine (default: a temporary directory)")
	plotDir := fs.String("plot-dir", "", "write a divergence plot here when a check fails")
	decimal := fs.Int("decimal", consistency.DefaultDecimal, "decimal places predictions must agree to")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := log.SetupLoggerTo(stderr, *logLevel); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	warnings := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(errors.ZerologWarnFunc(warnings))

	scenarios := consistency.DefaultScenarios(*root)
	if *family != "" {
		sc, ok := consistency.FindScenario(scenarios, *family)
		if !ok {
			fmt.Fprintf(stderr, "unknown family %q\n", *family)
			return 2
		}
		scenarios = []consistency.Scenario{sc}
	}

	opts := []consistency.RunOption{consistency.WithDecimal(*decimal)}
	if *plotDir != "" {
		if err := os.MkdirAll(*plotDir, 0o755); err != nil {
			slog.Error("Failed to create plot directory", log.ErrAttr(err))
			return 1
		}
		opts = append(opts, consistency.WithPlotDir(*plotDir))
	}

	switch *reference {
	case "none":
	case "file":
		opts = append(opts, consistency.WithReferenceFile(""))
	case "engine":
		if *workDir == "" {
			tmp, err := os.MkdirTemp("", "gbdtcheck-")
			if err != nil {
				slog.Error("Failed to create work directory", log.ErrAttr(err))
				return 1
			}
			defer os.RemoveAll(tmp)
			*workDir = tmp
		}
	default:
		fmt.Fprintf(stderr, "unknown -reference %q\n", *reference)
		return 2
	}

	failed := 0
	for _, sc := range scenarios {
		runOpts := opts
		if *reference == "engine" {
			runOpts = append(runOpts[:len(runOpts):len(runOpts)], consistency.WithEngineReference(filepath.Join(*workDir, sc.Family)))
		}

		res, err := consistency.Run(sc, runOpts...)
		if err != nil {
			failed++
			slog.Error("Consistency check failed", log.FamilyKey, sc.Family, log.ErrAttr(err))
			fmt.Fprintf(stdout, "FAIL  %-12s %v\n", sc.Family, err)
			continue
		}
		fmt.Fprintf(stdout, "ok    %-12s max |diff| %.3g over %d comparisons\n", sc.Family, res.MaxAbsDiff(), len(res.Comparisons))
	}
	if failed > 0 {
		return 1
	}
	return 0
}
