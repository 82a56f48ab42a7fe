// Command lightgbm trains and predicts like the LightGBM executable:
//
//	lightgbm config=train.conf [key=value ...]
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/YuminosukeSato/gbdtcheck/lightgbm/application"
	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	"github.com/YuminosukeSato/gbdtcheck/pkg/log"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run executes one task and returns the exit code.
func run(args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: lightgbm config=train.conf [key=value ...]")
		return 2
	}

	warnings := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(errors.ZerologWarnFunc(warnings))

	app, err := application.FromArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := log.SetupLoggerTo(stderr, application.LogLevel(app.Params().Verbosity)); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if err := app.Run(); err != nil {
		slog.Error("Task failed", "task", string(app.Task()), log.ErrAttr(err))
		return 1
	}
	return 0
}
