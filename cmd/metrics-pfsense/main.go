package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/metrics-pfsense/internal/check"
)

var (
	version   = "1.0.0"
	commit    = ""
	buildDate = ""
)

// Setup the logger. stdout belongs to the metrics, so logs go to stderr.
func setupLogger(w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

// Report a failed check the way monitoring harnesses expect it
func report(w io.Writer, err error) int {
	status := check.StatusOf(err)
	log.Error().Err(err).Str("status", status.String()).Msg("Check failed")
	fmt.Fprintf(w, "%s %s: %v\n", appName, status, err)
	return int(status)
}

// Main entry point
func main() {
	setupLogger(os.Stderr)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root := newRootCmd(os.Stdout)
	err := root.ExecuteContext(ctx)
	cancel()
	if err != nil {
		os.Exit(report(os.Stdout, err))
	}
}
