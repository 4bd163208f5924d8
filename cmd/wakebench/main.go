// Command wakebench replays WAV recordings through the wake-word firmware's
// audio buffering and reports which keywords a model detects.
//
// Exit codes: 0 when at least one detection was recorded (for batch: every
// expectation met), 1 when nothing was detected, 2 when a run aborted or the
// command line or configuration is invalid.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/MrWong99/wakebench/internal/config"
)

// Exit codes.
const (
	exitDetected = 0
	exitSilent   = 1
	exitAborted  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// A missing .env is normal; variables may come from the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI(os.Stdout)
	err := c.rootCmd().ExecuteContext(ctx)
	if cerr := c.close(ctx); cerr != nil {
		slog.Warn("shutdown error", "err", cerr)
	}
	return exitCode(err)
}

// exitError carries a process exit code out of a cobra command. err may be
// nil for outcomes that are not failures, such as a run without detections.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exitCode maps the error returned by the root command to a process exit
// code and reports it.
func exitCode(err error) int {
	if err == nil {
		return exitDetected
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			slog.Error("wakebench failed", "err", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "wakebench: %v\n", err)
	return exitAborted
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
