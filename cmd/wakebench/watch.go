package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/wakebench/internal/config"
	"github.com/MrWong99/wakebench/internal/watch"
)

func (c *cli) watchCmd() *cobra.Command {
	var (
		wavPath  string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the evaluation whenever the recording, model or config changes",
		Long: `Run the evaluation once, then again every time the WAV file, the model file
or the config file is rewritten, e.g. by a training job exporting a new model.
Runs until interrupted. Readiness on /readyz reflects the last run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireModel(c.currentConfig()); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			ctx := cmd.Context()
			trigger := make(chan struct{}, 1)
			poke := func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			}

			paths := []string{wavPath}
			if m := c.currentConfig().Model; m != "" {
				if _, err := os.Stat(m); err == nil {
					paths = append(paths, m)
				}
			}
			fw, err := watch.New(paths, watch.WithDebounce(debounce))
			if err != nil {
				return &exitError{code: exitAborted, err: err}
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return fw.Run(gctx, func(_ context.Context, changed []string) {
					slog.Info("input changed, re-running", "files", changed)
					poke()
				})
			})

			if c.configPath != "" {
				cw, err := config.NewWatcher(c.configPath, func(old, new *config.Config) {
					c.reloadConfig(cmd, old, new, poke)
				}, config.WithDebounce(debounce))
				if err != nil {
					return &exitError{code: exitAborted, err: err}
				}
				g.Go(func() error { return cw.Run(gctx) })
			}

			g.Go(func() error {
				poke()
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-trigger:
					}
					res, err := c.runOnce(gctx, c.currentConfig(), wavPath)
					if gctx.Err() != nil {
						return nil
					}
					if err := writeRun(c.out, c.format, res, err); err != nil {
						slog.Warn("failed to write report", "err", err)
					}
				}
			})

			slog.Info("watching for changes", "files", paths, "config", c.configPath)
			if err := g.Wait(); err != nil && ctx.Err() == nil {
				return &exitError{code: exitAborted, err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&wavPath, "wav", "w", "", "WAV recording to evaluate (required)")
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period after a change before re-running")
	_ = cmd.MarkFlagRequired("wav")
	return cmd
}

// reloadConfig applies a changed config file. Command-line overrides are
// re-applied so they keep precedence over the file.
func (c *cli) reloadConfig(cmd *cobra.Command, _, next *config.Config, rerun func()) {
	if err := c.applyOverrides(cmd.Flags(), next); err != nil {
		slog.Warn("reloaded config is invalid with command-line overrides, keeping previous", "err", err)
		return
	}
	d := config.Diff(c.currentConfig(), next)
	c.setConfig(next)

	if d.LogLevelChanged {
		slog.SetDefault(newLogger(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RequiresRestart() {
		slog.Warn("history or metrics settings changed; restart wakebench to apply them")
	}
	if d.NeedsRerun() {
		slog.Info("config changed, re-running",
			"harness", d.HarnessChanged,
			"model", d.ModelChanged,
			"backends", d.BackendsChanged,
		)
		rerun()
	}
}
