package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wakebench/internal/config"
	"github.com/MrWong99/wakebench/internal/harness"
	"github.com/MrWong99/wakebench/pkg/audio/wav"
)

func (c *cli) runCmd() *cobra.Command {
	var wavPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate one WAV recording",
		Long: `Stream one 16-bit PCM WAV file through the device buffering and score every
analysis window with the first backend that loads the model.

Exits 0 when the wake word was detected, 1 when it was not, and 2 when the
run aborted.`,
		Example: `  wakebench run --wav hey_nap.wav --model hey_nap.tflite
  wakebench run --wav hey_nap.wav --model hey_nap.onnx --backend onnx -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.currentConfig()
			if err := requireModel(cfg); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			res, err := c.runOnce(cmd.Context(), cfg, wavPath)
			return c.report(res, err)
		},
	}
	cmd.Flags().StringVarP(&wavPath, "wav", "w", "", "WAV recording to evaluate (required)")
	_ = cmd.MarkFlagRequired("wav")
	return cmd
}

// runOnce builds a harness for wavPath from cfg and runs it.
func (c *cli) runOnce(ctx context.Context, cfg *config.Config, wavPath string) (*harness.Result, error) {
	bs, err := c.backendList(cfg)
	if err != nil {
		return nil, err
	}
	h, err := harness.New(harness.FromConfig(cfg), wav.File{Path: wavPath}, bs, c.harnessOptions()...)
	if err != nil {
		return nil, err
	}
	res, err := h.Run(ctx)
	c.lastRun.Set(err)
	return res, err
}

// report prints a run outcome and maps it to an exit status.
func (c *cli) report(res *harness.Result, runErr error) error {
	var re *harness.RunError
	if runErr != nil && !errors.As(runErr, &re) {
		return &exitError{code: exitAborted, err: runErr}
	}
	if err := writeRun(c.out, c.format, res, runErr); err != nil {
		return &exitError{code: exitAborted, err: err}
	}
	switch {
	case runErr != nil:
		return &exitError{code: exitAborted, err: runErr}
	case res.Success():
		return nil
	default:
		return &exitError{code: exitSilent}
	}
}
