package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wakebench/internal/harness"
	"github.com/MrWong99/wakebench/pkg/audio/wav"
)

func (c *cli) batchCmd() *cobra.Command {
	var (
		positive    []string
		negative    []string
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "batch [file|dir ...]",
		Short: "Evaluate many recordings, optionally against expected outcomes",
		Long: `Evaluate every WAV file given as an argument or found in the given
directories. Files under --positive must trigger a detection, files under
--negative must not; plain arguments are reported without judgement.

Exits 0 when every expectation is met (or, without expectations, when any
file triggered a detection), 1 otherwise, and 2 when any run aborted.`,
		Example: `  wakebench batch --model hey_nap.tflite --positive samples/positive --negative samples/negative
  wakebench batch --model hey_nap.tflite recordings/ -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.currentConfig()
			if err := requireModel(cfg); err != nil {
				return &exitError{code: exitAborted, err: err}
			}

			var items []harness.BatchItem
			for _, group := range []struct {
				paths  []string
				expect harness.Expect
			}{
				{args, harness.ExpectAny},
				{positive, harness.ExpectDetect},
				{negative, harness.ExpectReject},
			} {
				files, err := collectWAVs(group.paths)
				if err != nil {
					return &exitError{code: exitAborted, err: err}
				}
				for _, f := range files {
					items = append(items, harness.BatchItem{Source: wav.File{Path: f}, Expect: group.expect})
				}
			}
			if len(items) == 0 {
				return &exitError{code: exitAborted, err: errors.New("no WAV files to evaluate")}
			}

			bs, err := c.backendList(cfg)
			if err != nil {
				return &exitError{code: exitAborted, err: err}
			}

			slog.Info("batch starting", "files", len(items), "concurrency", concurrency)
			outcomes, err := harness.RunBatch(cmd.Context(), harness.FromConfig(cfg), items, bs, concurrency, c.harnessOptions()...)
			if err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			c.lastRun.Set(harness.Errors(outcomes))

			if err := writeBatch(c.out, c.format, outcomes); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			return batchExit(harness.Summarize(outcomes), len(positive)+len(negative) > 0)
		},
	}
	cmd.Flags().StringSliceVar(&positive, "positive", nil, "file or directory of recordings that must trigger a detection")
	cmd.Flags().StringSliceVar(&negative, "negative", nil, "file or directory of recordings that must not trigger a detection")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "maximum runs in parallel (0 = unlimited)")
	return cmd
}

func batchExit(s harness.Summary, judged bool) error {
	switch {
	case s.Aborted > 0:
		return &exitError{code: exitAborted, err: fmt.Errorf("%d of %d runs aborted", s.Aborted, s.Total)}
	case judged && s.Passed():
		return nil
	case judged:
		return &exitError{code: exitSilent}
	case s.Detected > 0:
		return nil
	default:
		return &exitError{code: exitSilent}
	}
}

// collectWAVs expands directories to the .wav files directly inside them and
// returns all files sorted, without duplicates.
func collectWAVs(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}
