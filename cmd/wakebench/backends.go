package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/wakebench/internal/config"
	"github.com/MrWong99/wakebench/internal/resilience"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
	"github.com/MrWong99/wakebench/pkg/provider/kws/energy"
	"github.com/MrWong99/wakebench/pkg/provider/kws/onnx"
	"github.com/MrWong99/wakebench/pkg/provider/kws/tflite"
)

// ── Backend wiring ────────────────────────────────────────────────────────────

// registerBuiltinBackends wires the backends that ship with wakebench into
// reg. Each factory reads its entry's options and the shared keyword and
// window settings.
func registerBuiltinBackends(reg *config.Registry) {
	reg.RegisterBackend(string(kws.KindTFLite), func(entry config.BackendEntry, cfg *config.Config) (kws.Loader, error) {
		threads, err := entry.OptionInt("threads", 1)
		if err != nil {
			return nil, err
		}
		return tflite.New(
			tflite.WithThreads(threads),
			tflite.WithWindowSize(cfg.Harness.AnalysisWindowSize),
			tflite.WithKeywords(cfg.Keywords...),
		), nil
	})

	reg.RegisterBackend(string(kws.KindONNX), func(entry config.BackendEntry, cfg *config.Config) (kws.Loader, error) {
		lib, err := entry.OptionString("library_path", os.Getenv(envORTLibrary))
		if err != nil {
			return nil, err
		}
		input, err := entry.OptionString("input_name", "")
		if err != nil {
			return nil, err
		}
		output, err := entry.OptionString("output_name", "")
		if err != nil {
			return nil, err
		}
		return onnx.New(
			onnx.WithLibraryPath(lib),
			onnx.WithInputName(input),
			onnx.WithOutputName(output),
			onnx.WithWindowSize(cfg.Harness.AnalysisWindowSize),
			onnx.WithKeywords(cfg.Keywords...),
		), nil
	})

	reg.RegisterBackend(string(kws.KindEnergy), func(entry config.BackendEntry, cfg *config.Config) (kws.Loader, error) {
		threshold, err := entry.OptionFloat("energy_threshold", energy.DefaultThreshold)
		if err != nil {
			return nil, err
		}
		speech, err := entry.OptionInt("speech_windows", energy.DefaultSpeechWindows)
		if err != nil {
			return nil, err
		}
		silence, err := entry.OptionInt("silence_windows", energy.DefaultSilenceWindows)
		if err != nil {
			return nil, err
		}
		opts := []energy.Option{
			energy.WithThreshold(threshold),
			energy.WithSpeechWindows(speech),
			energy.WithSilenceWindows(silence),
		}
		if len(cfg.Keywords) > 0 {
			opts = append(opts, energy.WithKeyword(cfg.Keywords[0]))
		}
		return energy.New(opts...)
	})

	for _, name := range reg.Names() {
		slog.Debug("registered backend", "name", name)
	}
}

// ── backends command ──────────────────────────────────────────────────────────

func (c *cli) backendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "Probe every configured backend against the model",
		Long: `Load the model with every backend in the preference list, not only the
first that succeeds, and report which ones are usable on this machine.
Exits 0 when at least one backend loads the model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.currentConfig()
			if err := requireModel(cfg); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			bs, err := c.backendList(cfg)
			if err != nil {
				return &exitError{code: exitAborted, err: err}
			}

			probes := resilience.ProbeBackends(cmd.Context(), kws.ModelRef(cfg.Model), bs)
			if err := writeProbes(c.out, c.format, probes); err != nil {
				return &exitError{code: exitAborted, err: err}
			}
			for _, p := range probes {
				if p.OK() {
					return nil
				}
			}
			return &exitError{code: exitSilent}
		},
	}
}
