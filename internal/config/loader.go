package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// ValidBackendNames lists the backends compiled into wakebench. Used by
// [Validate] to warn about unrecognised backend names.
var ValidBackendNames = []string{
	string(kws.KindTFLite),
	string(kws.KindONNX),
	string(kws.KindEnergy),
}

// Load reads the YAML configuration file at path, applies defaults and
// returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. An empty document yields the default configuration.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := newSeeded()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	h := cfg.Harness
	if h.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("harness.sample_rate must be positive, got %d", h.SampleRate))
	}
	if h.DeviceFrameSize <= 0 {
		errs = append(errs, fmt.Errorf("harness.device_frame_size must be positive, got %d", h.DeviceFrameSize))
	}
	if h.AnalysisWindowSize <= 0 {
		errs = append(errs, fmt.Errorf("harness.analysis_window_size must be positive, got %d", h.AnalysisWindowSize))
	}
	if math.IsNaN(h.DetectionThreshold) || math.IsInf(h.DetectionThreshold, 0) {
		errs = append(errs, fmt.Errorf("harness.detection_threshold must be a finite number, got %v", h.DetectionThreshold))
	}
	if h.DeviceFrameSize > 0 && h.AnalysisWindowSize > 0 && h.AnalysisWindowSize%h.DeviceFrameSize != 0 {
		slog.Debug("analysis window is not a multiple of the device frame; windows will straddle frames",
			"device_frame_size", h.DeviceFrameSize,
			"analysis_window_size", h.AnalysisWindowSize,
		)
	}

	seen := make(map[string]int, len(cfg.Backends))
	for i, b := range cfg.Backends {
		prefix := fmt.Sprintf("backends[%d]", i)
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[b.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of backends[%d]", prefix, b.Name, prev))
		}
		seen[b.Name] = i
		validateBackendName(b.Name)
	}

	kwSeen := make(map[string]struct{}, len(cfg.Keywords))
	for i, kw := range cfg.Keywords {
		if kw == "" {
			errs = append(errs, fmt.Errorf("keywords[%d] is empty", i))
			continue
		}
		if _, dup := kwSeen[kw]; dup {
			errs = append(errs, fmt.Errorf("keywords[%d] %q is a duplicate", i, kw))
		}
		kwSeen[kw] = struct{}{}
	}

	return errors.Join(errs...)
}

// validateBackendName logs a warning if name is not a built-in backend.
// Unknown names are not an error so that callers can register their own.
func validateBackendName(name string) {
	if slices.Contains(ValidBackendNames, name) {
		return
	}
	slog.Warn("unknown backend name; may be a typo or a custom registration",
		"name", name,
		"known", ValidBackendNames,
	)
}
