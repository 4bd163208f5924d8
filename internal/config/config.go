// Package config provides the configuration schema, loader, and backend
// registry for wakebench.
package config

import (
	"fmt"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Default harness parameters, matching the embedded target: 16 kHz mono,
// 32 ms driver reads and 80 ms model windows.
const (
	DefaultSampleRate         = 16000
	DefaultDeviceFrameSize    = 512
	DefaultAnalysisWindowSize = 1280
	DefaultThreshold          = 0.5
)

// Config is the root configuration structure for wakebench.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Harness HarnessConfig `yaml:"harness"`

	// Model is the model reference: a path to a packaged model or a logical
	// model name.
	Model string `yaml:"model"`

	// Keywords labels the model outputs in order. Empty means a single
	// output labelled with the model's base name.
	Keywords []string `yaml:"keywords"`

	// Backends is the backend preference order. The first backend that can
	// load the model wins.
	Backends []BackendEntry `yaml:"backends"`

	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// HarnessConfig holds the buffering and detection parameters.
type HarnessConfig struct {
	// SampleRate is the rate, in Hz, the model expects. Sources at another
	// rate are resampled.
	SampleRate int `yaml:"sample_rate"`

	// DeviceFrameSize is the number of samples the device driver delivers
	// per read.
	DeviceFrameSize int `yaml:"device_frame_size"`

	// AnalysisWindowSize is the number of samples the model consumes per
	// inference.
	AnalysisWindowSize int `yaml:"analysis_window_size"`

	// DetectionThreshold is the score a keyword must strictly exceed.
	DetectionThreshold float64 `yaml:"detection_threshold"`
}

// BackendEntry configures one inference backend. Name is used to look up the
// constructor in the [Registry].
type BackendEntry struct {
	// Name selects the registered backend (e.g., "tflite", "onnx", "energy").
	Name string `yaml:"name"`

	// Options holds backend-specific values. Values may be strings, numbers,
	// booleans, or lists.
	Options map[string]any `yaml:"options"`
}

// HistoryConfig configures run history persistence.
type HistoryConfig struct {
	// PostgresDSN is the PostgreSQL connection string. When empty, history is
	// kept in memory for the lifetime of the process.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// MetricsConfig configures the metrics and health endpoint.
type MetricsConfig struct {
	// ListenAddr is the TCP address for /metrics, /healthz and /readyz
	// (e.g., ":9464"). Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// Default returns a configuration with every default applied and the
// default backend preference order.
func Default() *Config {
	cfg := newSeeded()
	cfg.ApplyDefaults()
	return cfg
}

// newSeeded returns a Config holding the defaults for fields whose zero value
// is meaningful. Decoding YAML on top of it keeps them unless the document
// sets them.
func newSeeded() *Config {
	return &Config{Harness: HarnessConfig{DetectionThreshold: DefaultThreshold}}
}

// ApplyDefaults fills zero-valued fields with their defaults. The backend
// list defaults to [kws.DefaultPreference]. DetectionThreshold is left alone
// since 0 is a valid threshold; [Default] and [LoadFromReader] seed it.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
	if c.Harness.SampleRate == 0 {
		c.Harness.SampleRate = DefaultSampleRate
	}
	if c.Harness.DeviceFrameSize == 0 {
		c.Harness.DeviceFrameSize = DefaultDeviceFrameSize
	}
	if c.Harness.AnalysisWindowSize == 0 {
		c.Harness.AnalysisWindowSize = DefaultAnalysisWindowSize
	}
	if len(c.Backends) == 0 {
		for _, k := range kws.DefaultPreference {
			c.Backends = append(c.Backends, BackendEntry{Name: string(k)})
		}
	}
}

// BackendNames returns the backend names in preference order.
func (c *Config) BackendNames() []string {
	names := make([]string, len(c.Backends))
	for i, b := range c.Backends {
		names[i] = b.Name
	}
	return names
}

// OptionString returns the string option key, or def when unset.
func (e BackendEntry) OptionString(key, def string) (string, error) {
	v, ok := e.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("config: backends[%s].options.%s: want string, got %T", e.Name, key, v)
	}
	return s, nil
}

// OptionInt returns the integer option key, or def when unset.
func (e BackendEntry) OptionInt(key string, def int) (int, error) {
	v, ok := e.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("config: backends[%s].options.%s: want integer, got %v", e.Name, key, v)
}

// OptionFloat returns the numeric option key, or def when unset.
func (e BackendEntry) OptionFloat(key string, def float64) (float64, error) {
	v, ok := e.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("config: backends[%s].options.%s: want number, got %T", e.Name, key, v)
}
