package harness

import (
	"errors"
	"fmt"

	"github.com/MrWong99/wakebench/internal/config"
	"github.com/MrWong99/wakebench/internal/detect"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Config holds the parameters of a single run.
type Config struct {
	// SampleRate is the rate the model expects, in Hz.
	SampleRate int

	// DeviceFrameSize is D, the number of samples per simulated driver read.
	DeviceFrameSize int

	// AnalysisWindowSize is W, the number of samples per model inference.
	AnalysisWindowSize int

	// Threshold is the score a keyword must strictly exceed to be detected.
	Threshold float64

	// Model is handed unchanged to every backend loader.
	Model kws.ModelRef
}

// DefaultConfig returns the firmware defaults with no model set.
func DefaultConfig() Config {
	return Config{
		SampleRate:         config.DefaultSampleRate,
		DeviceFrameSize:    config.DefaultDeviceFrameSize,
		AnalysisWindowSize: config.DefaultAnalysisWindowSize,
		Threshold:          detect.DefaultThreshold,
	}
}

// FromConfig builds a run configuration from a loaded application config.
func FromConfig(c *config.Config) Config {
	return Config{
		SampleRate:         c.Harness.SampleRate,
		DeviceFrameSize:    c.Harness.DeviceFrameSize,
		AnalysisWindowSize: c.Harness.AnalysisWindowSize,
		Threshold:          c.Harness.DetectionThreshold,
		Model:              kws.ModelRef(c.Model),
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("harness: sample rate must be positive, got %d", c.SampleRate))
	}
	if c.DeviceFrameSize <= 0 {
		errs = append(errs, fmt.Errorf("harness: device frame size must be positive, got %d", c.DeviceFrameSize))
	}
	if c.AnalysisWindowSize <= 0 {
		errs = append(errs, fmt.Errorf("harness: analysis window size must be positive, got %d", c.AnalysisWindowSize))
	}
	return errors.Join(errs...)
}
