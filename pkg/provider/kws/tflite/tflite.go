// Package tflite runs keyword-spotting models in the TensorFlow Lite
// flatbuffer format, the format flashed to the embedded target, using
// github.com/mattn/go-tflite.
//
// The model's first input receives one analysis window, either as float32
// normalised to [-1, 1) or as raw int16 samples depending on the tensor type.
// The first output must be float32 with one element per keyword.
//
// The TensorFlow Lite C library is linked through cgo. Builds without cgo
// compile a loader that always fails with [kws.ErrRuntimeUnavailable].
package tflite

import (
	"context"
	"fmt"
	"os"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Compile-time assertion.
var _ kws.Loader = (*Loader)(nil)

// Option is a functional option for configuring a Loader.
type Option func(*Loader)

// WithThreads sets the interpreter thread count. Defaults to 1, matching the
// single inference task on the device.
func WithThreads(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.threads = n
		}
	}
}

// WithWindowSize declares the analysis window length the harness will feed.
// Models with a different input length are rejected at load time.
func WithWindowSize(n int) Option {
	return func(l *Loader) { l.windowSize = n }
}

// WithKeywords sets the labels of the model outputs, in output order. When
// unset, a single-output model is labelled with the model's base name.
func WithKeywords(kw ...string) Option {
	return func(l *Loader) { l.keywords = kw }
}

// Loader opens TFLite models.
type Loader struct {
	threads    int
	windowSize int
	keywords   []string
}

// New returns a Loader configured by opts.
func New(opts ...Option) *Loader {
	l := &Loader{threads: 1}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load builds an interpreter for model and allocates its tensors.
func (l *Loader) Load(_ context.Context, model kws.ModelRef) (kws.Scorer, error) {
	if err := checkModel(model); err != nil {
		return nil, err
	}
	return l.open(model)
}

func checkModel(model kws.ModelRef) error {
	switch model.Ext() {
	case ".tflite":
	case "":
		return fmt.Errorf("%w: tflite backend needs a .tflite file, got logical name %q", kws.ErrUnsupportedModel, model)
	default:
		return fmt.Errorf("%w: tflite backend cannot run %q", kws.ErrUnsupportedModel, model)
	}
	if _, err := os.Stat(model.String()); err != nil {
		return fmt.Errorf("tflite: model: %w", err)
	}
	return nil
}

// labels returns the keyword labels for an output of n elements.
func (l *Loader) labels(model kws.ModelRef, n int) ([]string, error) {
	if len(l.keywords) == 0 {
		if n != 1 {
			return nil, fmt.Errorf("tflite: model output has %d elements; configure keywords to label them", n)
		}
		return []string{model.Name()}, nil
	}
	if len(l.keywords) != n {
		return nil, fmt.Errorf("tflite: %d keywords configured but model output has %d elements", len(l.keywords), n)
	}
	return l.keywords, nil
}
