// Package onnx runs keyword-spotting models through ONNX Runtime using
// github.com/yalue/onnxruntime_go.
//
// The model is expected to take one float32 input of shape [1, W] holding the
// analysis window normalised to [-1, 1), and to produce one float32 output of
// shape [1, K], one score per keyword. Input and output names default to the
// model's first input and output.
//
// ONNX Runtime is a shared library loaded through cgo. Builds without cgo
// compile a loader that always fails with [kws.ErrRuntimeUnavailable], which
// lets the harness fall through to the next backend.
package onnx

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

// WithLibraryPath sets the path of the ONNX Runtime shared library
// (libonnxruntime.so, .dylib or .dll). Leave empty to use the runtime's
// default search.
func WithLibraryPath(path string) Option {
	return func(l *Loader) { l.libraryPath = path }
}

// WithInputName sets the model input tensor name.
func WithInputName(name string) Option {
	return func(l *Loader) { l.inputName = name }
}

// WithOutputName sets the model output tensor name.
func WithOutputName(name string) Option {
	return func(l *Loader) { l.outputName = name }
}

// WithWindowSize declares the analysis window length the harness will feed.
// Models whose input has a different fixed length are rejected at load time
// instead of failing on the first window.
func WithWindowSize(n int) Option {
	return func(l *Loader) { l.windowSize = n }
}

// WithKeywords sets the labels of the model outputs, in output order. When
// unset, a single-output model is labelled with the model's base name.
func WithKeywords(kw ...string) Option {
	return func(l *Loader) { l.keywords = kw }
}

// Loader opens ONNX models.
type Loader struct {
	libraryPath string
	inputName   string
	outputName  string
	keywords    []string
	windowSize  int
}

// New returns a Loader configured by opts.
func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load opens model in a new ONNX Runtime session.
func (l *Loader) Load(_ context.Context, model kws.ModelRef) (kws.Scorer, error) {
	if err := checkModel(model); err != nil {
		return nil, err
	}
	return l.open(model)
}

// checkModel rejects references this backend can never run, before the
// runtime is touched.
func checkModel(model kws.ModelRef) error {
	switch model.Ext() {
	case ".onnx":
	case "":
		return fmt.Errorf("%w: onnx backend needs a .onnx file, got logical name %q", kws.ErrUnsupportedModel, model)
	default:
		return fmt.Errorf("%w: onnx backend cannot run %q", kws.ErrUnsupportedModel, model)
	}
	if _, err := os.Stat(model.String()); err != nil {
		return fmt.Errorf("onnx: model: %w", err)
	}
	return nil
}

// labels returns the keyword labels for a model with n outputs.
func (l *Loader) labels(model kws.ModelRef, n int) ([]string, error) {
	if len(l.keywords) == 0 {
		if n > 1 {
			return nil, fmt.Errorf("onnx: model has %d outputs; configure keywords to label them", n)
		}
		return []string{model.Name()}, nil
	}
	if n > 0 && len(l.keywords) != n {
		return nil, fmt.Errorf("onnx: %d keywords configured but model has %d outputs", len(l.keywords), n)
	}
	return l.keywords, nil
}
