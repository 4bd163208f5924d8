// Package kws defines the Scorer interface for keyword-spotting (wake-word)
// inference backends.
//
// A backend wraps one inference runtime and model format (TensorFlow Lite,
// ONNX Runtime, or the firmware's energy detector) behind a uniform contract:
// given one fixed-size analysis window of 16-bit PCM samples, return one score
// per keyword the model knows. The model itself is opaque to the rest of the
// harness.
//
// Backends are constructed through a [Loader]. A loader that cannot serve a
// model (runtime missing, wrong file format, file not found) returns an error
// and the harness moves on to the next backend kind in its preference list;
// see internal/resilience.
//
// A Scorer may keep state between windows (streaming models usually do), so a
// Scorer belongs to exactly one run and must not be shared across goroutines.
package kws

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

// Kind names an inference backend implementation.
type Kind string

const (
	// KindTFLite runs TensorFlow Lite flatbuffer models, the format deployed
	// to the embedded target.
	KindTFLite Kind = "tflite"

	// KindONNX runs ONNX models through ONNX Runtime.
	KindONNX Kind = "onnx"

	// KindEnergy is the firmware's RMS speech-then-silence detector. It needs
	// no model file and is always available.
	KindEnergy Kind = "energy"
)

// DefaultPreference is the backend order used when none is configured:
// the deployment format first, ONNX as fallback.
var DefaultPreference = []Kind{KindTFLite, KindONNX}

// IsValid reports whether k is a built-in backend kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindTFLite, KindONNX, KindEnergy:
		return true
	}
	return false
}

var (
	// ErrRuntimeUnavailable is returned by loaders whose inference runtime is
	// not compiled in or cannot be initialised on this machine.
	ErrRuntimeUnavailable = errors.New("kws: inference runtime unavailable")

	// ErrUnsupportedModel is returned by loaders handed a model in a format
	// they cannot execute.
	ErrUnsupportedModel = errors.New("kws: unsupported model format")

	// ErrClosed is returned by Score after Close.
	ErrClosed = errors.New("kws: scorer closed")
)

// ModelRef identifies a classification model: either a filesystem path to a
// packaged model or a logical pretrained-model name such as "hey_jarvis".
type ModelRef string

// Ext returns the lowercase file extension of the reference, including the
// dot, or "" for logical names.
func (m ModelRef) Ext() string {
	return strings.ToLower(filepath.Ext(string(m)))
}

// Name returns the model's base name without directory or extension. It is
// the default keyword label for single-output models, e.g. "hey_nap" for
// "models/hey_nap.tflite".
func (m ModelRef) Name() string {
	base := filepath.Base(string(m))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// String returns the reference as given.
func (m ModelRef) String() string { return string(m) }

// Scorer runs a loaded model over analysis windows.
type Scorer interface {
	// Score classifies one analysis window and returns the raw per-keyword
	// scores. window has exactly the harness's analysis window size. Returns
	// an error if inference fails; the harness treats that as fatal for the
	// run.
	Score(ctx context.Context, window []int16) (RawScores, error)

	// Keywords returns the keyword labels this scorer reports, in model
	// output order.
	Keywords() []string

	// Close releases runtime resources. Calling Close more than once is safe.
	Close() error
}

// Loader constructs a Scorer for a model reference. Each backend kind
// provides one. Load must not leave resources allocated when it fails.
type Loader interface {
	Load(ctx context.Context, model ModelRef) (Scorer, error)
}

// LoaderFunc adapts a plain function to the [Loader] interface.
type LoaderFunc func(ctx context.Context, model ModelRef) (Scorer, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, model ModelRef) (Scorer, error) {
	return f(ctx, model)
}

// Backend pairs a loader with the kind it implements. An ordered slice of
// Backends is a preference list.
type Backend struct {
	Kind   Kind
	Loader Loader
}
