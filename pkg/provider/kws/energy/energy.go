// Package energy implements the firmware's interim wake-word detector: an RMS
// energy gate that fires when a run of loud windows is followed by a short
// run of quiet ones. It needs no model file or inference runtime, so it is
// the backend of last resort and the reference for what the device does
// before a trained model is flashed.
package energy

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Firmware defaults. The device compares raw int16 RMS against 5.0 and needs
// three loud chunks followed by two quiet ones.
const (
	DefaultThreshold      = 5.0
	DefaultSpeechWindows  = 3
	DefaultSilenceWindows = 2
)

// Compile-time assertions.
var (
	_ kws.Loader = (*Loader)(nil)
	_ kws.Scorer = (*Scorer)(nil)
)

// Option is a functional option for configuring a Loader.
type Option func(*Loader)

// WithThreshold sets the RMS level, in raw int16 units, above which a window
// counts as speech.
func WithThreshold(rms float64) Option {
	return func(l *Loader) { l.threshold = rms }
}

// WithSpeechWindows sets how many speech windows must be seen before a
// trailing silence can trigger a detection.
func WithSpeechWindows(n int) Option {
	return func(l *Loader) { l.speechWindows = n }
}

// WithSilenceWindows sets how many silent windows complete a detection.
func WithSilenceWindows(n int) Option {
	return func(l *Loader) { l.silenceWindows = n }
}

// WithKeyword sets the label reported in score maps. Defaults to the model
// reference's base name, or "wake" when the reference is empty.
func WithKeyword(kw string) Option {
	return func(l *Loader) { l.keyword = kw }
}

// Loader builds energy scorers. It never fails for a valid configuration.
type Loader struct {
	threshold      float64
	speechWindows  int
	silenceWindows int
	keyword        string
}

// New returns a Loader with firmware defaults, modified by opts.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		threshold:      DefaultThreshold,
		speechWindows:  DefaultSpeechWindows,
		silenceWindows: DefaultSilenceWindows,
	}
	for _, o := range opts {
		o(l)
	}
	if l.threshold < 0 {
		return nil, fmt.Errorf("energy: threshold must be non-negative, got %v", l.threshold)
	}
	if l.speechWindows < 1 || l.silenceWindows < 1 {
		return nil, fmt.Errorf("energy: speech and silence window counts must be at least 1, got %d/%d",
			l.speechWindows, l.silenceWindows)
	}
	return l, nil
}

// Load returns a fresh Scorer. The model reference only provides the keyword
// label; no file is read.
func (l *Loader) Load(_ context.Context, model kws.ModelRef) (kws.Scorer, error) {
	kw := l.keyword
	if kw == "" {
		kw = model.Name()
	}
	if kw == "" || kw == "." {
		kw = "wake"
	}
	return &Scorer{
		keyword:        kw,
		threshold:      l.threshold,
		speechWindows:  l.speechWindows,
		silenceWindows: l.silenceWindows,
	}, nil
}

// Scorer tracks speech and silence runs across windows of one stream.
type Scorer struct {
	keyword        string
	threshold      float64
	speechWindows  int
	silenceWindows int

	mu      sync.Mutex
	speech  int
	silence int
	closed  bool
}

// Score returns 1.0 for the keyword when this window completes a
// speech-then-silence pattern, and 0.0 otherwise.
func (s *Scorer) Score(_ context.Context, window []int16) (kws.RawScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, kws.ErrClosed
	}

	score := float32(0)
	if RMS(window) > s.threshold {
		s.speech++
		s.silence = 0
	} else {
		s.silence++
		// Counters are only cleared on a trigger, as on the device.
		if s.speech >= s.speechWindows && s.silence >= s.silenceWindows {
			score = 1
			s.speech = 0
			s.silence = 0
		}
	}
	return kws.RawScores{s.keyword: score}, nil
}

// Keywords returns the single keyword label.
func (s *Scorer) Keywords() []string { return []string{s.keyword} }

// Close marks the scorer closed.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// RMS returns the root-mean-square level of samples in raw int16 units.
// An empty slice has level 0.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
