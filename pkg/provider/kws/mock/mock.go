// Package mock provides test doubles for the kws package interfaces.
//
// Use Loader to verify which model references a backend was asked to load
// and to simulate initialisation failures. Use Scorer to script per-window
// scores and inspect the windows that were submitted.
//
// Example:
//
//	sc := &mock.Scorer{
//	    Script: []kws.RawScores{{"hey_nap": 0.1}, {"hey_nap": 0.9}},
//	}
//	ld := &mock.Loader{Scorer: sc}
//	scorer, _ := ld.Load(ctx, "hey_nap.tflite")
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// LoadCall records a single invocation of Loader.Load.
type LoadCall struct {
	// Model is the reference passed to Load.
	Model kws.ModelRef
}

// Loader is a mock implementation of kws.Loader.
type Loader struct {
	mu sync.Mutex

	// Scorer is returned by Load. If nil, Load returns a new default Scorer.
	Scorer kws.Scorer

	// NewScorer, if non-nil, is called on every Load to build a fresh
	// scorer. It takes precedence over Scorer.
	NewScorer func() kws.Scorer

	// LoadErr, if non-nil, is returned as the error from Load.
	LoadErr error

	// LoadCalls records every call to Load in order.
	LoadCalls []LoadCall
}

// Load records the call and returns Scorer, LoadErr.
func (l *Loader) Load(_ context.Context, model kws.ModelRef) (kws.Scorer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.LoadCalls = append(l.LoadCalls, LoadCall{Model: model})
	if l.LoadErr != nil {
		return nil, l.LoadErr
	}
	if l.NewScorer != nil {
		return l.NewScorer(), nil
	}
	if l.Scorer != nil {
		return l.Scorer, nil
	}
	return &Scorer{}, nil
}

// Calls returns the number of recorded Load calls. Thread-safe.
func (l *Loader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.LoadCalls)
}

// Ensure Loader implements kws.Loader at compile time.
var _ kws.Loader = (*Loader)(nil)

// ScoreCall records a single invocation of Scorer.Score.
type ScoreCall struct {
	// Window is a copy of the samples passed to Score.
	Window []int16
}

// Scorer is a mock implementation of kws.Scorer.
type Scorer struct {
	mu sync.Mutex

	// Script holds the scores returned by successive Score calls. Once the
	// script is exhausted, Default is returned.
	Script []kws.RawScores

	// Default is returned when Script is exhausted. A nil Default returns an
	// empty score map.
	Default kws.RawScores

	// Func, if non-nil, computes the result of every Score call and takes
	// precedence over Script and Default.
	Func func(index int, window []int16) (kws.RawScores, error)

	// FailAt, if positive, makes the FailAt-th Score call (1-based) return
	// ScoreErr. If zero, ScoreErr (when set) is returned by every call.
	FailAt int

	// ScoreErr is the error used together with FailAt.
	ScoreErr error

	// Labels is returned by Keywords.
	Labels []string

	// CloseErr, if non-nil, is returned by Close.
	CloseErr error

	// --- Call records ---

	// ScoreCalls records every call to Score in order.
	ScoreCalls []ScoreCall

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int
}

// Score records the call and returns the scripted result.
func (s *Scorer) Score(_ context.Context, window []int16) (kws.RawScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.ScoreCalls)
	s.ScoreCalls = append(s.ScoreCalls, ScoreCall{Window: slices.Clone(window)})

	if s.ScoreErr != nil && (s.FailAt == 0 || s.FailAt == idx+1) {
		return nil, s.ScoreErr
	}
	if s.Func != nil {
		return s.Func(idx, window)
	}
	if idx < len(s.Script) {
		return s.Script[idx], nil
	}
	if s.Default != nil {
		return s.Default, nil
	}
	return kws.RawScores{}, nil
}

// Keywords returns Labels.
func (s *Scorer) Keywords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.Labels)
}

// Close records the call and returns CloseErr.
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCallCount++
	return s.CloseErr
}

// Windows returns copies of every window scored so far. Thread-safe.
func (s *Scorer) Windows() [][]int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]int16, len(s.ScoreCalls))
	for i, c := range s.ScoreCalls {
		out[i] = c.Window
	}
	return out
}

// ResetCalls clears all recorded call history. Thread-safe.
func (s *Scorer) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoreCalls = nil
	s.CloseCallCount = 0
}

// Ensure Scorer implements kws.Scorer at compile time.
var _ kws.Scorer = (*Scorer)(nil)
