// Package detect turns per-window keyword scores into detection events and
// run statistics.
//
// An [Evaluator] is fed one resolved score map per analysis window, in window
// order. Every score above the threshold becomes an [Event]; every score,
// detected or not, contributes to the [Stats]. The evaluator belongs to a
// single run and is not safe for concurrent use.
package detect

import (
	"math"
	"slices"

	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// DefaultThreshold is the score a keyword must exceed to count as detected.
const DefaultThreshold = 0.5

// Event is one keyword exceeding the threshold in one window.
type Event struct {
	// Offset is the window's start time in seconds from the beginning of
	// the recording.
	Offset float64 `json:"offset_sec" yaml:"offset_sec"`

	Keyword string  `json:"keyword" yaml:"keyword"`
	Score   float64 `json:"score" yaml:"score"`
}

// Stats summarises every score entry observed during a run, across all
// keywords. All fields are zero when nothing was observed.
type Stats struct {
	Count int     `json:"count" yaml:"count"`
	Max   float64 `json:"max" yaml:"max"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Min   float64 `json:"min" yaml:"min"`
}

// Report is the outcome of a run.
type Report struct {
	// Threshold is the detection threshold the report was evaluated with.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Windows is the number of analysis windows scored.
	Windows int `json:"windows" yaml:"windows"`

	// Events lists detections in window order; within one window, in
	// ascending keyword order.
	Events []Event `json:"events" yaml:"events"`

	Stats Stats `json:"stats" yaml:"stats"`
}

// Detected reports whether at least one event was recorded.
func (r Report) Detected() bool { return len(r.Events) > 0 }

// Keywords returns the distinct keywords that were detected, sorted.
func (r Report) Keywords() []string {
	seen := make(map[string]struct{}, len(r.Events))
	for _, e := range r.Events {
		seen[e.Keyword] = struct{}{}
	}
	return kws.SortedKeywords(seen)
}

// Success is the run's pass/fail policy: a run succeeds when the wake word
// was heard at least once.
func Success(r Report) bool { return r.Detected() }

// Evaluator accumulates events and statistics over a run.
type Evaluator struct {
	threshold float64
	windows   int
	events    []Event

	count int
	sum   float64
	max   float64
	min   float64
}

// NewEvaluator returns an Evaluator that records an event for every score
// strictly greater than threshold.
func NewEvaluator(threshold float64) *Evaluator {
	return &Evaluator{threshold: threshold}
}

// Threshold returns the configured detection threshold.
func (e *Evaluator) Threshold() float64 { return e.threshold }

// Observe records the scores of the window starting at offset seconds.
// Keywords are visited in ascending order so reports are reproducible.
func (e *Evaluator) Observe(offset float64, scores map[string]float64) {
	e.windows++
	for _, kw := range kws.SortedKeywords(scores) {
		score := scores[kw]
		if e.count == 0 {
			e.max, e.min = score, score
		} else {
			e.max = math.Max(e.max, score)
			e.min = math.Min(e.min, score)
		}
		e.count++
		e.sum += score
		if score > e.threshold {
			e.events = append(e.events, Event{Offset: offset, Keyword: kw, Score: score})
		}
	}
}

// Snapshot returns the report accumulated so far. The evaluator can keep
// observing afterwards.
func (e *Evaluator) Snapshot() Report {
	r := Report{
		Threshold: e.threshold,
		Windows:   e.windows,
		Events:    slices.Clone(e.events),
	}
	if e.count > 0 {
		r.Stats = Stats{
			Count: e.count,
			Max:   e.max,
			Mean:  e.sum / float64(e.count),
			Min:   e.min,
		}
	}
	if r.Events == nil {
		r.Events = []Event{}
	}
	return r
}

// Finalize returns the completed report.
func (e *Evaluator) Finalize() Report { return e.Snapshot() }
