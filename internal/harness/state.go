package harness

import (
	"log/slog"

	"github.com/MrWong99/wakebench/pkg/audio"
)

// State is the lifecycle position of a run.
type State int

const (
	StateIdle State = iota
	StateSourceLoaded
	StateBackendSelected
	StateStreaming
	StateReported
)

// String returns the state name, e.g. "Streaming".
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSourceLoaded:
		return "SourceLoaded"
	case StateBackendSelected:
		return "BackendSelected"
	case StateStreaming:
		return "Streaming"
	case StateReported:
		return "Reported"
	default:
		return "Unknown"
	}
}

// Observer receives run progress. Calls happen synchronously on the run's
// goroutine; implementations must return quickly.
type Observer interface {
	// StateChanged is called on every transition.
	StateChanged(runID string, from, to State)

	// WindowScored is called once per window after its scores are resolved.
	WindowScored(runID string, w audio.Window, offset float64, scores map[string]float64)
}

// NopObserver ignores all progress.
type NopObserver struct{}

func (NopObserver) StateChanged(string, State, State)                             {}
func (NopObserver) WindowScored(string, audio.Window, float64, map[string]float64) {}

// LogObserver logs transitions and per-window scores at debug level.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// StateChanged implements [Observer].
func (o LogObserver) StateChanged(runID string, from, to State) {
	o.logger().Debug("harness state", "run_id", runID, "from", from.String(), "to", to.String())
}

// WindowScored implements [Observer].
func (o LogObserver) WindowScored(runID string, w audio.Window, offset float64, scores map[string]float64) {
	o.logger().Debug("window scored",
		"run_id", runID,
		"window", w.Index,
		"offset_sec", offset,
		"padded", w.Padded,
		"scores", scores,
	)
}
