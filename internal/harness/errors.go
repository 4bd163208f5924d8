package harness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/wakebench/internal/detect"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

var (
	// ErrSourceUnavailable means the audio source could not be read or
	// decoded. Nothing was scored.
	ErrSourceUnavailable = errors.New("harness: audio source unavailable")

	// ErrNoBackendAvailable means every backend in the preference list
	// failed to load the model.
	ErrNoBackendAvailable = errors.New("harness: no inference backend available")

	// ErrScoringFailure means the selected backend failed while scoring a
	// window. The run is aborted; backends are not switched mid-stream.
	ErrScoringFailure = errors.New("harness: scoring failure")

	// ErrMalformedScoreMap means a backend returned a score that could not
	// be resolved to a number. It is a kind of scoring failure:
	// errors.Is(ErrMalformedScoreMap, ErrScoringFailure) holds.
	ErrMalformedScoreMap error = malformedScoreMapError{}
)

type malformedScoreMapError struct{}

func (malformedScoreMapError) Error() string { return "harness: malformed score map" }

func (malformedScoreMapError) Is(target error) bool { return target == ErrScoringFailure }

// RunError describes an aborted run: the state the harness was in, the
// backend in use and the window being processed.
type RunError struct {
	// State is the last state the run reached before failing.
	State State

	// Backend is the selected backend kind; empty before selection.
	Backend kws.Kind

	// Window is the index of the window being scored, or -1 when the
	// failure happened outside streaming.
	Window int

	// Err is the cause. It wraps one of the package sentinels.
	Err error

	// Partial is the report accumulated up to the failure.
	Partial detect.Report
}

// Error formats the cause followed by its location in the run.
func (e *RunError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	fmt.Fprintf(&b, " (state=%s", e.State)
	if e.Backend != "" {
		fmt.Fprintf(&b, " backend=%s", e.Backend)
	}
	if e.Window >= 0 {
		fmt.Fprintf(&b, " window=%d", e.Window)
	}
	b.WriteByte(')')
	return b.String()
}

// Unwrap returns the cause.
func (e *RunError) Unwrap() error { return e.Err }
