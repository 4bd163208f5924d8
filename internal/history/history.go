// Package history records the outcome of harness runs so detection behaviour
// can be compared across model revisions.
//
// [MemStore] keeps records for the lifetime of the process. The postgres
// subpackage persists them across invocations.
package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/MrWong99/wakebench/internal/detect"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// ErrNotFound is returned by [Store.Get] for an unknown run ID.
var ErrNotFound = errors.New("history: run not found")

// DefaultLimit is the number of records [Store.List] returns when limit <= 0.
const DefaultLimit = 20

// Record is one run as persisted.
type Record struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`

	Source  string   `json:"source" yaml:"source"`
	Model   string   `json:"model" yaml:"model"`
	Backend kws.Kind `json:"backend,omitempty" yaml:"backend,omitempty"`

	// Report is the final report, or the partial report of an aborted run.
	Report detect.Report `json:"report" yaml:"report"`

	// Error is the abort reason; empty for completed runs.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Detected reports whether the run recorded at least one detection.
func (r Record) Detected() bool { return r.Report.Detected() }

// Store persists run records.
type Store interface {
	// Save stores rec. Saving a RunID twice replaces the earlier record.
	Save(ctx context.Context, rec Record) error

	// List returns up to limit records, most recent first.
	List(ctx context.Context, limit int) ([]Record, error)

	// Get returns the record for runID or [ErrNotFound].
	Get(ctx context.Context, runID string) (Record, error)

	// Close releases resources.
	Close() error
}

// Compile-time assertion.
var _ Store = (*MemStore)(nil)

// MemStore is an in-process [Store]. Safe for concurrent use.
type MemStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore { return &MemStore{} }

// Save implements [Store].
func (m *MemStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Report.Events = slices.Clone(rec.Report.Events)
	if i := slices.IndexFunc(m.records, func(r Record) bool { return r.RunID == rec.RunID }); i >= 0 {
		m.records[i] = rec
		return nil
	}
	m.records = append(m.records, rec)
	return nil
}

// List implements [Store].
func (m *MemStore) List(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.records)
	slices.SortStableFunc(out, func(a, b Record) int { return b.StartedAt.Compare(a.StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Get implements [Store].
func (m *MemStore) Get(_ context.Context, runID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.RunID == runID {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Close implements [Store]. It is a no-op.
func (m *MemStore) Close() error { return nil }

// Ping always succeeds; it lets MemStore stand in for a database in health
// checks.
func (m *MemStore) Ping(context.Context) error { return nil }
