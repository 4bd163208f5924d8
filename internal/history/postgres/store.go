package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/wakebench/internal/detect"
	"github.com/MrWong99/wakebench/internal/history"
	"github.com/MrWong99/wakebench/pkg/provider/kws"
)

// Compile-time interface check.
var _ history.Store = (*Store)(nil)

// Store is a PostgreSQL-backed run history. Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping verifies the database is reachable. Used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Save implements [history.Store]. An existing row with the same run ID is
// overwritten.
func (s *Store) Save(ctx context.Context, rec history.Record) error {
	const q = `
		INSERT INTO runs
		    (run_id, started_at, duration_ns, source, model, backend, threshold, windows,
		     detected, stat_count, stat_max, stat_mean, stat_min, events, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (run_id) DO UPDATE SET
		    started_at  = EXCLUDED.started_at,
		    duration_ns = EXCLUDED.duration_ns,
		    source      = EXCLUDED.source,
		    model       = EXCLUDED.model,
		    backend     = EXCLUDED.backend,
		    threshold   = EXCLUDED.threshold,
		    windows     = EXCLUDED.windows,
		    detected    = EXCLUDED.detected,
		    stat_count  = EXCLUDED.stat_count,
		    stat_max    = EXCLUDED.stat_max,
		    stat_mean   = EXCLUDED.stat_mean,
		    stat_min    = EXCLUDED.stat_min,
		    events      = EXCLUDED.events,
		    error       = EXCLUDED.error`

	events := rec.Report.Events
	if events == nil {
		events = []detect.Event{}
	}
	eventsJSON, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("history store: encode events: %w", err)
	}

	st := rec.Report.Stats
	_, err = s.pool.Exec(ctx, q,
		rec.RunID,
		rec.StartedAt,
		rec.Duration.Nanoseconds(),
		rec.Source,
		rec.Model,
		string(rec.Backend),
		rec.Report.Threshold,
		rec.Report.Windows,
		rec.Detected(),
		st.Count,
		st.Max,
		st.Mean,
		st.Min,
		eventsJSON,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("history store: save %s: %w", rec.RunID, err)
	}
	return nil
}

const selectColumns = `
		SELECT run_id, started_at, duration_ns, source, model, backend, threshold, windows,
		       stat_count, stat_max, stat_mean, stat_min, events, error
		FROM   runs`

// List implements [history.Store].
func (s *Store) List(ctx context.Context, limit int) ([]history.Record, error) {
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	rows, err := s.pool.Query(ctx, selectColumns+`
		ORDER  BY started_at DESC
		LIMIT  $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("history store: list: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history store: list: %w", err)
	}
	return out, nil
}

// Get implements [history.Store].
func (s *Store) Get(ctx context.Context, runID string) (history.Record, error) {
	row := s.pool.QueryRow(ctx, selectColumns+`
		WHERE  run_id = $1`, runID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return history.Record{}, history.ErrNotFound
	}
	return rec, err
}

func scanRecord(row pgx.Row) (history.Record, error) {
	var (
		rec        history.Record
		durationNS int64
		backend    string
		eventsJSON []byte
		st         detect.Stats
	)
	err := row.Scan(
		&rec.RunID,
		&rec.StartedAt,
		&durationNS,
		&rec.Source,
		&rec.Model,
		&backend,
		&rec.Report.Threshold,
		&rec.Report.Windows,
		&st.Count,
		&st.Max,
		&st.Mean,
		&st.Min,
		&eventsJSON,
		&rec.Error,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("history store: scan: %w", err)
	}
	rec.Duration = time.Duration(durationNS)
	rec.Backend = kws.Kind(backend)
	rec.Report.Stats = st
	if err := json.Unmarshal(eventsJSON, &rec.Report.Events); err != nil {
		return rec, fmt.Errorf("history store: decode events of %s: %w", rec.RunID, err)
	}
	return rec, nil
}
