// Package postgres provides a PostgreSQL-backed [history.Store].
//
// One row per run lives in the runs table; detection events are stored as a
// JSONB array on the row. [Migrate] creates the schema and is run by
// [NewStore].
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//	_ = store.Save(ctx, rec)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlRuns = `
CREATE TABLE IF NOT EXISTS runs (
    run_id       TEXT              PRIMARY KEY,
    started_at   TIMESTAMPTZ       NOT NULL DEFAULT now(),
    duration_ns  BIGINT            NOT NULL DEFAULT 0,
    source       TEXT              NOT NULL DEFAULT '',
    model        TEXT              NOT NULL DEFAULT '',
    backend      TEXT              NOT NULL DEFAULT '',
    threshold    DOUBLE PRECISION  NOT NULL DEFAULT 0,
    windows      INTEGER           NOT NULL DEFAULT 0,
    detected     BOOLEAN           NOT NULL DEFAULT false,
    stat_count   INTEGER           NOT NULL DEFAULT 0,
    stat_max     DOUBLE PRECISION  NOT NULL DEFAULT 0,
    stat_mean    DOUBLE PRECISION  NOT NULL DEFAULT 0,
    stat_min     DOUBLE PRECISION  NOT NULL DEFAULT 0,
    events       JSONB             NOT NULL DEFAULT '[]',
    error        TEXT              NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at
    ON runs (started_at DESC);

CREATE INDEX IF NOT EXISTS idx_runs_model
    ON runs (model, started_at DESC);
`

// Migrate creates the runs table and its indexes. It is idempotent and safe
// to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlRuns); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
