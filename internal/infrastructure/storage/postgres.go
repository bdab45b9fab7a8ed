package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS timeline_events (
	id TEXT PRIMARY KEY,
	vessel_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	event_ts BIGINT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	payload JSONB NOT NULL,
	updated_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timeline_events_vessel ON timeline_events(vessel_id, event_ts DESC);

CREATE TABLE IF NOT EXISTS processed_articles (
	external_id TEXT PRIMARY KEY,
	processed_at BIGINT NOT NULL
);
`

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: sq.Dollar,
	schema:      postgresSchema,
	inList: func(column string, ids []string) sq.Sqlizer {
		return sq.Expr(column+" = ANY(?)", pq.StringArray(ids))
	},
}

// NewPostgresRepository wires an existing Postgres handle.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *Repository {
	return newRepository(db, postgresDialect, logger)
}

// OpenPostgres connects with lib/pq and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := NewPostgresRepository(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}
