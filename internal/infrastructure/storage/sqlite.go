package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS timeline_events (
	id TEXT PRIMARY KEY,
	vessel_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	severity TEXT NOT NULL,
	event_ts INTEGER NOT NULL,
	confidence_score REAL NOT NULL,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timeline_events_vessel ON timeline_events(vessel_id, event_ts);

CREATE TABLE IF NOT EXISTS processed_articles (
	external_id TEXT PRIMARY KEY,
	processed_at INTEGER NOT NULL
);
`

var sqliteDialect = dialect{
	name:        "sqlite",
	placeholder: sq.Question,
	schema:      sqliteSchema,
	inList: func(column string, ids []string) sq.Sqlizer {
		return sq.Eq{column: ids}
	},
}

// OpenSQLite opens (or creates) a database file; ":memory:" gives a private
// in-process database.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: every ":memory:" connection is a separate database, and
	// file databases serialize writers anyway.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}

	repo := newRepository(db, sqliteDialect, logger)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}
