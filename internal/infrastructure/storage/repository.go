package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/ports"
)

// ErrNotFound is returned by Get when no event has the id.
var ErrNotFound = ports.ErrNotFound

const (
	eventsTable    = "timeline_events"
	processedTable = "processed_articles"
)

// dialect captures what differs between the SQL engines we run on.
type dialect struct {
	name        string
	placeholder sq.PlaceholderFormat
	schema      string
	// inList builds "column IN ids" the way the engine prefers.
	inList func(column string, ids []string) sq.Sqlizer
}

// Repository persists timeline events and processed article ids. Events are
// stored whole as a JSON payload; the other columns exist for filtering. The
// payload carries a display-rounded score, so confidence_score is the
// authoritative value on read.
type Repository struct {
	db      *sql.DB
	dialect dialect
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var (
	_ ports.EventRepository = (*Repository)(nil)
	_ ports.SeenStore       = (*Repository)(nil)
)

func newRepository(db *sql.DB, d dialect, logger *slog.Logger) *Repository {
	return &Repository{
		db:      db,
		dialect: d,
		builder: sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		logger:  logger,
	}
}

// Migrate creates the tables if they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.schema); err != nil {
		return fmt.Errorf("migrate %s schema: %w", r.dialect.name, err)
	}
	return nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save upserts events in a single transaction. Callers merge before saving;
// the stored payload is replaced, not merged.
func (r *Repository) Save(ctx context.Context, events []domain.TimelineEvent) error {
	if r.db == nil || len(events) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().UnixNano()
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return fmt.Errorf("save event: %w", err)
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.ID, err)
		}

		query, args, err := r.builder.Insert(eventsTable).
			Columns("id", "vessel_id", "event_type", "severity", "event_ts", "confidence_score", "payload", "updated_at").
			Values(event.ID, event.VesselID, string(event.EventType), string(event.Severity),
				event.EventDate.UTC().UnixNano(), event.ConfidenceScore, string(payload), now).
			Suffix(`ON CONFLICT (id) DO UPDATE
				SET vessel_id = EXCLUDED.vessel_id,
				    event_type = EXCLUDED.event_type,
				    severity = EXCLUDED.severity,
				    event_ts = EXCLUDED.event_ts,
				    confidence_score = EXCLUDED.confidence_score,
				    payload = EXCLUDED.payload,
				    updated_at = EXCLUDED.updated_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	r.debug("events saved", "count", len(events))
	return nil
}

// Get loads one event by id.
func (r *Repository) Get(ctx context.Context, id string) (domain.TimelineEvent, error) {
	query, args, err := r.builder.Select("payload", "confidence_score").From(eventsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("build get: %w", err)
	}

	var (
		payload string
		score   float64
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload, &score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TimelineEvent{}, ErrNotFound
		}
		return domain.TimelineEvent{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return decodeEvent(payload, score)
}

// List returns events matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter ports.EventFilter) ([]domain.TimelineEvent, error) {
	q := r.builder.Select("payload", "confidence_score").From(eventsTable).OrderBy("event_ts DESC", "id ASC")
	if filter.VesselID != "" {
		q = q.Where(sq.Eq{"vessel_id": filter.VesselID})
	}
	if filter.EventType != "" {
		q = q.Where(sq.Eq{"event_type": string(filter.EventType)})
	}
	if filter.MinScore > 0 {
		q = q.Where(sq.GtOrEq{"confidence_score": filter.MinScore})
	}
	if !filter.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"event_ts": filter.Since.UTC().UnixNano()})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	return r.queryEvents(ctx, query, args...)
}

// ListByVessel returns the timeline of one vessel, newest first.
func (r *Repository) ListByVessel(ctx context.Context, vesselID string) ([]domain.TimelineEvent, error) {
	return r.List(ctx, ports.EventFilter{VesselID: vesselID})
}

func (r *Repository) queryEvents(ctx context.Context, query string, args ...any) ([]domain.TimelineEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var (
			payload string
			score   float64
		)
		if err := rows.Scan(&payload, &score); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event, err := decodeEvent(payload, score)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return events, nil
}

// AlreadyProcessed returns a map with article ids that already exist in storage.
func (r *Repository) AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error) {
	if r.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := r.builder.Select("external_id").From(processedTable).
		Where(r.dialect.inList("external_id", ids)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build processed: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processed: %w", err)
	}
	defer rows.Close()

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

// MarkProcessed records article ids; repeated ids are ignored.
func (r *Repository) MarkProcessed(ctx context.Context, ids []string) error {
	if r.db == nil || len(ids) == 0 {
		return nil
	}

	now := time.Now().UTC().UnixNano()
	insert := r.builder.Insert(processedTable).Columns("external_id", "processed_at")
	for _, id := range ids {
		insert = insert.Values(id, now)
	}
	query, args, err := insert.Suffix("ON CONFLICT (external_id) DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build mark processed: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

func decodeEvent(payload string, score float64) (domain.TimelineEvent, error) {
	var event domain.TimelineEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.TimelineEvent{}, fmt.Errorf("decode event payload: %w", err)
	}
	event.ConfidenceScore = score
	return event, nil
}

func (r *Repository) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
