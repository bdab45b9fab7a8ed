package ports

import (
	"context"
	"errors"
	"time"

	"VesselOSINT/internal/domain"
)

// ErrNotFound is returned by repositories when a lookup has no row.
var ErrNotFound = errors.New("not found")

// ArticleSource pulls fresh articles from upstream providers.
type ArticleSource interface {
	FetchDaily(ctx context.Context, day time.Time) ([]domain.Article, error)
}

// EventFilter narrows List queries; zero values mean no restriction.
type EventFilter struct {
	VesselID  string
	EventType domain.EventType
	MinScore  float64
	Since     time.Time
	Limit     int
}

// EventRepository persists timeline events keyed by their merge id.
type EventRepository interface {
	Save(ctx context.Context, events []domain.TimelineEvent) error
	Get(ctx context.Context, id string) (domain.TimelineEvent, error)
	List(ctx context.Context, filter EventFilter) ([]domain.TimelineEvent, error)
	ListByVessel(ctx context.Context, vesselID string) ([]domain.TimelineEvent, error)
}

// SeenStore remembers which article ids have already been correlated.
type SeenStore interface {
	AlreadyProcessed(ctx context.Context, ids []string) (map[string]bool, error)
	MarkProcessed(ctx context.Context, ids []string) error
}

// VesselRegistry provides the current roster of tracked vessels.
type VesselRegistry interface {
	Vessels(ctx context.Context) ([]domain.TrackedVessel, error)
}

// EventPublisher fans generated events out to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.TimelineEvent) error
}

// EventExporter writes a run's events, with the names of the tracked vessels, to a durable artifact.
type EventExporter interface {
	Export(ctx context.Context, events []domain.TimelineEvent, vessels []string) error
}

// Notifier streams selected digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// ChatClient pushes structured digests to LLM APIs (e.g., ChatGPT) and returns the briefing.
type ChatClient interface {
	SendDigest(ctx context.Context, payload []byte) (string, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
