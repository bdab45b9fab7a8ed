package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/ports"
)

// DefaultSubjectPrefix is the root of all event subjects.
const DefaultSubjectPrefix = "osint.events"

// flushTimeout bounds the flush when the caller's context has no deadline.
const flushTimeout = 5 * time.Second

// Message headers set on every published event.
const (
	HeaderMsgID     = "Nats-Msg-Id"
	HeaderEventType = "Event-Type"
	HeaderSeverity  = "Severity"
)

var subjectToken = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

// Subject is where events of one vessel are published: <prefix>.<vessel_id>.
func Subject(prefix, vesselID string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + subjectToken.Replace(vesselID)
}

// Connect dials a NATS server with reconnect settings suited to a long-running service.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// Publisher sends timeline events as JSON, one message per event.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher wraps an open connection.
func NewPublisher(conn *nats.Conn, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}
}

// Publish sends all events and flushes. The event id goes into Nats-Msg-Id so a
// JetStream stream on the subject deduplicates re-published merges.
func (p *Publisher) Publish(ctx context.Context, events []domain.TimelineEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.ID, err)
		}
		msg := &nats.Msg{
			Subject: Subject(p.prefix, event.VesselID),
			Data:    data,
			Header:  nats.Header{},
		}
		msg.Header.Set(HeaderMsgID, event.ID)
		msg.Header.Set(HeaderEventType, string(event.EventType))
		msg.Header.Set(HeaderSeverity, string(event.Severity))

		if err := p.conn.PublishMsg(msg); err != nil {
			return fmt.Errorf("publish event %s: %w", event.ID, err)
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush events: %w", err)
	}
	p.debug("events published", "count", len(events), "prefix", p.prefix)
	return nil
}

func (p *Publisher) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
