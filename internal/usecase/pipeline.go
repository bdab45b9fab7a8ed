package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"VesselOSINT/internal/correlation"
	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/metrics"
	"VesselOSINT/internal/ports"
)

// ErrDelivery marks a run whose events were stored but not fully delivered.
var ErrDelivery = errors.New("delivery failed")

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Only Vessels is required; every other adapter is skipped when nil.
type PipelineDeps struct {
	Source     ports.ArticleSource
	Repository ports.EventRepository
	Seen       ports.SeenStore
	Vessels    ports.VesselRegistry
	Publisher  ports.EventPublisher
	Exporter   ports.EventExporter
	Notifier   ports.Notifier
	ChatClient ports.ChatClient
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	Correlation correlation.Config
	// DigestSeverity is the lowest severity included in the notifier digest.
	DigestSeverity domain.Severity
}

// Report describes one pipeline run.
type Report struct {
	RunID            string                 `json:"run_id"`
	StartedAt        time.Time              `json:"started_at"`
	AlreadyProcessed int                    `json:"already_processed"`
	Summary          correlation.Summary    `json:"summary"`
	Events           []domain.TimelineEvent `json:"events"`
	Briefing         string                 `json:"briefing,omitempty"`
}

// Pipeline implements the article-correlation workflow.
type Pipeline struct {
	source     ports.ArticleSource
	repository ports.EventRepository
	seen       ports.SeenStore
	vessels    ports.VesselRegistry
	publisher  ports.EventPublisher
	exporter   ports.EventExporter
	notifier   ports.Notifier
	chatClient ports.ChatClient
	metrics    *metrics.Metrics
	logger     *slog.Logger

	correlator     *correlation.Correlator
	cfg            correlation.Config
	digestSeverity domain.Severity
	now            func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	severity := deps.DigestSeverity
	if severity.Rank() < 0 {
		severity = domain.SeverityHigh
	}
	return &Pipeline{
		source:         deps.Source,
		repository:     deps.Repository,
		seen:           deps.Seen,
		vessels:        deps.Vessels,
		publisher:      deps.Publisher,
		exporter:       deps.Exporter,
		notifier:       deps.Notifier,
		chatClient:     deps.ChatClient,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		correlator:     correlation.New(deps.Logger),
		cfg:            deps.Correlation,
		digestSeverity: severity,
		now:            time.Now,
	}
}

// ProcessDay fetches the day's articles from the configured source and correlates them.
func (p *Pipeline) ProcessDay(ctx context.Context, day time.Time) (Report, error) {
	if p.source == nil {
		return Report{}, nil
	}

	articles, err := p.source.FetchDaily(ctx, day)
	if err != nil {
		p.metrics.ObserveRun(err, 0)
		return Report{}, fmt.Errorf("fetch daily: %w", err)
	}
	return p.ProcessArticles(ctx, articles)
}

// ProcessArticles correlates an already-loaded batch. Storage and correlation
// failures abort the run. Delivery failures are wrapped in ErrDelivery and
// returned alongside a complete report.
func (p *Pipeline) ProcessArticles(ctx context.Context, articles []domain.Article) (Report, error) {
	started := p.now()
	report, err := p.run(ctx, articles, started)
	p.metrics.ObserveRun(err, p.now().Sub(started))
	return report, err
}

func (p *Pipeline) run(ctx context.Context, articles []domain.Article, started time.Time) (Report, error) {
	report := Report{RunID: uuid.NewString(), StartedAt: started}

	if p.vessels == nil {
		return report, &domain.ConfigurationError{Setting: "vessels", Reason: "vessel registry is required"}
	}

	fresh, skipped, err := p.filterSeen(ctx, articles)
	if err != nil {
		return report, err
	}
	report.AlreadyProcessed = skipped

	vessels, err := p.vessels.Vessels(ctx)
	if err != nil {
		return report, fmt.Errorf("load vessels: %w", err)
	}

	run, err := p.correlator.ProcessArticles(fresh, vessels, p.cfg)
	if err != nil {
		return report, fmt.Errorf("correlate: %w", err)
	}
	for _, warning := range run.Warnings {
		p.warn("article skipped", "run_id", report.RunID, "error", warning)
	}

	events, created, err := p.foldStored(ctx, run.Events)
	if err != nil {
		return report, err
	}
	report.Summary = run.Summary
	report.Summary.Tally(events)
	report.Events = events

	if p.repository != nil && len(events) > 0 {
		if err := p.repository.Save(ctx, events); err != nil {
			return report, fmt.Errorf("save events: %w", err)
		}
	}
	if p.seen != nil {
		if ids := processedIDs(fresh); len(ids) > 0 {
			if err := p.seen.MarkProcessed(ctx, ids); err != nil {
				return report, fmt.Errorf("mark processed: %w", err)
			}
		}
	}

	p.metrics.AddArticles(run.Summary.ArticlesProcessed, run.Summary.ArticlesSkipped+skipped)
	for _, event := range events {
		if !created[event.ID] {
			continue
		}
		p.metrics.IncrementEvent(string(event.EventType), string(event.Severity), event.RequiresReview())
	}

	deliveryErr := p.deliver(ctx, &report, vessels)

	p.info("correlation run finished",
		"run_id", report.RunID,
		"received", len(articles),
		"already_processed", skipped,
		"processed", report.Summary.ArticlesProcessed,
		"skipped", report.Summary.ArticlesSkipped,
		"events", report.Summary.EventsGenerated,
		"new_events", len(created),
		"review", report.Summary.EventsRequiringReview,
		"duration", p.now().Sub(started),
	)
	return report, deliveryErr
}

func (p *Pipeline) filterSeen(ctx context.Context, articles []domain.Article) ([]domain.Article, int, error) {
	if p.seen == nil || len(articles) == 0 {
		return articles, 0, nil
	}

	ids := make([]string, 0, len(articles))
	for _, article := range articles {
		if article.ID != "" {
			ids = append(ids, article.ID)
		}
	}
	if len(ids) == 0 {
		return articles, 0, nil
	}

	done, err := p.seen.AlreadyProcessed(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load processed: %w", err)
	}

	fresh := make([]domain.Article, 0, len(articles))
	skipped := 0
	for _, article := range articles {
		if article.ID != "" && done[article.ID] {
			skipped++
			continue
		}
		fresh = append(fresh, article)
	}
	return fresh, skipped, nil
}

// foldStored merges new evidence into events persisted by earlier runs with the
// same id. The returned set holds the ids that were not stored yet.
func (p *Pipeline) foldStored(ctx context.Context, events []domain.TimelineEvent) ([]domain.TimelineEvent, map[string]bool, error) {
	created := make(map[string]bool, len(events))
	if p.repository == nil {
		for _, event := range events {
			created[event.ID] = true
		}
		return events, created, nil
	}
	for i, event := range events {
		stored, err := p.repository.Get(ctx, event.ID)
		switch {
		case errors.Is(err, ports.ErrNotFound):
			created[event.ID] = true
			continue
		case err != nil:
			return nil, nil, fmt.Errorf("load event %s: %w", event.ID, err)
		}
		events[i] = correlation.MergeEvents(stored, event)
	}
	correlation.SortEvents(events)
	return events, created, nil
}

func (p *Pipeline) deliver(ctx context.Context, report *Report, vessels []domain.TrackedVessel) error {
	var errs []error

	if p.exporter != nil {
		if err := p.exporter.Export(ctx, report.Events, vesselNames(vessels)); err != nil {
			errs = append(errs, fmt.Errorf("export events: %w", err))
		}
	}

	if len(report.Events) == 0 {
		return deliveryError(errs)
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, report.Events); err != nil {
			errs = append(errs, fmt.Errorf("publish events: %w", err))
		}
	}

	if p.notifier != nil {
		if digest := buildDigestMessage(report.Events, p.digestSeverity); digest != "" {
			if err := p.notifier.PublishDigest(ctx, digest); err != nil {
				errs = append(errs, fmt.Errorf("publish digest: %w", err))
			}
		}
	}

	if p.chatClient != nil {
		briefing, err := p.briefing(ctx, report.Events)
		if err != nil {
			errs = append(errs, err)
		}
		report.Briefing = briefing
		if briefing != "" && p.notifier != nil {
			if err := p.notifier.PublishDigest(ctx, briefing); err != nil {
				errs = append(errs, fmt.Errorf("publish briefing: %w", err))
			}
		}
	}

	return deliveryError(errs)
}

func deliveryError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
}

func (p *Pipeline) briefing(ctx context.Context, events []domain.TimelineEvent) (string, error) {
	payload, err := buildDigestJSON(events)
	if err != nil {
		return "", fmt.Errorf("build chatgpt payload: %w", err)
	}
	briefing, err := p.chatClient.SendDigest(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("send digest to chatgpt: %w", err)
	}
	return briefing, nil
}

// processedIDs lists articles worth remembering; malformed ones stay eligible for a retry.
func processedIDs(articles []domain.Article) []string {
	ids := make([]string, 0, len(articles))
	for _, article := range articles {
		if article.Validate() == nil {
			ids = append(ids, article.ID)
		}
	}
	return ids
}

func vesselNames(vessels []domain.TrackedVessel) []string {
	names := make([]string, 0, len(vessels))
	for _, v := range vessels {
		if v.Name != "" {
			names = append(names, v.Name)
		}
	}
	return names
}

func buildDigestMessage(events []domain.TimelineEvent, minSeverity domain.Severity) string {
	var selected []domain.TimelineEvent
	for _, event := range events {
		if event.Severity.Rank() >= minSeverity.Rank() {
			selected = append(selected, event)
		}
	}
	if len(selected) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "VesselOSINT: %d new event(s)\n\n", len(selected))
	for _, event := range selected {
		fmt.Fprintf(&b, "- [%s] %s\n%s · %s · confidence %.2f (%s)\n",
			strings.ToUpper(string(event.Severity)),
			event.Title,
			event.EventDate.UTC().Format("2006-01-02"),
			event.EventType,
			event.ConfidenceScore,
			event.ConfidenceLevel(),
		)
		if event.RequiresReview() {
			b.WriteString("Requires analyst review\n")
		}
		if len(event.ProvenanceChain) > 0 && event.ProvenanceChain[0].SourceURL != "" {
			b.WriteString(event.ProvenanceChain[0].SourceURL)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildDigestJSON(events []domain.TimelineEvent) ([]byte, error) {
	type item struct {
		ID          string   `json:"id"`
		Vessel      string   `json:"vessel"`
		EventType   string   `json:"event_type"`
		Severity    string   `json:"severity"`
		Date        string   `json:"date"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Confidence  float64  `json:"confidence"`
		Sources     []string `json:"sources"`
	}

	payload := make([]item, 0, len(events))
	for _, event := range events {
		sources := make([]string, 0, len(event.ProvenanceChain))
		for _, p := range event.ProvenanceChain {
			if p.SourceURL != "" {
				sources = append(sources, p.SourceURL)
			}
		}
		payload = append(payload, item{
			ID:          event.ID,
			Vessel:      event.VesselName,
			EventType:   string(event.EventType),
			Severity:    string(event.Severity),
			Date:        event.EventDate.UTC().Format("2006-01-02"),
			Title:       event.Title,
			Description: event.Description,
			Confidence:  event.ConfidenceScore,
			Sources:     sources,
		})
	}

	return json.Marshal(payload)
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Info(msg, args...)
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, args...)
}
