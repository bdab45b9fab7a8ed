package correlation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/extraction"
	"VesselOSINT/internal/scoring"
)

// DefaultGenerationThreshold is the minimum pair score that produces an event.
const DefaultGenerationThreshold = 0.30

const (
	maxTitleRunes   = 100
	maxSummaryTerms = 5
)

// Config drives one correlation run.
type Config struct {
	// GenerationThreshold gates event creation. Scores between it and the
	// review threshold still produce events, flagged for review.
	GenerationThreshold float64
	Weights             scoring.Weights
	// ReferenceTime pins article age; zero measures against each article's retrieval time.
	ReferenceTime time.Time
	Dictionaries  []extraction.Dictionary
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		GenerationThreshold: DefaultGenerationThreshold,
		Weights:             scoring.DefaultWeights(),
	}
}

// Validate checks the threshold; weights are checked by the scorer.
func (c Config) Validate() error {
	if math.IsNaN(c.GenerationThreshold) || c.GenerationThreshold < 0 || c.GenerationThreshold > 1 {
		return &domain.ConfigurationError{
			Setting: "generation_threshold",
			Reason:  fmt.Sprintf("must lie in [0,1], got %v", c.GenerationThreshold),
		}
	}
	return nil
}

// Run is the output of one batch.
type Run struct {
	Events  []domain.TimelineEvent
	Summary Summary
	// Warnings holds one *domain.ExtractionWarning per skipped article.
	Warnings []error
}

// Correlator turns articles and a vessel roster into timeline events.
// It keeps no state between calls.
type Correlator struct {
	logger *slog.Logger
}

// New creates a Correlator; logger may be nil.
func New(logger *slog.Logger) *Correlator {
	return &Correlator{logger: logger}
}

// ProcessArticles runs extraction, scoring, event synthesis and merging over a batch.
// Malformed records are skipped and reported in the summary; a configuration
// error aborts the run.
func (c *Correlator) ProcessArticles(articles []domain.Article, vessels []domain.TrackedVessel, cfg Config) (Run, error) {
	if err := cfg.Validate(); err != nil {
		return Run{}, err
	}
	var opts []scoring.Option
	if !cfg.ReferenceTime.IsZero() {
		opts = append(opts, scoring.WithReferenceTime(cfg.ReferenceTime))
	}
	scorer, err := scoring.New(cfg.Weights, opts...)
	if err != nil {
		return Run{}, err
	}

	run := Run{Summary: Summary{ArticlesReceived: len(articles), Errors: []RunError{}}}

	roster := c.roster(vessels, &run.Summary)
	run.Summary.VesselsTracked = len(roster)
	extractor := extraction.New(roster,
		extraction.WithDictionaries(cfg.Dictionaries...),
		extraction.WithLogger(c.logger),
	)

	index := make(map[string]int)
	var candidates []domain.TimelineEvent
	seenArticles := make(map[string]struct{}, len(articles))

	for _, article := range articles {
		if _, dup := seenArticles[article.ID]; dup && article.ID != "" {
			c.skip(&run, ErrorDuplicateArticle, article.ID, &domain.ValidationError{
				Subject: "article " + article.ID, Field: "id", Reason: "is duplicated in batch",
			})
			continue
		}

		entities, err := extractor.Extract(article)
		if err != nil {
			c.skip(&run, ErrorInvalidArticle, article.ID, err)
			continue
		}
		seenArticles[article.ID] = struct{}{}
		run.Summary.ArticlesProcessed++
		run.Summary.EntitiesExtracted += len(entities)

		for _, vessel := range roster {
			res, err := scorer.Evaluate(article, vessel, entities)
			if err != nil {
				if errors.Is(err, domain.ErrConfiguration) {
					return Run{}, err
				}
				run.Summary.record(ErrorScoring, article.ID+"/"+vessel.ID, err)
				continue
			}
			if res.Score < cfg.GenerationThreshold {
				continue
			}
			run.Summary.CorrelationsAboveThreshold++

			event := buildEvent(article, vessel, entities, res)
			if i, ok := index[event.ID]; ok {
				candidates[i] = MergeEvents(candidates[i], event)
				continue
			}
			index[event.ID] = len(candidates)
			candidates = append(candidates, event)
		}
	}

	SortEvents(candidates)
	if candidates == nil {
		candidates = []domain.TimelineEvent{}
	}
	run.Events = candidates
	run.Summary.ArticlesSkipped = run.Summary.ArticlesReceived - run.Summary.ArticlesProcessed
	run.Summary.Tally(run.Events)

	c.debug("correlation run complete",
		"articles", run.Summary.ArticlesProcessed,
		"skipped", run.Summary.ArticlesSkipped,
		"events", run.Summary.EventsGenerated,
	)
	return run, nil
}

func (c *Correlator) roster(vessels []domain.TrackedVessel, summary *Summary) []domain.TrackedVessel {
	out := make([]domain.TrackedVessel, 0, len(vessels))
	seen := make(map[string]struct{}, len(vessels))
	for _, v := range vessels {
		if err := v.Validate(); err != nil {
			summary.record(ErrorInvalidVessel, v.ID, err)
			continue
		}
		if _, dup := seen[v.ID]; dup {
			summary.record(ErrorInvalidVessel, v.ID, &domain.ValidationError{
				Subject: "vessel " + v.ID, Field: "id", Reason: "is duplicated in roster",
			})
			continue
		}
		seen[v.ID] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (c *Correlator) skip(run *Run, kind, articleID string, err error) {
	warning := &domain.ExtractionWarning{ArticleID: articleID, Err: err}
	run.Warnings = append(run.Warnings, warning)
	run.Summary.record(kind, articleID, err)
	c.debug("article skipped", "article", articleID, "error", err)
}

// SortEvents orders events newest first, then by id.
func SortEvents(events []domain.TimelineEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.After(events[j].EventDate)
		}
		return events[i].ID < events[j].ID
	})
}

func buildEvent(article domain.Article, vessel domain.TrackedVessel, entities []domain.Entity, res scoring.Result) domain.TimelineEvent {
	pair := pairEntities(entities, vessel)
	eventType, severity := InferEventType(pair)
	eventDate := article.EventDate()

	chain := []domain.Provenance{ingestionProvenance(article)}
	for _, e := range strongestEvidence(pair) {
		chain = append(chain, e.Provenance)
	}

	return domain.TimelineEvent{
		ID:                   EventID(vessel.ID, eventType, eventDate),
		VesselID:             vessel.ID,
		VesselName:           vessel.Name,
		EventType:            eventType,
		Severity:             severity,
		Title:                eventTitle(article, vessel),
		Description:          eventDescription(article, vessel, pair),
		EventDate:            eventDate,
		ConfidenceScore:      domain.ClampScore(res.Score),
		SourceArticles:       []string{article.ID},
		ProvenanceChain:      chain,
		ExtractedEntities:    pair,
		CorrelationReasoning: res.Reasoning,
	}
}

func ingestionProvenance(article domain.Article) domain.Provenance {
	original := article.Title
	if original == "" {
		original = truncateRunes(strings.Join(strings.Fields(article.Content), " "), 200)
	}
	return domain.Provenance{
		SourceURL:        article.URL,
		SourceName:       article.SourceName,
		RetrievedAt:      article.RetrievedAt,
		OriginalText:     original,
		ExtractionMethod: domain.MethodIngestion,
		Reasoning:        "Source article from " + sourceName(article),
	}
}

func eventTitle(article domain.Article, vessel domain.TrackedVessel) string {
	title := strings.TrimSpace(article.Title)
	if title != "" {
		compactTitle := domain.CompactName(title)
		for _, name := range vessel.Names() {
			if strings.Contains(compactTitle, domain.CompactName(name)) {
				return truncateRunes(title, maxTitleRunes)
			}
		}
	}
	return fmt.Sprintf("OSINT: %s mentioned in %s", vessel.Name, sourceName(article))
}

func eventDescription(article domain.Article, vessel domain.TrackedVessel, pair []domain.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Article from %s correlates with %s.", sourceName(article), vessel.Name)

	sections := []struct {
		label      string
		entityType domain.EntityType
	}{
		{"Weapon systems", domain.EntityWeaponSystem},
		{"Shipyards", domain.EntityShipyard},
		{"Locations", domain.EntityLocation},
		{"Key terms", domain.EntityKeyword},
	}
	for _, section := range sections {
		terms := distinctTexts(pair, section.entityType)
		if len(terms) == 0 {
			continue
		}
		fmt.Fprintf(&b, " %s: %s.", section.label, strings.Join(terms, ", "))
	}
	return b.String()
}

func distinctTexts(entities []domain.Entity, t domain.EntityType) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range entities {
		if e.Type != t {
			continue
		}
		key := strings.ToLower(e.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e.Text)
		if len(out) == maxSummaryTerms {
			break
		}
	}
	return out
}

func sourceName(article domain.Article) string {
	if article.SourceName == "" {
		return "unknown source"
	}
	return article.SourceName
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

func (c *Correlator) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
