package correlation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"VesselOSINT/internal/domain"
)

// ReasoningSeparator joins the reasoning of merged contributions.
const ReasoningSeparator = " || "

var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("vesselosint/timeline-event"))

// DayBucket is the UTC calendar day an event date falls into.
func DayBucket(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// EventID derives a stable id from the merge key.
func EventID(vesselID string, eventType domain.EventType, eventDate time.Time) string {
	key := vesselID + "|" + string(eventType) + "|" + DayBucket(eventDate)
	return "osint-" + uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

// MergeEvents folds the evidence of b into a and returns a new event.
// The score is the maximum of the two, never their sum.
func MergeEvents(a, b domain.TimelineEvent) domain.TimelineEvent {
	strongest := a
	if b.ConfidenceScore > a.ConfidenceScore {
		strongest = b
	}

	merged := domain.TimelineEvent{
		ID:                a.ID,
		VesselID:          a.VesselID,
		VesselName:        a.VesselName,
		EventType:         a.EventType,
		Severity:          a.Severity,
		Title:             strongest.Title,
		Description:       strongest.Description,
		EventDate:         earliest(a.EventDate, b.EventDate),
		ConfidenceScore:   max(a.ConfidenceScore, b.ConfidenceScore),
		SourceArticles:    unionStrings(a.SourceArticles, b.SourceArticles),
		ProvenanceChain:   unionProvenance(a.ProvenanceChain, b.ProvenanceChain),
		ExtractedEntities: unionEntities(a.ExtractedEntities, b.ExtractedEntities),
		AnalystNotes:      a.AnalystNotes,
		Verified:          a.Verified || b.Verified,
	}
	if b.Severity.Rank() > a.Severity.Rank() {
		merged.Severity = b.Severity
	}
	if merged.AnalystNotes == "" {
		merged.AnalystNotes = b.AnalystNotes
	}
	merged.CorrelationReasoning = joinReasoning(a.CorrelationReasoning, b.CorrelationReasoning)
	return merged
}

func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero() || a.Before(b) || a.Equal(b):
		return a
	default:
		return b
	}
}

func joinReasoning(a, b string) string {
	switch {
	case b == "":
		return a
	case a == "":
		return b
	}
	for _, part := range strings.Split(a, ReasoningSeparator) {
		if part == b {
			return a
		}
	}
	return a + ReasoningSeparator + b
}

func unionStrings(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

type provenanceKey struct {
	url, method, text, reasoning string
	retrieved                    int64
}

func unionProvenance(a, b []domain.Provenance) []domain.Provenance {
	out := make([]domain.Provenance, 0, len(a)+len(b))
	seen := make(map[provenanceKey]struct{}, len(a)+len(b))
	for _, list := range [][]domain.Provenance{a, b} {
		for _, p := range list {
			key := provenanceKey{p.SourceURL, p.ExtractionMethod, p.OriginalText, p.Reasoning, p.RetrievedAt.UnixNano()}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

type entityKey struct {
	url, text  string
	entityType domain.EntityType
	start, end int
}

func unionEntities(a, b []domain.Entity) []domain.Entity {
	out := make([]domain.Entity, 0, len(a)+len(b))
	seen := make(map[entityKey]struct{}, len(a)+len(b))
	for _, list := range [][]domain.Entity{a, b} {
		for _, e := range list {
			key := entityKey{e.Provenance.SourceURL, e.Text, e.Type, e.Start, e.End}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
