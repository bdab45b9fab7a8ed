package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"VesselOSINT/internal/domain"
)

func event(articleID string, score float64, severity domain.Severity, at time.Time) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:              EventID("1", domain.EventWeaponsObserved, at),
		VesselID:        "1",
		VesselName:      "ZHONG DA 79",
		EventType:       domain.EventWeaponsObserved,
		Severity:        severity,
		Title:           "title " + articleID,
		Description:     "description " + articleID,
		EventDate:       at,
		ConfidenceScore: score,
		SourceArticles:  []string{articleID},
		ProvenanceChain: []domain.Provenance{{
			SourceURL:        "https://example.org/" + articleID,
			ExtractionMethod: domain.MethodIngestion,
			Reasoning:        "Source article from " + articleID,
		}},
		CorrelationReasoning: "reasoning " + articleID,
	}
}

func TestMergeKeepsMaximumScore(t *testing.T) {
	t.Parallel()

	morning := time.Date(2025, time.December, 17, 8, 0, 0, 0, time.UTC)
	evening := morning.Add(10 * time.Hour)
	a := event("a1", 0.62, domain.SeverityHigh, evening)
	b := event("a2", 0.71, domain.SeverityCritical, morning)
	assert.Equal(t, a.ID, b.ID)

	merged := MergeEvents(a, b)
	assert.Equal(t, []string{"a1", "a2"}, merged.SourceArticles)
	assert.Equal(t, 0.71, merged.ConfidenceScore)
	assert.NotEqual(t, 0.62+0.71, merged.ConfidenceScore)
	assert.Equal(t, domain.SeverityCritical, merged.Severity)
	assert.Equal(t, "title a2", merged.Title)
	assert.Equal(t, morning, merged.EventDate)
	assert.Equal(t, "reasoning a1 || reasoning a2", merged.CorrelationReasoning)
	assert.Len(t, merged.ProvenanceChain, 2)

	// Inputs are untouched.
	assert.Equal(t, []string{"a1"}, a.SourceArticles)
	assert.Equal(t, 0.62, a.ConfidenceScore)
}

func TestMergeIsIdempotentForRepeatedEvidence(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.December, 17, 8, 0, 0, 0, time.UTC)
	a := event("a1", 0.5, domain.SeverityHigh, at)

	merged := MergeEvents(a, a)
	assert.Equal(t, []string{"a1"}, merged.SourceArticles)
	assert.Len(t, merged.ProvenanceChain, 1)
	assert.Equal(t, "reasoning a1", merged.CorrelationReasoning)

	again := MergeEvents(merged, event("a2", 0.4, domain.SeverityLow, at))
	again = MergeEvents(again, event("a2", 0.4, domain.SeverityLow, at))
	assert.Equal(t, []string{"a1", "a2"}, again.SourceArticles)
	assert.Equal(t, 0.5, again.ConfidenceScore)
	assert.Equal(t, domain.SeverityHigh, again.Severity)
	assert.Equal(t, "reasoning a1 || reasoning a2", again.CorrelationReasoning)
}

func TestEventIDBucketsByUTCDay(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("CST", 8*3600)
	early := time.Date(2025, time.December, 18, 2, 0, 0, 0, shanghai) // 17th in UTC
	late := time.Date(2025, time.December, 17, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, EventID("1", domain.EventShipyardEntry, early), EventID("1", domain.EventShipyardEntry, late))
	assert.NotEqual(t, EventID("1", domain.EventShipyardEntry, late), EventID("2", domain.EventShipyardEntry, late))
	assert.NotEqual(t, EventID("1", domain.EventShipyardEntry, late), EventID("1", domain.EventOSINTReport, late))
	assert.NotEqual(t, EventID("1", domain.EventShipyardEntry, late), EventID("1", domain.EventShipyardEntry, late.Add(2*time.Hour)))
}

func TestSortEventsNewestFirst(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, time.December, 17, 0, 0, 0, 0, time.UTC)
	events := []domain.TimelineEvent{
		{ID: "b", EventDate: day},
		{ID: "c", EventDate: day.Add(48 * time.Hour)},
		{ID: "a", EventDate: day},
	}
	SortEvents(events)
	assert.Equal(t, "c", events[0].ID)
	assert.Equal(t, "a", events[1].ID)
	assert.Equal(t, "b", events[2].ID)
}
