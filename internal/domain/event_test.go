package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() TimelineEvent {
	retrieved := time.Date(2025, time.December, 27, 9, 0, 0, 0, time.UTC)
	return TimelineEvent{
		ID:              "osint-1",
		VesselID:        "1",
		VesselName:      "ZHONG DA 79",
		EventType:       EventWeaponsObserved,
		Severity:        SeverityCritical,
		Title:           "Arsenal ship spotted",
		Description:     "Article from Naval News correlates with ZHONG DA 79.",
		EventDate:       time.Date(2025, time.December, 26, 0, 0, 0, 0, time.UTC),
		ConfidenceScore: 0.942512,
		SourceArticles:  []string{"a1"},
		ProvenanceChain: []Provenance{{
			SourceURL:        "https://example.org/a1",
			SourceName:       "Naval News",
			RetrievedAt:      retrieved,
			OriginalText:     "Arsenal ship spotted",
			ExtractionMethod: MethodIngestion,
			Reasoning:        "Source article from Naval News",
		}},
		CorrelationReasoning: "STRONG vessel name match: ZHONG DA 79",
	}
}

func TestTimelineEventJSONShape(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(sampleEvent())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, key := range []string{"id", "vessel_id", "vessel_name", "event_type", "severity", "title", "description", "event_date", "confidence", "sources", "entities", "analysis"} {
		assert.Contains(t, doc, key)
	}

	confidence := doc["confidence"].(map[string]any)
	assert.Equal(t, 0.9425, confidence["score"])
	assert.Equal(t, "high", confidence["level"])
	assert.Equal(t, false, confidence["requires_review"])

	sources := doc["sources"].(map[string]any)
	assert.Equal(t, []any{"a1"}, sources["article_ids"])
	assert.Len(t, sources["provenance"], 1)

	analysis := doc["analysis"].(map[string]any)
	assert.Equal(t, "", analysis["analyst_notes"])
	assert.Equal(t, false, analysis["verified"])
	assert.Equal(t, []any{}, doc["entities"])
}

func TestTimelineEventDerivedFieldsFollowScore(t *testing.T) {
	t.Parallel()

	event := sampleEvent()
	event.ConfidenceScore = 0.42
	assert.Equal(t, ConfidenceLow, event.ConfidenceLevel())
	assert.True(t, event.RequiresReview())

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var back TimelineEvent
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, ConfidenceLow, back.ConfidenceLevel())
	assert.True(t, back.RequiresReview())
	assert.Equal(t, event.SourceArticles, back.SourceArticles)
	assert.Equal(t, event.CorrelationReasoning, back.CorrelationReasoning)
}

func TestTimelineEventValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, sampleEvent().Validate())

	noEvidence := sampleEvent()
	noEvidence.ProvenanceChain = nil
	err := noEvidence.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	noSources := sampleEvent()
	noSources.SourceArticles = nil
	assert.Error(t, noSources.Validate())
}

func TestArticleValidate(t *testing.T) {
	t.Parallel()

	err := Article{ID: "a1", Title: "only a title"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "content", vErr.Field)

	assert.NoError(t, Article{ID: "a1", Content: "text"}.Validate())
}

func TestErrorTaxonomy(t *testing.T) {
	t.Parallel()

	cfgErr := error(&ConfigurationError{Setting: "weights", Reason: "sum is 1.7"})
	assert.True(t, errors.Is(cfgErr, ErrConfiguration))
	assert.False(t, errors.Is(cfgErr, ErrValidation))

	warning := error(&ExtractionWarning{ArticleID: "a1", Err: &ValidationError{Subject: "article a1", Field: "content", Reason: "is required"}})
	assert.True(t, errors.Is(warning, ErrExtraction))
	assert.True(t, errors.Is(warning, ErrValidation))
	assert.Contains(t, warning.Error(), "article a1 skipped")
}

func TestEntityTypeClosedEnum(t *testing.T) {
	t.Parallel()

	for _, et := range EntityTypes {
		assert.True(t, et.Valid())
	}
	assert.False(t, EntityType("person").Valid())
}
