package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// EventType is the closed vocabulary of timeline events.
type EventType string

const (
	EventWeaponsObserved      EventType = "weapons_observed"
	EventModificationDetected EventType = "modification_detected"
	EventShipyardEntry        EventType = "shipyard_entry"
	EventAnomalyDetected      EventType = "anomaly_detected"
	EventExerciseActivity     EventType = "exercise_activity"
	EventTransitActivity      EventType = "transit_activity"
	EventOSINTReport          EventType = "osint_report"
)

// Severity ranks how urgently an analyst should look at an event.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Rank orders severities; higher is more severe, unknown values rank below info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// TimelineEvent is a provenance-backed occurrence correlated to a tracked vessel.
// Confidence level and review flag are derived from ConfidenceScore on every read.
type TimelineEvent struct {
	ID                   string
	VesselID             string
	VesselName           string
	EventType            EventType
	Severity             Severity
	Title                string
	Description          string
	EventDate            time.Time
	ConfidenceScore      float64
	SourceArticles       []string
	ProvenanceChain      []Provenance
	ExtractedEntities    []Entity
	CorrelationReasoning string

	// Populated downstream by analysts.
	AnalystNotes string
	Verified     bool
}

// ConfidenceLevel is the band of the current score.
func (e TimelineEvent) ConfidenceLevel() ConfidenceLevel {
	return LevelFromScore(e.ConfidenceScore)
}

// RequiresReview flags events an analyst must confirm.
func (e TimelineEvent) RequiresReview() bool {
	return NeedsReview(e.ConfidenceScore)
}

// Validate checks the evidence invariants before an event leaves the core or storage.
func (e TimelineEvent) Validate() error {
	switch {
	case e.ID == "":
		return &ValidationError{Subject: "event", Field: "id", Reason: "is required"}
	case e.VesselID == "":
		return &ValidationError{Subject: "event " + e.ID, Field: "vessel_id", Reason: "is required"}
	case len(e.SourceArticles) == 0:
		return &ValidationError{Subject: "event " + e.ID, Field: "source_articles", Reason: "must not be empty"}
	case len(e.ProvenanceChain) == 0:
		return &ValidationError{Subject: "event " + e.ID, Field: "provenance_chain", Reason: "must not be empty"}
	case e.ConfidenceScore < 0 || e.ConfidenceScore > 1 || math.IsNaN(e.ConfidenceScore):
		return &ValidationError{Subject: "event " + e.ID, Field: "confidence_score", Reason: fmt.Sprintf("%v outside [0,1]", e.ConfidenceScore)}
	}
	return nil
}

type eventJSON struct {
	ID          string    `json:"id"`
	VesselID    string    `json:"vessel_id"`
	VesselName  string    `json:"vessel_name"`
	EventType   EventType `json:"event_type"`
	Severity    Severity  `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"event_date"`
	Confidence  struct {
		Score          float64         `json:"score"`
		Level          ConfidenceLevel `json:"level"`
		RequiresReview bool            `json:"requires_review"`
	} `json:"confidence"`
	Sources struct {
		ArticleIDs []string     `json:"article_ids"`
		Provenance []Provenance `json:"provenance"`
	} `json:"sources"`
	Entities []Entity `json:"entities"`
	Analysis struct {
		Reasoning    string `json:"reasoning"`
		AnalystNotes string `json:"analyst_notes"`
		Verified     bool   `json:"verified"`
	} `json:"analysis"`
}

// MarshalJSON emits the nested shape consumed by the UI. The score is rounded to
// four decimals here and nowhere else.
func (e TimelineEvent) MarshalJSON() ([]byte, error) {
	var out eventJSON
	out.ID = e.ID
	out.VesselID = e.VesselID
	out.VesselName = e.VesselName
	out.EventType = e.EventType
	out.Severity = e.Severity
	out.Title = e.Title
	out.Description = e.Description
	out.EventDate = e.EventDate
	out.Confidence.Score = math.Round(e.ConfidenceScore*10000) / 10000
	out.Confidence.Level = e.ConfidenceLevel()
	out.Confidence.RequiresReview = e.RequiresReview()
	out.Sources.ArticleIDs = nonNil(e.SourceArticles)
	out.Sources.Provenance = e.ProvenanceChain
	if out.Sources.Provenance == nil {
		out.Sources.Provenance = []Provenance{}
	}
	out.Entities = e.ExtractedEntities
	if out.Entities == nil {
		out.Entities = []Entity{}
	}
	out.Analysis.Reasoning = e.CorrelationReasoning
	out.Analysis.AnalystNotes = e.AnalystNotes
	out.Analysis.Verified = e.Verified
	return json.Marshal(out)
}

// UnmarshalJSON reads the nested shape back. Level and review flag are ignored
// and recomputed from the score.
func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*e = TimelineEvent{
		ID:                   in.ID,
		VesselID:             in.VesselID,
		VesselName:           in.VesselName,
		EventType:            in.EventType,
		Severity:             in.Severity,
		Title:                in.Title,
		Description:          in.Description,
		EventDate:            in.EventDate,
		ConfidenceScore:      in.Confidence.Score,
		SourceArticles:       in.Sources.ArticleIDs,
		ProvenanceChain:      in.Sources.Provenance,
		ExtractedEntities:    in.Entities,
		CorrelationReasoning: in.Analysis.Reasoning,
		AnalystNotes:         in.Analysis.AnalystNotes,
		Verified:             in.Analysis.Verified,
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
