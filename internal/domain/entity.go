package domain

import "time"

// EntityType is the closed set of things extraction can find.
type EntityType string

const (
	EntityVessel       EntityType = "vessel"
	EntityShipyard     EntityType = "shipyard"
	EntityWeaponSystem EntityType = "weapon_system"
	EntityLocation     EntityType = "location"
	EntityKeyword      EntityType = "keyword"
)

// EntityTypes lists every valid type in presentation order.
var EntityTypes = []EntityType{
	EntityVessel,
	EntityShipyard,
	EntityWeaponSystem,
	EntityLocation,
	EntityKeyword,
}

// Valid reports whether t belongs to the closed enum.
func (t EntityType) Valid() bool {
	return t.Rank() >= 0
}

// Rank is the position of t in EntityTypes, or -1.
func (t EntityType) Rank() int {
	for i, known := range EntityTypes {
		if known == t {
			return i
		}
	}
	return -1
}

// Extraction methods recorded in provenance.
const (
	MethodKnownVessel = "known_vessel_match"
	MethodIdentifier  = "identifier_match"
	MethodPattern     = "pattern_match"
	MethodDictionary  = "dictionary_match"
	MethodKeyword     = "keyword_match"
	MethodIngestion   = "article_ingestion"
)

// Activity categories carried by KEYWORD entities.
const (
	ActivityConversion   = "conversion"
	ActivityMilitary     = "military"
	ActivityWeapons      = "weapons"
	ActivitySurveillance = "surveillance"
	ActivityExercise     = "exercise"
	ActivityTransit      = "transit"
)

// Provenance is the audit record behind an entity or event.
type Provenance struct {
	SourceURL        string    `json:"source_url"`
	SourceName       string    `json:"source_name"`
	RetrievedAt      time.Time `json:"retrieved_at"`
	OriginalText     string    `json:"original_text"`
	ExtractionMethod string    `json:"extraction_method"`
	Reasoning        string    `json:"reasoning"`
}

// Entity is one typed mention found in an article.
type Entity struct {
	Text       string     `json:"text"`
	Normalized string     `json:"normalized"`
	Type       EntityType `json:"entity_type"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`

	// Category is the dictionary key (e.g. "vls") or activity group (e.g. "conversion").
	Category string `json:"category,omitempty"`
	// VesselID is set on known-vessel matches.
	VesselID string `json:"vessel_id,omitempty"`
	// Start and End are byte offsets into Article.Text().
	Start int `json:"start"`
	End   int `json:"end"`
}

// ConfidenceLevel derives the analyst band from the entity confidence.
func (e Entity) ConfidenceLevel() ConfidenceLevel {
	return LevelFromScore(e.Confidence)
}

// Overlaps reports whether the two spans share at least one byte.
func (e Entity) Overlaps(other Entity) bool {
	return e.Start < other.End && other.Start < e.End
}
