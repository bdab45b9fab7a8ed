package domain

import (
	"strings"
	"time"
)

// Article is a news item or report handed over by a source adapter.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	SourceName  string    `json:"source_name"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// Validate reports the first missing required field.
func (a Article) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return &ValidationError{Subject: "article", Field: "id", Reason: "is required"}
	}
	if strings.TrimSpace(a.Content) == "" {
		return &ValidationError{Subject: "article " + a.ID, Field: "content", Reason: "is required"}
	}
	return nil
}

// Text joins title and body the way extraction and scoring read them.
func (a Article) Text() string {
	if a.Title == "" {
		return a.Content
	}
	return a.Title + "\n\n" + a.Content
}

// EventDate is the publication time, or the retrieval time when the source gave none.
func (a Article) EventDate() time.Time {
	if !a.PublishedAt.IsZero() {
		return a.PublishedAt
	}
	return a.RetrievedAt
}

// TrackedVessel is a roster entry used to bias extraction and scoring.
type TrackedVessel struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	MMSI             string   `json:"mmsi,omitempty" yaml:"mmsi"`
	IMO              string   `json:"imo,omitempty" yaml:"imo"`
	FlagState        string   `json:"flag_state,omitempty" yaml:"flag_state"`
	VesselType       string   `json:"vessel_type,omitempty" yaml:"vessel_type"`
	Aliases          []string `json:"aliases,omitempty" yaml:"aliases"`
	Keywords         []string `json:"keywords,omitempty" yaml:"keywords"`
	RelatedLocations []string `json:"related_locations,omitempty" yaml:"related_locations"`
}

// Validate reports the first missing required field.
func (v TrackedVessel) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return &ValidationError{Subject: "vessel " + v.ID, Field: "name", Reason: "is required"}
	}
	if strings.TrimSpace(v.ID) == "" {
		return &ValidationError{Subject: "vessel " + v.Name, Field: "id", Reason: "is required"}
	}
	return nil
}

// Names returns the primary name followed by the aliases, skipping blanks.
func (v TrackedVessel) Names() []string {
	names := make([]string, 0, len(v.Aliases)+1)
	if strings.TrimSpace(v.Name) != "" {
		names = append(names, v.Name)
	}
	for _, alias := range v.Aliases {
		if strings.TrimSpace(alias) != "" {
			names = append(names, alias)
		}
	}
	return names
}

var hullPrefixes = []string{"M/V", "M/T", "MV", "MT", "SS", "HMS", "USNS"}

// NormalizeVesselName upper-cases, drops a hull prefix and collapses whitespace.
func NormalizeVesselName(name string) string {
	normalized := strings.Join(strings.Fields(strings.ToUpper(name)), " ")
	for _, prefix := range hullPrefixes {
		if strings.HasPrefix(normalized, prefix+" ") {
			normalized = strings.TrimSpace(normalized[len(prefix):])
			break
		}
	}
	return normalized
}

// CompactName drops spaces and hyphens so "ZHONG DA 79" and "ZHONGDA-79" compare equal.
func CompactName(name string) string {
	return strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.ToUpper(name))
}
