package domain

import "math"

// ConfidenceLevel is the analyst-facing band of a numeric score.
type ConfidenceLevel string

const (
	ConfidenceHigh        ConfidenceLevel = "high"
	ConfidenceMedium      ConfidenceLevel = "medium"
	ConfidenceLow         ConfidenceLevel = "low"
	ConfidenceSpeculative ConfidenceLevel = "speculative"
)

// Band lower bounds. Each band is closed below and open above, except HIGH.
const (
	HighThreshold   = 0.80
	ReviewThreshold = 0.50
	LowThreshold    = 0.30
)

// ConfidenceLevels lists the bands from strongest to weakest.
var ConfidenceLevels = []ConfidenceLevel{
	ConfidenceHigh,
	ConfidenceMedium,
	ConfidenceLow,
	ConfidenceSpeculative,
}

// LevelFromScore maps a score onto exactly one band.
func LevelFromScore(score float64) ConfidenceLevel {
	switch score = ClampScore(score); {
	case score >= HighThreshold:
		return ConfidenceHigh
	case score >= ReviewThreshold:
		return ConfidenceMedium
	case score >= LowThreshold:
		return ConfidenceLow
	default:
		return ConfidenceSpeculative
	}
}

// NeedsReview is true for every score below the review threshold.
func NeedsReview(score float64) bool {
	return ClampScore(score) < ReviewThreshold
}

// ClampScore pins v into [0,1]; NaN becomes 0.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
