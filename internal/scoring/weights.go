package scoring

import (
	"fmt"
	"math"

	"VesselOSINT/internal/domain"
)

const weightTolerance = 1e-6

// Weights balances the five relevance components. They must sum to 1.
type Weights struct {
	NameMatch float64 `yaml:"name_match" json:"name_match"`
	Keyword   float64 `yaml:"keyword" json:"keyword"`
	Location  float64 `yaml:"location" json:"location"`
	Temporal  float64 `yaml:"temporal" json:"temporal"`
	Context   float64 `yaml:"context" json:"context"`
}

// DefaultWeights favours the vessel name, then keywords.
func DefaultWeights() Weights {
	return Weights{
		NameMatch: 0.40,
		Keyword:   0.25,
		Location:  0.15,
		Temporal:  0.10,
		Context:   0.10,
	}
}

// Sum adds up all components.
func (w Weights) Sum() float64 {
	return w.NameMatch + w.Keyword + w.Location + w.Temporal + w.Context
}

// Validate returns a *domain.ConfigurationError for negative or non-normalized weights.
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"name_match", w.NameMatch},
		{"keyword", w.Keyword},
		{"location", w.Location},
		{"temporal", w.Temporal},
		{"context", w.Context},
	}
	for _, c := range named {
		if c.value < 0 || math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &domain.ConfigurationError{
				Setting: "weights." + c.name,
				Reason:  fmt.Sprintf("must be a non-negative number, got %v", c.value),
			}
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return &domain.ConfigurationError{
			Setting: "weights",
			Reason:  fmt.Sprintf("must sum to 1.0, got %.6f", sum),
		}
	}
	return nil
}
