package correlation

import "VesselOSINT/internal/domain"

// Kinds of RunError.
const (
	ErrorInvalidArticle   = "invalid_article"
	ErrorDuplicateArticle = "duplicate_article"
	ErrorInvalidVessel    = "invalid_vessel"
	ErrorScoring          = "scoring"
)

// RunError is one skipped record, kept so an analyst can audit completeness.
type RunError struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Reason  string `json:"reason"`
}

// Summary reports what a run did.
type Summary struct {
	ArticlesReceived           int                            `json:"articles_received"`
	ArticlesProcessed          int                            `json:"articles_processed"`
	ArticlesSkipped            int                            `json:"articles_skipped"`
	VesselsTracked             int                            `json:"vessels_tracked"`
	EntitiesExtracted          int                            `json:"entities_extracted"`
	CorrelationsAboveThreshold int                            `json:"correlations_above_threshold"`
	EventsGenerated            int                            `json:"events_generated"`
	VesselsWithEvents          int                            `json:"vessels_with_events"`
	HighConfidenceEvents       int                            `json:"high_confidence_events"`
	EventsRequiringReview      int                            `json:"events_requiring_review"`
	ConfidenceDistribution     map[domain.ConfidenceLevel]int `json:"confidence_distribution"`
	Errors                     []RunError                     `json:"errors"`
}

func (s *Summary) record(kind, subject string, err error) {
	s.Errors = append(s.Errors, RunError{Kind: kind, Subject: subject, Reason: err.Error()})
}

// Tally recomputes the event counters from the final event list, replacing
// any earlier counts.
func (s *Summary) Tally(events []domain.TimelineEvent) {
	s.EventsGenerated = len(events)
	s.HighConfidenceEvents = 0
	s.EventsRequiringReview = 0
	s.ConfidenceDistribution = make(map[domain.ConfidenceLevel]int, len(domain.ConfidenceLevels))
	for _, level := range domain.ConfidenceLevels {
		s.ConfidenceDistribution[level] = 0
	}

	vessels := make(map[string]struct{})
	for _, e := range events {
		vessels[e.VesselID] = struct{}{}
		level := e.ConfidenceLevel()
		s.ConfidenceDistribution[level]++
		if level == domain.ConfidenceHigh {
			s.HighConfidenceEvents++
		}
		if e.RequiresReview() {
			s.EventsRequiringReview++
		}
	}
	s.VesselsWithEvents = len(vessels)
}
