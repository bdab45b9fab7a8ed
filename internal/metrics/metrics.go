package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for correlation runs.
type Metrics struct {
	Runs              *prometheus.CounterVec
	ArticlesProcessed prometheus.Counter
	ArticlesSkipped   prometheus.Counter
	EventsGenerated   *prometheus.CounterVec
	EventsForReview   prometheus.Counter
	RunDuration       prometheus.Histogram
}

// New registers all metrics against reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vesselosint_pipeline_runs_total",
			Help: "Pipeline runs by outcome",
		}, []string{"outcome"}), // outcome: "ok", "error"

		ArticlesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "vesselosint_articles_processed_total",
			Help: "Articles that went through extraction and scoring",
		}),

		ArticlesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "vesselosint_articles_skipped_total",
			Help: "Articles skipped before correlation (malformed, duplicate or already processed)",
		}),

		EventsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vesselosint_events_generated_total",
			Help: "Timeline events produced by type and severity",
		}, []string{"event_type", "severity"}),

		EventsForReview: factory.NewCounter(prometheus.CounterOpts{
			Name: "vesselosint_events_requiring_review_total",
			Help: "Timeline events below the review confidence threshold",
		}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vesselosint_pipeline_run_duration_seconds",
			Help:    "Duration of a full pipeline run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

// AddArticles records processed and skipped article counts.
func (m *Metrics) AddArticles(processed, skipped int) {
	if m != nil {
		m.ArticlesProcessed.Add(float64(processed))
		m.ArticlesSkipped.Add(float64(skipped))
	}
}

// IncrementEvent records one newly created event; merges into stored events are not counted.
func (m *Metrics) IncrementEvent(eventType, severity string, review bool) {
	if m == nil {
		return
	}
	m.EventsGenerated.WithLabelValues(eventType, severity).Inc()
	if review {
		m.EventsForReview.Inc()
	}
}
