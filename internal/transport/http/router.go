package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/ports"
	"VesselOSINT/internal/usecase"
)

const (
	maxListLimit   = 500
	maxIngestBytes = 8 << 20
)

// Ingestor runs a correlation pass over posted articles.
type Ingestor interface {
	ProcessArticles(ctx context.Context, articles []domain.Article) (usecase.Report, error)
}

// Handler is the thin HTTP layer over the event store and the pipeline.
type Handler struct {
	events   ports.EventRepository
	vessels  ports.VesselRegistry
	ingestor Ingestor
	logger   *slog.Logger
}

// NewHandler wires the query API. ingestor may be nil, which disables POST /api/articles.
func NewHandler(events ports.EventRepository, vessels ports.VesselRegistry, ingestor Ingestor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{events: events, vessels: vessels, ingestor: ingestor, logger: logger}
}

// NewRouter mounts every endpoint. metricsHandler is served at /metrics when non-nil.
func NewRouter(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.handleHealth)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	h.Register(r)
	return r
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.handleListEvents)
		r.Get("/events/{id}", h.handleGetEvent)
		r.Get("/vessels", h.handleListVessels)
		r.Get("/vessels/{id}/events", h.handleVesselEvents)
		if h.ingestor != nil {
			r.Post("/articles", h.handleIngest)
		}
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type eventList struct {
	Count  int                    `json:"count"`
	Events []domain.TimelineEvent `json:"events"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	events, err := h.events.List(r.Context(), filter)
	if err != nil {
		h.internal(w, r, "list events", err)
		return
	}
	writeJSON(w, http.StatusOK, newEventList(events))
}

func (h *Handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := h.events.Get(r.Context(), id)
	if errors.Is(err, ports.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Errorf("event %s not found", id))
		return
	}
	if err != nil {
		h.internal(w, r, "get event", err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) handleListVessels(w http.ResponseWriter, r *http.Request) {
	vessels, err := h.vessels.Vessels(r.Context())
	if err != nil {
		h.internal(w, r, "load vessels", err)
		return
	}
	if vessels == nil {
		vessels = []domain.TrackedVessel{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(vessels), "vessels": vessels})
}

func (h *Handler) handleVesselEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListByVessel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.internal(w, r, "list vessel events", err)
		return
	}
	writeJSON(w, http.StatusOK, newEventList(events))
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var articles []domain.Article
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBytes))
	if err := dec.Decode(&articles); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode articles: %w", err))
		return
	}
	now := time.Now().UTC()
	for i := range articles {
		if articles[i].RetrievedAt.IsZero() {
			articles[i].RetrievedAt = now
		}
	}

	report, err := h.ingestor.ProcessArticles(r.Context(), articles)
	switch {
	case errors.Is(err, usecase.ErrDelivery):
		h.logger.WarnContext(r.Context(), "delivery failed", "run_id", report.RunID, "error", err)
	case err != nil:
		h.internal(w, r, "correlate articles", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func parseFilter(r *http.Request) (ports.EventFilter, error) {
	q := r.URL.Query()
	filter := ports.EventFilter{
		VesselID:  q.Get("vessel"),
		EventType: domain.EventType(q.Get("type")),
		Limit:     100,
	}
	if raw := q.Get("min_score"); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil || score < 0 || score > 1 {
			return filter, fmt.Errorf("min_score must be a number in [0,1]")
		}
		filter.MinScore = score
	}
	if raw := q.Get("since"); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			return filter, err
		}
		filter.Since = since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("limit must be a positive integer")
		}
		filter.Limit = min(limit, maxListLimit)
	}
	return filter, nil
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("since must be RFC 3339 or YYYY-MM-DD")
}

func newEventList(events []domain.TimelineEvent) eventList {
	if events == nil {
		events = []domain.TimelineEvent{}
	}
	return eventList{Count: len(events), Events: events}
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op+" failed",
		"request_id", middleware.GetReqID(r.Context()),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, errors.New("internal error"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
