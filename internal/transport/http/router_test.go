package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/metrics"
	"VesselOSINT/internal/ports"
	"VesselOSINT/internal/roster"
	"VesselOSINT/internal/usecase"
)

type memoryRepo struct {
	events     []domain.TimelineEvent
	lastFilter ports.EventFilter
	err        error
}

func (m *memoryRepo) Save(context.Context, []domain.TimelineEvent) error { return nil }

func (m *memoryRepo) Get(_ context.Context, id string) (domain.TimelineEvent, error) {
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.TimelineEvent{}, ports.ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, filter ports.EventFilter) ([]domain.TimelineEvent, error) {
	m.lastFilter = filter
	return m.events, m.err
}

func (m *memoryRepo) ListByVessel(_ context.Context, vesselID string) ([]domain.TimelineEvent, error) {
	var out []domain.TimelineEvent
	for _, e := range m.events {
		if e.VesselID == vesselID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubIngestor struct {
	got    []domain.Article
	report usecase.Report
	err    error
}

func (s *stubIngestor) ProcessArticles(_ context.Context, articles []domain.Article) (usecase.Report, error) {
	s.got = articles
	return s.report, s.err
}

func sampleEvent(id, vesselID string) domain.TimelineEvent {
	at := time.Date(2025, time.December, 17, 9, 0, 0, 0, time.UTC)
	return domain.TimelineEvent{
		ID: id, VesselID: vesselID, VesselName: "ZHONG DA 79",
		EventType: domain.EventWeaponsObserved, Severity: domain.SeverityCritical,
		EventDate: at, ConfidenceScore: 0.94, SourceArticles: []string{"art-001"},
		ProvenanceChain: []domain.Provenance{{SourceURL: "https://x/1", SourceName: "Naval News"}},
	}
}

func newServer(t *testing.T, repo *memoryRepo, ingestor Ingestor) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.New(reg).IncrementEvent("weapons_observed", "critical", false)

	h := NewHandler(repo, roster.Static{{ID: "1", Name: "ZHONG DA 79"}}, ingestor, nil)
	srv := httptest.NewServer(NewRouter(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newServer(t, &memoryRepo{}, nil)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListEventsParsesFilter(t *testing.T) {
	repo := &memoryRepo{events: []domain.TimelineEvent{sampleEvent("osint-a", "1")}}
	srv := newServer(t, repo, nil)

	var body struct {
		Count  int              `json:"count"`
		Events []map[string]any `json:"events"`
	}
	status := getJSON(t, srv.URL+"/api/events?vessel=1&type=weapons_observed&min_score=0.5&since=2025-12-01&limit=10000", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "osint-a", body.Events[0]["id"])

	f := repo.lastFilter
	assert.Equal(t, "1", f.VesselID)
	assert.Equal(t, domain.EventWeaponsObserved, f.EventType)
	assert.Equal(t, 0.5, f.MinScore)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), f.Since)
	assert.Equal(t, maxListLimit, f.Limit)
}

func TestListEventsRejectsBadQuery(t *testing.T) {
	srv := newServer(t, &memoryRepo{}, nil)

	for _, query := range []string{"min_score=high", "min_score=2", "since=yesterday", "limit=-1"} {
		var body map[string]string
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/events?"+query, &body), query)
		assert.NotEmpty(t, body["error"], query)
	}
}

func TestListEventsHidesStorageErrors(t *testing.T) {
	srv := newServer(t, &memoryRepo{err: errors.New("pq: connection refused")}, nil)

	var body map[string]string
	assert.Equal(t, http.StatusInternalServerError, getJSON(t, srv.URL+"/api/events", &body))
	assert.Equal(t, "internal error", body["error"])
}

func TestGetEvent(t *testing.T) {
	srv := newServer(t, &memoryRepo{events: []domain.TimelineEvent{sampleEvent("osint-a", "1")}}, nil)

	var event domain.TimelineEvent
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/events/osint-a", &event))
	assert.Equal(t, "osint-a", event.ID)
	assert.Equal(t, 0.94, event.ConfidenceScore)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/events/missing", nil))
}

func TestVesselRoutes(t *testing.T) {
	repo := &memoryRepo{events: []domain.TimelineEvent{sampleEvent("osint-a", "1"), sampleEvent("osint-b", "2")}}
	srv := newServer(t, repo, nil)

	var vessels struct {
		Count   int                    `json:"count"`
		Vessels []domain.TrackedVessel `json:"vessels"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/vessels", &vessels))
	assert.Equal(t, 1, vessels.Count)
	assert.Equal(t, "ZHONG DA 79", vessels.Vessels[0].Name)

	var events eventList
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/vessels/2/events", &events))
	require.Equal(t, 1, events.Count)
	assert.Equal(t, "osint-b", events.Events[0].ID)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/vessels/9/events", &events))
	assert.Equal(t, 0, events.Count)
	assert.NotNil(t, events.Events)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newServer(t, &memoryRepo{}, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "vesselosint_events_generated_total")
}

func TestIngestRunsPipeline(t *testing.T) {
	ingestor := &stubIngestor{report: usecase.Report{RunID: "run-1", Events: []domain.TimelineEvent{sampleEvent("osint-a", "1")}}}
	srv := newServer(t, &memoryRepo{}, ingestor)

	body := `[{"id":"art-001","title":"ZHONG DA 79","content":"ZHONG DA 79 fitted with VLS","url":"https://x/1","source_name":"Naval News"}]`
	resp, err := http.Post(srv.URL+"/api/articles", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report usecase.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, ingestor.got, 1)
	assert.False(t, ingestor.got[0].RetrievedAt.IsZero(), "retrieval time is stamped")
}

func TestIngestErrors(t *testing.T) {
	ingestor := &stubIngestor{}
	srv := newServer(t, &memoryRepo{}, ingestor)

	resp, err := http.Post(srv.URL+"/api/articles", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ingestor.err = &domain.ConfigurationError{Setting: "weights", Reason: "sum to 1.2"}
	resp, err = http.Post(srv.URL+"/api/articles", "application/json", strings.NewReader("[]"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	ingestor.err = errors.Join(usecase.ErrDelivery, errors.New("bus down"))
	ingestor.report = usecase.Report{RunID: "run-2"}
	resp, err = http.Post(srv.URL+"/api/articles", "application/json", strings.NewReader("[]"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIngestDisabledWithoutPipeline(t *testing.T) {
	srv := newServer(t, &memoryRepo{}, nil)

	resp, err := http.Post(srv.URL+"/api/articles", "application/json", strings.NewReader("[]"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}
