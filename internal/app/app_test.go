package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VesselOSINT/internal/config"
	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/logging"
)

const rosterYAML = `vessels:
  - id: "1"
    name: ZHONG DA 79
    aliases: [ZHONGDA 79]
    keywords: [arsenal ship, containerized missile, VLS]
    related_locations: [Shanghai, Longhai, Fujian]
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "vessels.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(rosterYAML), 0o600))

	cfg, err := config.LoadFile(writeFile(t, dir, "config.yaml", "logging:\n  level: error\n"))
	require.NoError(t, err)
	cfg.Roster.Path = rosterPath
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "events.db")}
	cfg.Export = config.ExportConfig{Path: filepath.Join(dir, "out", "events.json"), Format: "json"}
	return cfg
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func articlesJSON(published time.Time) string {
	return `[{
  "id": "art-001",
  "title": "ZHONG DA 79 converted into arsenal ship at Longhai Shipyard",
  "content": "Satellite imagery shows the container ship ZHONG DA 79 fitted with VLS cells and containerized missile launchers at Longhai Shipyard near Shanghai.",
  "url": "https://news.example.org/zhong-da-79-arsenal",
  "source_name": "Naval News",
  "published_at": "` + published.Format(time.RFC3339) + `"
}]`
}

func TestCorrelateFilesEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	inbox := t.TempDir()
	writeFile(t, inbox, "2025/12/batch.json", articlesJSON(time.Now().UTC().Add(-24*time.Hour)))

	ctx := context.Background()
	application, err := New(ctx, cfg, logging.New("error", "text"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	report, err := application.CorrelateFiles(ctx, filepath.Join(inbox, "**", "*.json"))
	require.NoError(t, err)
	require.Len(t, report.Events, 1)
	assert.Equal(t, domain.EventWeaponsObserved, report.Events[0].EventType)

	stored, err := application.events.Get(ctx, report.Events[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"art-001"}, stored.SourceArticles)

	raw, err := os.ReadFile(cfg.Export.Path)
	require.NoError(t, err)
	var doc struct {
		EventCount     int      `json:"event_count"`
		VesselsTracked []string `json:"vessels_tracked"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.EventCount)
	assert.Equal(t, []string{"ZHONG DA 79"}, doc.VesselsTracked)

	again, err := application.CorrelateFiles(ctx, filepath.Join(inbox, "**", "*.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, again.AlreadyProcessed)
}

func TestNewRejectsBadSettings(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := New(ctx, cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	cfg = testConfig(t)
	cfg.Database = config.DatabaseConfig{Driver: "postgres"}
	_, err = New(ctx, cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	cfg = testConfig(t)
	threshold := 1.5
	cfg.Correlation.Threshold = &threshold
	_, err = New(ctx, cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	cfg = testConfig(t)
	cfg.Correlation.Weights = config.WeightsConfig{NameMatch: 0.9, Keyword: 0.9}
	_, err = New(ctx, cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))

	cfg = testConfig(t)
	cfg.Export.Format = "xml"
	_, err = New(ctx, cfg, nil)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestCorrelationConfigLoadsDictionaries(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dictionaries.Path = writeFile(t, t.TempDir(), "dicts.yaml", `dictionaries:
  - name: regional_yards
    type: location
    terms:
      Zhoushan: [Zhoushan Island]
`)

	corr, err := correlationConfig(cfg)
	require.NoError(t, err)
	require.Len(t, corr.Dictionaries, 1)
	assert.Equal(t, "regional_yards", corr.Dictionaries[0].Name())
}
