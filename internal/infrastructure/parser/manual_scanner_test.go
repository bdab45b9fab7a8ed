package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VesselOSINT/internal/scanner"
)

func TestParseArticlesAcceptsBothShapes(t *testing.T) {
	t.Parallel()

	retrieved := time.Date(2025, time.December, 27, 9, 0, 0, 0, time.UTC)

	wrapped, err := ParseArticles([]byte(`{"articles":[
		{"id":"art-001","title":"Arsenal ship","url":"https://x/1","content":"text","source_name":"Naval News","published_at":"2025-12-17T09:00:00Z"}
	]}`), retrieved)
	require.NoError(t, err)
	require.Len(t, wrapped, 1)
	assert.Equal(t, "art-001", wrapped[0].ID)
	assert.Equal(t, time.Date(2025, time.December, 17, 9, 0, 0, 0, time.UTC), wrapped[0].PublishedAt)
	assert.Equal(t, retrieved, wrapped[0].RetrievedAt)

	bare, err := ParseArticles([]byte(`[
		{"title":"No id","url":"https://x/2","content":"text","source":"Legacy","date":"2025-12-20"},
		{"title":"No source","url":"https://x/3","content":"text","published_at":"20/12/2025"}
	]`), retrieved)
	require.NoError(t, err)
	require.Len(t, bare, 2)
	assert.Equal(t, articleID("manual", "https://x/2"), bare[0].ID)
	assert.Equal(t, "Legacy", bare[0].SourceName)
	assert.Equal(t, time.Date(2025, time.December, 20, 0, 0, 0, 0, time.UTC), bare[0].PublishedAt)
	assert.Equal(t, "Unknown", bare[1].SourceName)
	assert.True(t, bare[1].PublishedAt.IsZero(), "unparseable dates stay unknown")
}

func TestParseArticlesRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ParseArticles([]byte(`{"articles": 7}`), time.Now())
	assert.Error(t, err)
}

func TestManualScannerGlob(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2025", "12"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2025", "12", "a.json"),
		[]byte(`[{"id":"a","title":"A","url":"https://x/a","content":"one"}]`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"),
		[]byte(`{"articles":[{"id":"b","title":"B","url":"https://x/b","content":"two"}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	sc := NewManualScanner(nil)
	articles, err := sc.Scan(context.Background(), scanner.Request{
		SiteName:   "manual",
		Categories: []scanner.Category{{Name: "curated", URL: "**/*.json"}},
		Options:    map[string]string{"base_dir": dir},
	})
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "a", articles[0].ID)
	assert.Equal(t, "b", articles[1].ID)
}

func TestParseDateLayouts(t *testing.T) {
	t.Parallel()

	want := time.Date(2025, time.December, 17, 9, 30, 0, 0, time.UTC)
	for _, value := range []string{
		"2025-12-17T09:30:00Z",
		"2025-12-17T09:30:00",
		"2025-12-17 09:30:00",
		"Wed, 17 Dec 2025 09:30:00 +0000",
		"2025-12-17T17:30:00+08:00",
	} {
		assert.True(t, parseDate(value).Equal(want), value)
	}
	assert.True(t, parseDate("").IsZero())
	assert.True(t, parseDate("yesterday").IsZero())
}

func TestWithinWindow(t *testing.T) {
	t.Parallel()

	day := time.Date(2025, time.December, 17, 15, 0, 0, 0, time.UTC)
	assert.True(t, withinWindow(time.Time{}, day, 7))
	assert.True(t, withinWindow(day.Add(8*time.Hour), day, 7), "later the same UTC day")
	assert.False(t, withinWindow(day.Add(10*time.Hour), day, 7), "next day")
	assert.True(t, withinWindow(day.AddDate(0, 0, -6), day, 7))
	assert.False(t, withinWindow(day.AddDate(0, 0, -8), day, 7))
}
