package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/scanner"
)

// curatedRecord is one analyst-supplied article. "source" and "date" are
// accepted as older spellings of "source_name" and "published_at".
type curatedRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	SourceName  string `json:"source_name"`
	Source      string `json:"source"`
	PublishedAt string `json:"published_at"`
	Date        string `json:"date"`
}

// ParseArticles decodes a curated file: either a bare array of records or an
// object with an "articles" array. Records are converted as-is; validation is
// left to the correlator so a bad record is reported, not silently dropped.
func ParseArticles(raw []byte, retrievedAt time.Time) ([]domain.Article, error) {
	var records []curatedRecord
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode article list: %w", err)
		}
	} else {
		var wrapper struct {
			Articles []curatedRecord `json:"articles"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("decode article file: %w", err)
		}
		records = wrapper.Articles
	}

	articles := make([]domain.Article, 0, len(records))
	for _, rec := range records {
		articles = append(articles, rec.article(retrievedAt))
	}
	return articles, nil
}

func (rec curatedRecord) article(retrievedAt time.Time) domain.Article {
	id := rec.ID
	if id == "" && rec.URL != "" {
		id = articleID("manual", rec.URL)
	}
	source := rec.SourceName
	if source == "" {
		source = rec.Source
	}
	if source == "" {
		source = "Unknown"
	}
	published := rec.PublishedAt
	if published == "" {
		published = rec.Date
	}
	return domain.Article{
		ID:          id,
		Title:       rec.Title,
		Content:     rec.Content,
		URL:         rec.URL,
		SourceName:  source,
		PublishedAt: parseDate(published),
		RetrievedAt: retrievedAt,
	}
}

// LoadArticleFile reads one curated file.
func LoadArticleFile(path string, retrievedAt time.Time) ([]domain.Article, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	articles, err := ParseArticles(raw, retrievedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return articles, nil
}

// LoadArticleGlob reads every file matching a doublestar pattern, in sorted path order.
func LoadArticleGlob(pattern string, retrievedAt time.Time) ([]domain.Article, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(paths)

	var articles []domain.Article
	for _, path := range paths {
		loaded, err := LoadArticleFile(path, retrievedAt)
		if err != nil {
			return nil, err
		}
		articles = append(articles, loaded...)
	}
	return articles, nil
}

// ManualScanner loads curated article files. Category URLs are glob patterns,
// resolved against the "base_dir" option when relative. Curated files are not
// filtered by day: the seen store keeps repeats out.
type ManualScanner struct {
	logger *slog.Logger
	now    func() time.Time
}

var _ scanner.Scanner = (*ManualScanner)(nil)

// NewManualScanner builds the curated-file strategy.
func NewManualScanner(logger *slog.Logger) *ManualScanner {
	return &ManualScanner{logger: logger, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *ManualScanner) Name() string {
	return "manual"
}

// Scan loads all files matched by the configured patterns.
func (s *ManualScanner) Scan(_ context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no file patterns provided for site %s", req.SiteName)
	}

	baseDir := req.Option("base_dir", "")
	retrievedAt := s.now().UTC()

	var results []domain.Article
	for _, cat := range req.Categories {
		pattern := cat.URL
		if baseDir != "" && !filepath.IsAbs(pattern) {
			pattern = filepath.Join(baseDir, pattern)
		}
		articles, err := LoadArticleGlob(pattern, retrievedAt)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}
		s.debug("curated files loaded", "pattern", pattern, "articles", len(articles))
		results = append(results, articles...)
	}
	return results, nil
}

func (s *ManualScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
