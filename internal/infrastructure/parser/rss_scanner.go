package parser

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/scanner"
)

const (
	defaultMaxFeedItems = 50
	maxFeedBytes        = 10 << 20
)

// feedDocument decodes both RSS 2.0 (<rss><channel><item>) and Atom (<feed><entry>).
type feedDocument struct {
	XMLName xml.Name
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Content   string     `xml:"content"`
	Summary   string     `xml:"summary"`
	Updated   string     `xml:"updated"`
	Published string     `xml:"published"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// RSSScanner reads RSS and Atom feeds. Each category is one feed; its name
// becomes the article source name.
type RSSScanner struct {
	client    *http.Client
	converter *Converter
	logger    *slog.Logger
	now       func() time.Time
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; nil gets a client with a 15s timeout.
func NewRSSScanner(client *http.Client, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RSSScanner{client: client, converter: NewConverter(), logger: logger, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan fetches every feed. A broken feed is logged and skipped; the scan fails
// only when no feed could be read.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no feeds provided for site %s", req.SiteName)
	}

	maxItems := req.IntOption("max_items", defaultMaxFeedItems)
	lookback := req.IntOption("lookback_days", defaultLookbackDays)

	var (
		results  = make([]domain.Article, 0)
		seen     = map[string]struct{}{}
		failures []error
	)
	for _, feed := range req.Categories {
		source := feed.Name
		if source == "" {
			source = req.SiteName
		}

		articles, err := s.fetchFeed(ctx, feed.URL, source)
		if err != nil {
			failures = append(failures, fmt.Errorf("feed %s: %w", source, err))
			s.warn("feed skipped", "feed", source, "error", err)
			continue
		}
		if maxItems > 0 && len(articles) > maxItems {
			articles = articles[:maxItems]
		}

		for _, article := range articles {
			if _, ok := seen[article.ID]; ok {
				continue
			}
			if !withinWindow(article.PublishedAt, req.Day, lookback) {
				continue
			}
			seen[article.ID] = struct{}{}
			results = append(results, article)
		}
		s.debug("feed parsed", "feed", source, "items", len(articles))
	}

	if len(failures) == len(req.Categories) {
		return nil, failures[0]
	}
	return results, nil
}

func (s *RSSScanner) fetchFeed(ctx context.Context, feedURL, source string) ([]domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	return s.parseFeed(io.LimitReader(resp.Body, maxFeedBytes), source)
}

func (s *RSSScanner) parseFeed(r io.Reader, source string) ([]domain.Article, error) {
	var doc feedDocument
	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) { return input, nil }
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse feed xml: %w", err)
	}

	retrievedAt := s.now().UTC()
	articles := make([]domain.Article, 0, len(doc.Channel.Items)+len(doc.Entries))

	for _, item := range doc.Channel.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = strings.TrimSpace(item.GUID)
		}
		title := collapse(item.Title)
		if title == "" || link == "" {
			continue
		}
		body := item.Encoded
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		articles = append(articles, s.article(title, link, body, item.PubDate, source, retrievedAt))
	}

	for _, entry := range doc.Entries {
		link := entry.link()
		title := collapse(entry.Title)
		if title == "" || link == "" {
			continue
		}
		body := entry.Content
		if strings.TrimSpace(body) == "" {
			body = entry.Summary
		}
		date := entry.Updated
		if date == "" {
			date = entry.Published
		}
		articles = append(articles, s.article(title, link, body, date, source, retrievedAt))
	}

	return articles, nil
}

func (s *RSSScanner) article(title, link, body, date, source string, retrievedAt time.Time) domain.Article {
	content, err := s.converter.Convert(body)
	if err != nil || content == "" {
		content = collapse(body)
	}
	if content == "" {
		content = title
	}
	return domain.Article{
		ID:          articleID("rss", link),
		Title:       title,
		Content:     content,
		URL:         link,
		SourceName:  source,
		PublishedAt: parseDate(date),
		RetrievedAt: retrievedAt,
	}
}

// link prefers rel="alternate" (the default rel) and falls back to the first href.
func (e atomEntry) link() string {
	var first string
	for _, l := range e.Links {
		href := strings.TrimSpace(l.Href)
		if href == "" {
			continue
		}
		if l.Rel == "" || l.Rel == "alternate" {
			return href
		}
		if first == "" {
			first = href
		}
	}
	return first
}

func (s *RSSScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *RSSScanner) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
