package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/scanner"
)

const userAgent = "VesselOSINT/1.0"

// Listing selectors, overridable per site through options.
const (
	defaultItemSelector    = "article"
	defaultTitleSelector   = "h1, h2, h3"
	defaultLinkSelector    = "a[href]"
	defaultSummarySelector = "p"
	defaultDateSelector    = "time"
	defaultBodySelector    = "article"
	defaultLookbackDays    = 7
)

// HTMLScanner crawls news listing pages and turns each listed item into an article.
//
// Site options:
//
//	item, title, link, summary, date  CSS selectors on the listing page
//	body                              CSS selector for the article body
//	fetch_body                        "true" downloads and converts every article page
//	page_param, max_pages             pagination via a query parameter
//	lookback_days                     how far before the scan day items are kept
type HTMLScanner struct {
	client    *http.Client
	converter *Converter
	logger    *slog.Logger
	now       func() time.Time
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires an HTTP client; nil gets a client with a 20s timeout.
func NewHTMLScanner(client *http.Client, logger *slog.Logger) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client, converter: NewConverter(), logger: logger, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (s *HTMLScanner) Name() string {
	return "html"
}

type listingSelectors struct {
	item, title, link, summary, date, body string
}

func selectorsFrom(req scanner.Request) listingSelectors {
	return listingSelectors{
		item:    req.Option("item", defaultItemSelector),
		title:   req.Option("title", defaultTitleSelector),
		link:    req.Option("link", defaultLinkSelector),
		summary: req.Option("summary", defaultSummarySelector),
		date:    req.Option("date", defaultDateSelector),
		body:    req.Option("body", defaultBodySelector),
	}
}

// Scan walks each listing URL and returns the items published inside the window.
func (s *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no listing pages provided for site %s", req.SiteName)
	}

	selectors := selectorsFrom(req)
	pageParam := req.Option("page_param", "")
	maxPages := max(req.IntOption("max_pages", 1), 1)
	lookback := req.IntOption("lookback_days", defaultLookbackDays)
	fetchBody := req.Option("fetch_body", "false") == "true"
	retrievedAt := s.now().UTC()

	results := make([]domain.Article, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		for page := 1; page <= maxPages; page++ {
			pageURL, err := buildPageURL(cat.URL, pageParam, page)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", cat.Name, err)
			}

			doc, err := s.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("listing %s: %w", cat.Name, err)
			}

			items := extractItems(doc, selectors, sourceLabel(req.SiteName, cat.Name), retrievedAt)
			s.debug("listing page parsed", "site", req.SiteName, "page", pageURL, "items", len(items))
			if len(items) == 0 {
				break
			}

			for _, article := range items {
				if _, ok := seen[article.ID]; ok {
					continue
				}
				if !withinWindow(article.PublishedAt, req.Day, lookback) {
					continue
				}
				seen[article.ID] = struct{}{}

				if fetchBody {
					if body, err := s.fetchBody(ctx, article.URL, selectors.body); err != nil {
						s.debug("article body unavailable", "url", article.URL, "error", err)
					} else if body != "" {
						article.Content = body
					}
				}
				results = append(results, article)
			}

			if pageParam == "" {
				break
			}
		}
	}

	return results, nil
}

func (s *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

func (s *HTMLScanner) fetchBody(ctx context.Context, articleURL, selector string) (string, error) {
	doc, err := s.fetchDocument(ctx, articleURL)
	if err != nil {
		return "", err
	}
	body := doc.Find(selector).First()
	if body.Length() == 0 {
		body = doc.Find("body")
	}
	return s.converter.ConvertSelection(body), nil
}

func extractItems(doc *goquery.Document, selectors listingSelectors, source string, retrievedAt time.Time) []domain.Article {
	var collected []domain.Article
	doc.Find(selectors.item).Each(func(_ int, item *goquery.Selection) {
		article, ok := parseItem(item, selectors, doc.Url, source)
		if !ok {
			return
		}
		article.RetrievedAt = retrievedAt
		collected = append(collected, article)
	})
	return collected
}

func parseItem(item *goquery.Selection, selectors listingSelectors, base *url.URL, source string) (domain.Article, bool) {
	title := collapse(item.Find(selectors.title).First().Text())

	link := item.Find(selectors.link).First()
	href, _ := link.Attr("href")
	href = resolveURL(base, strings.TrimSpace(href))
	if title == "" {
		title = collapse(link.Text())
	}
	if title == "" || href == "" {
		return domain.Article{}, false
	}

	var paragraphs []string
	item.Find(selectors.summary).Each(func(_ int, p *goquery.Selection) {
		if text := collapse(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	content := strings.Join(paragraphs, "\n\n")
	if content == "" {
		content = title
	}

	dateNode := item.Find(selectors.date).First()
	dateText, ok := dateNode.Attr("datetime")
	if !ok {
		dateText = dateNode.Text()
	}

	return domain.Article{
		ID:          articleID("html", href),
		Title:       title,
		Content:     content,
		URL:         href,
		SourceName:  source,
		PublishedAt: parseDate(dateText),
	}, true
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// buildPageURL sets the page query parameter; page one is the listing URL as configured.
func buildPageURL(base, pageParam string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}
	if pageParam == "" || page <= 1 {
		return parsed.String(), nil
	}

	query := parsed.Query()
	query.Set(pageParam, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func sourceLabel(siteName, category string) string {
	if category == "" || category == siteName {
		return siteName
	}
	return fmt.Sprintf("%s/%s", siteName, category)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (s *HTMLScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
