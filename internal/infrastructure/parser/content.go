package parser

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

var (
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
	trailingSpaceRe  = regexp.MustCompile(`[ \t]+\n`)
)

// Converter turns article HTML into markdown text for extraction.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a converter. Escaping is disabled: the output is read by
// the extractor, not rendered.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, &md.Options{EscapeMode: "disabled"})
	converter.Use(plugin.GitHubFlavored())
	converter.Remove("script", "style", "nav", "footer", "aside", "form")
	return &Converter{converter: converter}
}

// Convert transforms an HTML fragment or document.
func (c *Converter) Convert(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	markdown, err := c.converter.ConvertString(html)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

// ConvertSelection converts an already parsed node, e.g. the <article> of a page.
func (c *Converter) ConvertSelection(sel *goquery.Selection) string {
	return cleanMarkdown(c.converter.Convert(sel))
}

func cleanMarkdown(markdown string) string {
	markdown = trailingSpaceRe.ReplaceAllString(markdown, "\n")
	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n")
	return strings.TrimSpace(markdown)
}

// articleID derives a stable id from the article URL.
func articleID(prefix, url string) string {
	sum := md5.Sum([]byte(url))
	return prefix + "-" + hex.EncodeToString(sum[:])[:12]
}

// Layouts accepted for publication dates, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"2 Jan 2006",
}

// parseDate returns the zero time when no layout fits. Zoneless values are UTC.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// withinWindow keeps undated items and items published during the lookback
// window that ends with day.
func withinWindow(published, day time.Time, lookbackDays int) bool {
	if published.IsZero() || day.IsZero() {
		return true
	}
	y, m, d := day.UTC().Date()
	end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	start := end.AddDate(0, 0, -max(lookbackDays, 1))
	return !published.Before(start) && published.Before(end)
}
