package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"VesselOSINT/internal/config"
	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/ports"
	"VesselOSINT/internal/scanner"
)

const defaultSiteConcurrency = 4

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	sites       []config.SiteConfig
	concurrency int
	logger      *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:    reg,
		sites:       sites,
		concurrency: defaultSiteConcurrency,
		logger:      log,
	}
}

// FetchDaily scans all configured sites concurrently. Output keeps site order
// and drops repeated article ids. A failing site is logged and skipped; the
// call fails only if every site failed or the context was cancelled.
func (s *StrategySource) FetchDaily(ctx context.Context, day time.Time) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch daily", "sites", len(s.sites), "day", day.Format(time.DateOnly))

	// Unknown scanners are configuration mistakes, reported before any network call.
	strategies := make([]scanner.Scanner, len(s.sites))
	for i, site := range s.sites {
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}
		strategies[i] = strategy
	}

	perSite := make([][]domain.Article, len(s.sites))
	siteErrs := make([]error, len(s.sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.concurrency, 1))
	for i, site := range s.sites {
		g.Go(func() error {
			req := scanner.Request{
				Day:        day,
				SiteName:   site.Name,
				Options:    site.Options,
				Categories: toScannerCategories(site.Categories),
			}
			results, err := strategies[i].Scan(gctx, req)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				siteErrs[i] = fmt.Errorf("scan site %s: %w", site.Name, err)
				s.warn("site failed", "site", site.Name, "scanner", site.Scanner, "error", err)
				return nil
			}
			for j := range results {
				if results[j].SourceName == "" {
					results[j].SourceName = site.Name
				}
			}
			s.debug("site produced articles", "site", site.Name, "count", len(results))
			perSite[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch daily: %w", err)
	}

	failed := 0
	for _, err := range siteErrs {
		if err != nil {
			failed++
		}
	}
	if len(s.sites) > 0 && failed == len(s.sites) {
		return nil, errors.Join(siteErrs...)
	}

	var aggregated []domain.Article
	seen := make(map[string]struct{})
	for _, results := range perSite {
		for _, article := range results {
			if article.ID != "" {
				if _, dup := seen[article.ID]; dup {
					continue
				}
				seen[article.ID] = struct{}{}
			}
			aggregated = append(aggregated, article)
		}
	}

	s.debug("strategy source done", "total_articles", len(aggregated), "failed_sites", failed)
	return aggregated, nil
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
