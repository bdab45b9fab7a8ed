package extraction

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"VesselOSINT/internal/domain"
)

// Extractor turns article text into typed, provenance-carrying entities.
// It holds no mutable state after construction and is safe for concurrent use.
type Extractor struct {
	vessels       []domain.TrackedVessel
	known         *TermDictionary
	dictionaries  []Dictionary
	snippetWindow int
	cueWindow     int
	logger        *slog.Logger
}

// Option tunes an Extractor.
type Option func(*Extractor)

// WithDictionaries registers extra lookup tables after the built-in ones.
func WithDictionaries(dicts ...Dictionary) Option {
	return func(e *Extractor) {
		for _, d := range dicts {
			if d != nil {
				e.dictionaries = append(e.dictionaries, d)
			}
		}
	}
}

// WithContextWindow sets how many bytes of text around a match go into provenance.
func WithContextWindow(window int) Option {
	return func(e *Extractor) {
		if window > 0 {
			e.snippetWindow = window
		}
	}
}

// WithLogger attaches a logger for debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New builds an extractor for the given roster using the built-in dictionaries.
func New(vessels []domain.TrackedVessel, opts ...Option) *Extractor {
	roster := append([]domain.TrackedVessel(nil), vessels...)
	e := &Extractor{
		vessels:       roster,
		known:         NewVesselDictionary(roster),
		dictionaries:  DefaultDictionaries(),
		snippetWindow: defaultSnippetWindow,
		cueWindow:     defaultCueWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lookup resolves a single term against the roster and every dictionary.
func (e *Extractor) Lookup(term string) (Match, bool) {
	if m, ok := e.known.Lookup(term); ok {
		return m, true
	}
	for _, d := range e.dictionaries {
		if m, ok := d.Lookup(term); ok {
			return m, true
		}
	}
	return Match{}, false
}

type hit struct {
	Span
	source string
	order  int
	cues   int
}

func (h hit) overlaps(other hit) bool {
	return h.Start < other.End && other.Start < h.End
}

// Extract finds every entity mention in the article. An article without content
// is a ValidationError; an article without mentions yields an empty slice.
func (e *Extractor) Extract(article domain.Article) ([]domain.Entity, error) {
	if err := article.Validate(); err != nil {
		return nil, err
	}
	text := article.Text()

	byType := make(map[domain.EntityType][]hit, len(domain.EntityTypes))
	order := 0
	add := func(t domain.EntityType, source string, spans []Span) {
		for _, span := range spans {
			byType[t] = append(byType[t], hit{Span: span, source: source, order: order})
			order++
		}
	}

	add(domain.EntityVessel, e.known.Name(), e.known.Scan(text))
	for _, d := range e.dictionaries {
		add(d.Type(), d.Name(), d.Scan(text))
	}

	resolved := make(map[domain.EntityType][]hit, len(byType))
	for t, hits := range byType {
		resolved[t] = resolveLongest(hits)
	}

	vessels := resolved[domain.EntityVessel]
	vessels = append(vessels, dropOverlapping(e.identifierHits(text), vessels)...)

	cues := make([]hit, 0)
	for _, t := range []domain.EntityType{domain.EntityShipyard, domain.EntityWeaponSystem, domain.EntityKeyword} {
		cues = append(cues, resolved[t]...)
	}

	patterns := make([]hit, 0)
	for i, candidate := range scanVesselPatterns(text) {
		h := hit{Span: candidate.span, source: candidate.pattern, order: i}
		h.cues = e.nearbyCues(h, cues)
		h.Match.Confidence = min(PatternBaseConfidence+PatternCueBoost*float64(h.cues), PatternMaxConfidence)
		patterns = append(patterns, h)
	}
	vessels = append(vessels, resolveLongest(dropOverlapping(patterns, vessels))...)
	resolved[domain.EntityVessel] = vessels

	entities := make([]domain.Entity, 0)
	for _, t := range domain.EntityTypes {
		for _, h := range resolved[t] {
			entities = append(entities, e.entity(article, text, h))
		}
	}
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Type.Rank() != b.Type.Rank() {
			return a.Type.Rank() < b.Type.Rank()
		}
		return a.End < b.End
	})

	e.debug("entities extracted", "article", article.ID, "count", len(entities))
	return entities, nil
}

func (e *Extractor) identifierHits(text string) []hit {
	spans := scanIdentifiers(text, e.vessels)
	hits := make([]hit, 0, len(spans))
	for i, span := range spans {
		hits = append(hits, hit{Span: span, source: span.Match.Category, order: i})
	}
	return resolveLongest(hits)
}

// nearbyCues counts the distinct cue types (shipyard, weapon, activity) within
// the cue window of a pattern match.
func (e *Extractor) nearbyCues(h hit, cues []hit) int {
	seen := make(map[domain.EntityType]struct{}, 3)
	for _, cue := range cues {
		if cue.End < h.Start-e.cueWindow || cue.Start > h.End+e.cueWindow {
			continue
		}
		seen[cue.Match.Type] = struct{}{}
	}
	return len(seen)
}

func (e *Extractor) entity(article domain.Article, text string, h hit) domain.Entity {
	found := text[h.Start:h.End]
	normalized := h.Match.Canonical
	if h.Match.Method == domain.MethodPattern {
		normalized = domain.NormalizeVesselName(found)
	}

	return domain.Entity{
		Text:       found,
		Normalized: normalized,
		Type:       h.Match.Type,
		Confidence: domain.ClampScore(h.Match.Confidence),
		Category:   h.Match.Category,
		VesselID:   h.Match.VesselID,
		Start:      h.Start,
		End:        h.End,
		Provenance: domain.Provenance{
			SourceURL:        article.URL,
			SourceName:       article.SourceName,
			RetrievedAt:      article.RetrievedAt,
			OriginalText:     snippet(text, h.Start, h.End, e.snippetWindow),
			ExtractionMethod: h.Match.Method,
			Reasoning:        reasoning(h, found),
		},
	}
}

func reasoning(h hit, found string) string {
	m := h.Match
	switch m.Method {
	case domain.MethodKnownVessel:
		if domain.NormalizeVesselName(found) == m.Canonical {
			return fmt.Sprintf("Matched tracked vessel '%s' by its name.", m.Canonical)
		}
		return fmt.Sprintf("Matched tracked vessel '%s' by alias '%s'.", m.Canonical, m.Label)
	case domain.MethodIdentifier:
		kind := strings.ToUpper(m.Category)
		if m.VesselID != "" {
			return fmt.Sprintf("Extracted %s number %s belonging to tracked vessel %s.", kind, m.Canonical, m.VesselID)
		}
		return fmt.Sprintf("Extracted %s number %s (%d-digit identifier).", kind, m.Canonical, len(m.Canonical))
	case domain.MethodPattern:
		return fmt.Sprintf("Capitalized name '%s' fits the %s vessel pattern with %d nearby activity cue(s).", found, h.source, h.cues)
	case domain.MethodKeyword:
		return fmt.Sprintf("Activity keyword '%s' indicates %s.", strings.ToLower(found), m.Category)
	default:
		return fmt.Sprintf("Matched %s '%s' from the %s dictionary.", typeNoun(m.Type), m.Canonical, h.source)
	}
}

func typeNoun(t domain.EntityType) string {
	switch t {
	case domain.EntityShipyard:
		return "known shipyard"
	case domain.EntityWeaponSystem:
		return "weapon system"
	case domain.EntityLocation:
		return "location"
	case domain.EntityVessel:
		return "vessel"
	default:
		return string(t)
	}
}

// resolveLongest keeps the longest of any overlapping hits; ties go to the
// earlier start, then to registration order. The result is ordered by start.
func resolveLongest(hits []hit) []hit {
	if len(hits) == 0 {
		return nil
	}
	ranked := append([]hit(nil), hits...)
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := ranked[i].End-ranked[i].Start, ranked[j].End-ranked[j].Start
		if li != lj {
			return li > lj
		}
		if ranked[i].Start != ranked[j].Start {
			return ranked[i].Start < ranked[j].Start
		}
		return ranked[i].order < ranked[j].order
	})

	kept := make([]hit, 0, len(ranked))
	for _, candidate := range ranked {
		if len(dropOverlapping([]hit{candidate}, kept)) == 1 {
			kept = append(kept, candidate)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Start < kept[j].Start
	})
	return kept
}

func dropOverlapping(candidates, taken []hit) []hit {
	out := make([]hit, 0, len(candidates))
	for _, c := range candidates {
		clash := false
		for _, t := range taken {
			if c.overlaps(t) {
				clash = true
				break
			}
		}
		if !clash {
			out = append(out, c)
		}
	}
	return out
}

// snippet cuts window bytes either side of [start,end), widened to rune
// boundaries, with whitespace collapsed and "..." marking each cut.
func snippet(text string, start, end, window int) string {
	from := max(0, start-window)
	to := min(len(text), end+window)
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}

	out := strings.Join(strings.Fields(text[from:to]), " ")
	if from > 0 {
		out = "..." + out
	}
	if to < len(text) {
		out += "..."
	}
	return out
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
