package extraction

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"VesselOSINT/internal/domain"
)

// Match is what a dictionary knows about a term.
type Match struct {
	Type       domain.EntityType
	Canonical  string
	Category   string
	Label      string
	Confidence float64
	Method     string
	VesselID   string
}

// Span is a dictionary hit located in a text.
type Span struct {
	Start int
	End   int
	Match Match
}

// Dictionary is the lookup strategy the extractor runs over article text.
// Implementations must be immutable and safe for concurrent use.
type Dictionary interface {
	Name() string
	Type() domain.EntityType
	Lookup(term string) (Match, bool)
	Scan(text string) []Span
}

// TermDictionary matches a fixed set of terms on word boundaries, case-insensitively.
type TermDictionary struct {
	name       string
	entityType domain.EntityType
	terms      map[string]Match
	pattern    *regexp.Regexp
}

var _ Dictionary = (*TermDictionary)(nil)

// Term is one surface form registered in a TermDictionary.
type Term struct {
	Text  string
	Match Match
}

// NewDictionary builds a table from canonical keys to their surface forms.
// Keys are processed in sorted order so a term shared by two keys always maps
// to the alphabetically first one.
func NewDictionary(name string, entityType domain.EntityType, confidence float64, entries map[string][]string) *TermDictionary {
	method := domain.MethodDictionary
	if entityType == domain.EntityKeyword {
		method = domain.MethodKeyword
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	terms := make([]Term, 0, len(entries)*3)
	for _, key := range keys {
		for _, variant := range entries[key] {
			terms = append(terms, Term{
				Text: variant,
				Match: Match{
					Type:       entityType,
					Canonical:  key,
					Category:   key,
					Label:      variant,
					Confidence: confidence,
					Method:     method,
				},
			})
		}
	}
	return NewTermDictionary(name, entityType, terms)
}

// NewTermDictionary builds a table from explicit terms; the first registration
// of a term wins.
func NewTermDictionary(name string, entityType domain.EntityType, terms []Term) *TermDictionary {
	d := &TermDictionary{
		name:       name,
		entityType: entityType,
		terms:      make(map[string]Match, len(terms)),
	}

	surfaces := make([]string, 0, len(terms))
	for _, term := range terms {
		key := foldTerm(term.Text)
		if key == "" {
			continue
		}
		if _, exists := d.terms[key]; exists {
			continue
		}
		d.terms[key] = term.Match
		surfaces = append(surfaces, key)
	}

	d.pattern = compileTerms(surfaces)
	return d
}

// Name identifies the dictionary in provenance reasoning.
func (d *TermDictionary) Name() string {
	return d.name
}

// Type is the entity type every match of this dictionary carries.
func (d *TermDictionary) Type() domain.EntityType {
	return d.entityType
}

// Lookup answers whether term is an exact (case and spacing insensitive) entry.
func (d *TermDictionary) Lookup(term string) (Match, bool) {
	m, ok := d.terms[foldTerm(term)]
	return m, ok
}

// Scan returns the longest hit at every position where a term starts. Hits may
// overlap; callers pick between them.
func (d *TermDictionary) Scan(text string) []Span {
	if d.pattern == nil {
		return nil
	}
	spans := make([]Span, 0)
	for start := 0; start < len(text); {
		loc := d.pattern.FindStringIndex(text[start:])
		if loc == nil {
			break
		}
		begin, end := start+loc[0], start+loc[1]
		_, size := utf8.DecodeRuneInString(text[begin:])
		start = begin + max(size, 1)

		// \b is anchored to the slice, so re-check the byte before it.
		if begin > 0 && isWordByte(text[begin-1]) && isWordByte(text[begin]) {
			continue
		}
		m, ok := d.Lookup(text[begin:end])
		if !ok {
			continue
		}
		spans = append(spans, Span{Start: begin, End: end, Match: m})
	}
	return spans
}

// Len is the number of distinct surface forms.
func (d *TermDictionary) Len() int {
	return len(d.terms)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func foldTerm(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

func compileTerms(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	sorted := append([]string(nil), terms...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	alts := make([]string, len(sorted))
	for i, term := range sorted {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(term), " ", `\s+`)
	}
	re := regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)\b`)
	re.Longest()
	return re
}
