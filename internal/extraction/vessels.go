package extraction

import (
	"regexp"
	"strings"

	"VesselOSINT/internal/domain"
)

// Named capture group 1 always holds the vessel name.
var vesselPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"prefix", regexp.MustCompile(`\b(?:M/V|M/T|MV|MT|SS|HMS|USNS)[ \t]+([A-Z][A-Za-z0-9\-]*(?:[ \t]+[A-Z0-9][A-Za-z0-9\-]*){0,3})`)},
	{"hull-number", regexp.MustCompile(`\b([A-Z]{2,}(?:[ \t]+[A-Z]{2,}){0,3}[ \t]+\d{1,3})\b`)},
	{"quoted", regexp.MustCompile(`["“]([A-Z][A-Z0-9 \-]{2,25})["”]`)},
}

var identifierPatterns = []struct {
	kind       string
	confidence float64
	re         *regexp.Regexp
}{
	{"mmsi", MMSIConfidence, regexp.MustCompile(`\bMMSI[:#\s]*(\d{9})\b`)},
	{"imo", IMOConfidence, regexp.MustCompile(`\bIMO[:#\s]*(\d{7})\b`)},
}

// NewVesselDictionary indexes every name and alias of the roster. When two
// vessels share a surface form the earlier roster entry keeps it.
func NewVesselDictionary(vessels []domain.TrackedVessel) *TermDictionary {
	var terms []Term
	for _, vessel := range vessels {
		canonical := domain.NormalizeVesselName(vessel.Name)
		for _, name := range vessel.Names() {
			terms = append(terms, Term{
				Text: name,
				Match: Match{
					Type:       domain.EntityVessel,
					Canonical:  canonical,
					Label:      name,
					Confidence: KnownVesselConfidence,
					Method:     domain.MethodKnownVessel,
					VesselID:   vessel.ID,
				},
			})
		}
	}
	return NewTermDictionary("tracked vessels", domain.EntityVessel, terms)
}

type patternCandidate struct {
	span    Span
	pattern string
}

func scanVesselPatterns(text string) []patternCandidate {
	var out []patternCandidate
	for _, p := range vesselPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			if start < 0 {
				continue
			}
			name := strings.TrimSpace(text[start:end])
			end = start + len(name)
			normalized := domain.NormalizeVesselName(name)
			if len(normalized) < 3 || isCommonWord(normalized) {
				continue
			}
			out = append(out, patternCandidate{
				pattern: p.name,
				span: Span{
					Start: start,
					End:   end,
					Match: Match{
						Type:       domain.EntityVessel,
						Canonical:  normalized,
						Category:   p.name,
						Label:      name,
						Confidence: PatternBaseConfidence,
						Method:     domain.MethodPattern,
					},
				},
			})
		}
	}
	return out
}

func scanIdentifiers(text string, vessels []domain.TrackedVessel) []Span {
	var out []Span
	for _, p := range identifierPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			number := text[loc[2]:loc[3]]
			out = append(out, Span{
				Start: loc[0],
				End:   loc[1],
				Match: Match{
					Type:       domain.EntityVessel,
					Canonical:  number,
					Category:   p.kind,
					Label:      number,
					Confidence: p.confidence,
					Method:     domain.MethodIdentifier,
					VesselID:   vesselByIdentifier(vessels, p.kind, number),
				},
			})
		}
	}
	return out
}

func vesselByIdentifier(vessels []domain.TrackedVessel, kind, number string) string {
	for _, vessel := range vessels {
		switch {
		case kind == "mmsi" && vessel.MMSI != "" && vessel.MMSI == number:
			return vessel.ID
		case kind == "imo" && vessel.IMO != "" && strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(vessel.IMO), "IMO")) == number:
			return vessel.ID
		}
	}
	return ""
}

func isCommonWord(normalized string) bool {
	for _, word := range strings.Fields(normalized) {
		if _, ok := commonWords[word]; !ok {
			return false
		}
	}
	return true
}
