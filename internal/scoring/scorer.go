package scoring

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"VesselOSINT/internal/domain"
)

// Component scores.
const (
	ExactNameScore      = 1.0
	IdentifierNameScore = 0.95
	AliasNameScore      = 0.9
	PartialNameScore    = 0.6

	HighKeywordScore    = 0.30
	MediumKeywordScore  = 0.15
	ContextKeywordScore = 0.05

	RelatedLocationScore = 0.4
	GenericLocationScore = 0.2

	ShipyardContextScore   = 0.3
	EntityTypeContextScore = 0.1
	EntityTypeContextMax   = 0.4
	ActivityContextScore   = 0.15
)

var (
	highSignalKeywords = []string{"arsenal ship", "missile", "weapon", "converted", "military", "CIWS", "VLS", "launcher", "armed", "warship", "navy"}
	mediumKeywords     = []string{"cargo", "container", "shipyard", "refit", "modification", "satellite", "imagery", "spotted", "observed", "detected"}
	contextKeywords    = []string{"maritime", "vessel", "ship", "port", "naval", "fleet", "transit", "deployment", "exercise"}

	highRelevanceAreas = []string{"Shanghai", "Fujian", "Longhai", "Taiwan Strait", "South China Sea", "Huangpu"}

	// Activity categories that add to the context component, in reasoning order.
	contextActivities = []string{domain.ActivityConversion, domain.ActivityMilitary, domain.ActivityWeapons}
)

var (
	compiledHigh    = compileTerms(highSignalKeywords, true)
	compiledMedium  = compileTerms(mediumKeywords, true)
	compiledContext = compileTerms(contextKeywords, true)
	compiledAreas   = compileTerms(highRelevanceAreas, false)
)

// Breakdown holds each component before weighting.
type Breakdown struct {
	NameMatch float64 `json:"name_match"`
	Keyword   float64 `json:"keyword"`
	Location  float64 `json:"location"`
	Temporal  float64 `json:"temporal"`
	Context   float64 `json:"context"`
}

// Result is the full outcome of scoring one (article, vessel) pair.
type Result struct {
	Score           float64
	Reasoning       string
	Breakdown       Breakdown
	MatchedNames    []string
	MatchedKeywords []string
}

// Scorer computes weighted relevance of an article to a tracked vessel.
// It is immutable after construction.
type Scorer struct {
	weights   Weights
	reference time.Time
}

// Option tunes a Scorer.
type Option func(*Scorer)

// WithReferenceTime pins the "now" that article age is measured against.
// Without it the article's retrieval time is used.
func WithReferenceTime(t time.Time) Option {
	return func(s *Scorer) {
		s.reference = t
	}
}

// New validates the weights and builds a scorer.
func New(weights Weights, opts ...Option) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	s := &Scorer{weights: weights}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Weights returns the configured component weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score returns the weighted relevance and its reasoning trace.
func (s *Scorer) Score(article domain.Article, vessel domain.TrackedVessel, entities []domain.Entity) (float64, string, error) {
	res, err := s.Evaluate(article, vessel, entities)
	if err != nil {
		return 0, "", err
	}
	return res.Score, res.Reasoning, nil
}

// Evaluate scores every component and combines them.
func (s *Scorer) Evaluate(article domain.Article, vessel domain.TrackedVessel, entities []domain.Entity) (Result, error) {
	if strings.TrimSpace(vessel.Name) == "" {
		return Result{}, &domain.ValidationError{Subject: "vessel " + vessel.ID, Field: "name", Reason: "is required"}
	}

	text := article.Text()
	var (
		res     Result
		reasons []string
	)

	name, matchedName := nameScore(text, vessel, entities)
	res.Breakdown.NameMatch = domain.ClampScore(name)
	if matchedName != "" {
		res.MatchedNames = []string{matchedName}
	}
	switch {
	case res.Breakdown.NameMatch >= AliasNameScore:
		reasons = append(reasons, "STRONG vessel name match: "+matchedName)
	case res.Breakdown.NameMatch > 0:
		reasons = append(reasons, "Partial vessel name match: "+matchedName)
	}

	keyword, keywords := keywordScore(text, vessel)
	res.Breakdown.Keyword = domain.ClampScore(keyword)
	res.MatchedKeywords = keywords
	switch {
	case res.Breakdown.Keyword >= 0.6:
		reasons = append(reasons, "High keyword relevance: "+summarize(keywords))
	case res.Breakdown.Keyword >= 0.3:
		reasons = append(reasons, "Moderate keyword relevance: "+summarize(keywords))
	case res.Breakdown.Keyword > 0:
		reasons = append(reasons, "Low keyword relevance: "+summarize(keywords))
	}

	location, places := locationScore(text, vessel)
	res.Breakdown.Location = domain.ClampScore(location)
	switch {
	case res.Breakdown.Location >= 0.5:
		reasons = append(reasons, "Geographic location highly relevant: "+summarize(places))
	case res.Breakdown.Location > 0:
		reasons = append(reasons, "Geographic location somewhat relevant: "+summarize(places))
	}

	temporal, when := s.temporalScore(article)
	res.Breakdown.Temporal = domain.ClampScore(temporal)
	if res.Breakdown.Temporal > 0 {
		reasons = append(reasons, when)
	}

	context, signals := contextScore(entities)
	res.Breakdown.Context = domain.ClampScore(context)
	switch {
	case res.Breakdown.Context >= 0.5:
		reasons = append(reasons, "Rich contextual signals: "+strings.Join(signals, ", "))
	case res.Breakdown.Context > 0:
		reasons = append(reasons, "Some contextual signals: "+strings.Join(signals, ", "))
	}

	b := res.Breakdown
	res.Score = domain.ClampScore(b.NameMatch*s.weights.NameMatch +
		b.Keyword*s.weights.Keyword +
		b.Location*s.weights.Location +
		b.Temporal*s.weights.Temporal +
		b.Context*s.weights.Context)
	res.Reasoning = strings.Join(reasons, " | ")
	return res, nil
}

func nameScore(text string, vessel domain.TrackedVessel, entities []domain.Entity) (float64, string) {
	if mentions(text, vessel.Name, false) {
		return ExactNameScore, vessel.Name
	}
	if id := identifierMatch(vessel, entities); id != "" {
		return IdentifierNameScore, id
	}
	for _, alias := range vessel.Aliases {
		if mentions(text, alias, false) {
			return AliasNameScore, alias
		}
	}
	if partial := partialMatch(text, vessel, entities); partial != "" {
		return PartialNameScore, partial
	}
	return 0, ""
}

func identifierMatch(vessel domain.TrackedVessel, entities []domain.Entity) string {
	imo := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(vessel.IMO), "IMO"))
	for _, e := range entities {
		if e.Type != domain.EntityVessel || e.Provenance.ExtractionMethod != domain.MethodIdentifier {
			continue
		}
		switch {
		case vessel.ID != "" && e.VesselID == vessel.ID,
			e.Category == "mmsi" && vessel.MMSI != "" && e.Normalized == vessel.MMSI,
			e.Category == "imo" && imo != "" && e.Normalized == imo:
			return strings.ToUpper(e.Category) + " " + e.Normalized
		}
	}
	return ""
}

// partialMatch accepts a leading run of at least two name tokens, or a
// pattern-matched vessel whose compacted name overlaps the tracked one.
func partialMatch(text string, vessel domain.TrackedVessel, entities []domain.Entity) string {
	tokens := strings.Fields(domain.NormalizeVesselName(vessel.Name))
	for k := len(tokens) - 1; k >= 2; k-- {
		prefix := strings.Join(tokens[:k], " ")
		if mentions(text, prefix, false) {
			return prefix
		}
	}

	compact := domain.CompactName(vessel.Name)
	for _, e := range entities {
		if e.Type != domain.EntityVessel || e.Provenance.ExtractionMethod != domain.MethodPattern {
			continue
		}
		found := domain.CompactName(e.Normalized)
		if len(found) < 3 || len(compact) < 3 {
			continue
		}
		if strings.Contains(found, compact) || strings.Contains(compact, found) {
			return e.Text
		}
	}
	return ""
}

func keywordScore(text string, vessel domain.TrackedVessel) (float64, []string) {
	seen := make(map[string]struct{})
	var matched []string
	score := 0.0

	tally := func(terms []compiledTerm, weight float64) {
		for _, t := range terms {
			key := strings.ToLower(t.text)
			if _, dup := seen[key]; dup {
				continue
			}
			if t.re.MatchString(text) {
				seen[key] = struct{}{}
				matched = append(matched, t.text)
				score += weight
			}
		}
	}
	tally(compileTerms(vessel.Keywords, true), HighKeywordScore)
	tally(compiledHigh, HighKeywordScore)
	tally(compiledMedium, MediumKeywordScore)
	tally(compiledContext, ContextKeywordScore)

	return min(score, 1.0), matched
}

func locationScore(text string, vessel domain.TrackedVessel) (float64, []string) {
	var matched []string
	seen := make(map[string]struct{})
	score := 0.0

	for _, t := range compileTerms(vessel.RelatedLocations, false) {
		key := strings.ToLower(t.text)
		if _, dup := seen[key]; dup || !t.re.MatchString(text) {
			continue
		}
		seen[key] = struct{}{}
		matched = append(matched, t.text)
		score += RelatedLocationScore
	}

	for _, t := range compiledAreas {
		if covered(t.text, matched) || !t.re.MatchString(text) {
			continue
		}
		matched = append(matched, t.text)
		score += GenericLocationScore
	}
	return min(score, 1.0), matched
}

// covered reports whether area was already counted as, or inside, a related location.
func covered(area string, counted []string) bool {
	area = strings.ToLower(area)
	for _, c := range counted {
		if strings.Contains(strings.ToLower(c), area) {
			return true
		}
	}
	return false
}

func (s *Scorer) temporalScore(article domain.Article) (float64, string) {
	reference := s.reference
	if reference.IsZero() {
		reference = article.RetrievedAt
	}
	if article.PublishedAt.IsZero() || reference.IsZero() {
		return 0.5, "Publication date unknown"
	}

	age := reference.Sub(article.PublishedAt)
	switch {
	case age < 24*time.Hour:
		return 1.0, "Very recent publication (<24h)"
	case age < 7*24*time.Hour:
		return 0.8, "Recent publication (<1 week)"
	case age < 30*24*time.Hour:
		return 0.5, "Publication within the last month"
	default:
		return 0.2, fmt.Sprintf("Older publication (%d days)", int(age.Hours()/24))
	}
}

func contextScore(entities []domain.Entity) (float64, []string) {
	types := make(map[domain.EntityType]struct{})
	activities := make(map[string]struct{})
	shipyard := false
	for _, e := range entities {
		types[e.Type] = struct{}{}
		if e.Type == domain.EntityShipyard {
			shipyard = true
		}
		if e.Type == domain.EntityKeyword {
			activities[e.Category] = struct{}{}
		}
	}

	var (
		score   float64
		signals []string
	)
	if shipyard {
		score += ShipyardContextScore
		signals = append(signals, "shipyard present")
	}
	if len(types) > 0 {
		score += min(EntityTypeContextScore*float64(len(types)), EntityTypeContextMax)
		signals = append(signals, fmt.Sprintf("%d entity types", len(types)))
	}
	for _, category := range contextActivities {
		if _, ok := activities[category]; ok {
			score += ActivityContextScore
			signals = append(signals, category+" activity")
		}
	}
	return min(score, 1.0), signals
}

func summarize(items []string) string {
	const shown = 5
	if len(items) <= shown {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:shown], ", "), len(items)-shown)
}

type compiledTerm struct {
	text string
	re   *regexp.Regexp
}

func compileTerms(terms []string, plural bool) []compiledTerm {
	out := make([]compiledTerm, 0, len(terms))
	for _, term := range terms {
		if re := termPattern(term, plural); re != nil {
			out = append(out, compiledTerm{text: strings.TrimSpace(term), re: re})
		}
	}
	return out
}

func mentions(text, term string, plural bool) bool {
	re := termPattern(term, plural)
	return re != nil && re.MatchString(text)
}

// termPattern matches term case-insensitively on word boundaries, with any run
// of whitespace between its words.
func termPattern(term string, plural bool) *regexp.Regexp {
	words := strings.Fields(term)
	if len(words) == 0 {
		return nil
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	expr := strings.Join(words, `\s+`)
	if plural {
		expr += `(?:e?s)?`
	}

	joined := strings.Join(strings.Fields(term), " ")
	if isWordByte(joined[0]) {
		expr = `\b` + expr
	}
	if isWordByte(joined[len(joined)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
