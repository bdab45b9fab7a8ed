package extraction

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VesselOSINT/internal/domain"
)

func zhongDa() domain.TrackedVessel {
	return domain.TrackedVessel{
		ID:               "1",
		Name:             "ZHONG DA 79",
		MMSI:             "413000000",
		Aliases:          []string{"ZHONGDA 79", "ZHONGDA79"},
		Keywords:         []string{"arsenal ship", "containerized missile", "VLS"},
		RelatedLocations: []string{"Shanghai", "Longhai", "Fujian", "Huangpu River"},
	}
}

func article(content string) domain.Article {
	return domain.Article{
		ID:          "a1",
		Content:     content,
		URL:         "https://example.org/a1",
		SourceName:  "Naval News",
		RetrievedAt: time.Date(2025, time.December, 27, 9, 0, 0, 0, time.UTC),
	}
}

func ofType(entities []domain.Entity, t domain.EntityType) []domain.Entity {
	var out []domain.Entity
	for _, e := range entities {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestExtractKnownVessel(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article("Satellite imagery shows ZHONG DA 79 moored at Longhai Shipyard with containerized missile launchers."))
	require.NoError(t, err)

	vessels := ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 1)
	v := vessels[0]
	assert.Equal(t, "ZHONG DA 79", v.Text)
	assert.Equal(t, "ZHONG DA 79", v.Normalized)
	assert.Equal(t, 0.95, v.Confidence)
	assert.Equal(t, "1", v.VesselID)
	assert.Equal(t, domain.MethodKnownVessel, v.Provenance.ExtractionMethod)
	assert.Equal(t, "Matched tracked vessel 'ZHONG DA 79' by its name.", v.Provenance.Reasoning)
	assert.Equal(t, "https://example.org/a1", v.Provenance.SourceURL)
	assert.Equal(t, "Naval News", v.Provenance.SourceName)
	assert.Contains(t, v.Provenance.OriginalText, "ZHONG DA 79")

	shipyards := ofType(entities, domain.EntityShipyard)
	require.Len(t, shipyards, 1)
	assert.Equal(t, "Longhai Shipyard", shipyards[0].Text)
	assert.Equal(t, "longhai", shipyards[0].Normalized)
	assert.Equal(t, 0.90, shipyards[0].Confidence)

	weapons := ofType(entities, domain.EntityWeaponSystem)
	require.Len(t, weapons, 1)
	assert.Equal(t, "containerized_missiles", weapons[0].Category)
	assert.Equal(t, 0.85, weapons[0].Confidence)

	keywords := ofType(entities, domain.EntityKeyword)
	require.NotEmpty(t, keywords)
	for _, k := range keywords {
		assert.Equal(t, 0.70, k.Confidence)
		assert.Equal(t, domain.ActivityWeapons, k.Category)
	}

	for i := 1; i < len(entities); i++ {
		assert.LessOrEqual(t, entities[i-1].Start, entities[i].Start)
	}
}

func TestExtractAlias(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article("The hull marked zhongda 79 left the Huangpu River at dawn."))
	require.NoError(t, err)

	vessels := ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 1)
	assert.Equal(t, "ZHONG DA 79", vessels[0].Normalized)
	assert.Equal(t, "Matched tracked vessel 'ZHONG DA 79' by alias 'ZHONGDA 79'.", vessels[0].Provenance.Reasoning)

	locations := ofType(entities, domain.EntityLocation)
	require.Len(t, locations, 1)
	assert.Equal(t, "shanghai", locations[0].Category)
}

func TestExtractRespectsWordBoundaries(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article("Registry lists ZHONG DA 795 as an unarmed tender."))
	require.NoError(t, err)

	for _, e := range entities {
		assert.NotEqual(t, domain.MethodKnownVessel, e.Provenance.ExtractionMethod, "matched %q", e.Text)
		assert.NotEqual(t, "armed", strings.ToLower(e.Text))
	}
}

func TestExtractRepeatsAreNotCollapsed(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article("ZHONG DA 79 sailed. Days later ZHONG DA 79 returned."))
	require.NoError(t, err)

	vessels := ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 2)
	assert.Less(t, vessels[0].End, vessels[1].Start)
}

func TestExtractLongestMatchWithinType(t *testing.T) {
	t.Parallel()

	ex := New(nil)
	entities, err := ex.Extract(article("Work continues at Jiangnan Shipyard this week."))
	require.NoError(t, err)
	shipyards := ofType(entities, domain.EntityShipyard)
	require.Len(t, shipyards, 1)
	assert.Equal(t, "Jiangnan Shipyard", shipyards[0].Text)

	berths := NewDictionary("berths", domain.EntityShipyard, ShipyardConfidence, map[string][]string{
		"basin_three": {"Shipyard Basin Three"},
	})
	ex = New(nil, WithDictionaries(berths))
	entities, err = ex.Extract(article("Tugs moved it into Longhai Shipyard Basin Three overnight."))
	require.NoError(t, err)
	shipyards = ofType(entities, domain.EntityShipyard)
	require.Len(t, shipyards, 1)
	assert.Equal(t, "Shipyard Basin Three", shipyards[0].Text)
	assert.Equal(t, "Matched known shipyard 'basin_three' from the berths dictionary.", shipyards[0].Provenance.Reasoning)

	// Different types may overlap.
	require.Len(t, ofType(entities, domain.EntityLocation), 1)
}

func TestExtractLongerTermStartingLaterWins(t *testing.T) {
	t.Parallel()

	ex := New(nil)
	entities, err := ex.Extract(article("The hull left COSCO Dalian Shipyard on Monday."))
	require.NoError(t, err)

	shipyards := ofType(entities, domain.EntityShipyard)
	require.Len(t, shipyards, 1)
	assert.Equal(t, "Dalian Shipyard", shipyards[0].Text)
	assert.Equal(t, "dalian", shipyards[0].Normalized)

	spans := Shipyards.Scan("COSCO Dalian Shipyard")
	require.Len(t, spans, 2)
	assert.Equal(t, "cosco_dalian", spans[0].Match.Canonical)
	assert.Equal(t, "dalian", spans[1].Match.Canonical)
}

func TestScanKeepsWordBoundariesInsideText(t *testing.T) {
	t.Parallel()

	spans := ActivityKeywords.Scan("armed and unarmed")
	require.Len(t, spans, 1)
	assert.Equal(t, 0, spans[0].Start)
	assert.Equal(t, 5, spans[0].End)
}

func TestExtractValidation(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	_, err := ex.Extract(domain.Article{ID: "a2", Title: "ZHONG DA 79"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExtractNoMatchesIsEmpty(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article("the weather was mild and the harbour stayed quiet."))
	require.NoError(t, err)
	require.NotNil(t, entities)
	assert.Empty(t, entities)
}

func TestExtractPatternVesselBoost(t *testing.T) {
	t.Parallel()

	ex := New(nil)

	entities, err := ex.Extract(article("The MV ORIENT STAR was converted at Jiangnan Shipyard and fitted with VLS cells."))
	require.NoError(t, err)
	vessels := ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 1)
	assert.Equal(t, "ORIENT STAR", vessels[0].Normalized)
	assert.Equal(t, domain.MethodPattern, vessels[0].Provenance.ExtractionMethod)
	assert.InDelta(t, 0.80, vessels[0].Confidence, 1e-9)
	assert.Contains(t, vessels[0].Provenance.Reasoning, "3 nearby activity cue(s)")

	entities, err = ex.Extract(article("Reporters saw the MV ORIENT STAR near the pier."))
	require.NoError(t, err)
	vessels = ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 1)
	assert.InDelta(t, 0.50, vessels[0].Confidence, 1e-9)
}

func TestExtractIdentifiers(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article("AIS data shows MMSI 413000000 loitering; a second contact reported IMO 9876543."))
	require.NoError(t, err)

	vessels := ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 2)

	assert.Equal(t, "mmsi", vessels[0].Category)
	assert.Equal(t, "413000000", vessels[0].Normalized)
	assert.Equal(t, "1", vessels[0].VesselID)
	assert.Equal(t, 0.80, vessels[0].Confidence)

	assert.Equal(t, "imo", vessels[1].Category)
	assert.Empty(t, vessels[1].VesselID)
	assert.Equal(t, 0.85, vessels[1].Confidence)
}

func TestSnippetIsBoundedAndValidUTF8(t *testing.T) {
	t.Parallel()

	filler := strings.Repeat("é ", 300)
	ex := New([]domain.TrackedVessel{zhongDa()})
	entities, err := ex.Extract(article(filler + "ZHONG DA 79" + filler))
	require.NoError(t, err)

	vessels := ofType(entities, domain.EntityVessel)
	require.Len(t, vessels, 1)
	snip := vessels[0].Provenance.OriginalText
	assert.True(t, utf8.ValidString(snip))
	assert.True(t, strings.HasPrefix(snip, "..."))
	assert.True(t, strings.HasSuffix(snip, "..."))
	assert.Contains(t, snip, "ZHONG DA 79")
	assert.LessOrEqual(t, len(snip), 2*defaultSnippetWindow+len("ZHONG DA 79")+12)
}

func TestExtractIsDeterministic(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})
	a := article("ZHONG DA 79, an arsenal ship refit at Longhai Shipyard, carries VLS and CIWS near the Taiwan Strait.")
	first, err := ex.Extract(a)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := ex.Extract(a)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	ex := New([]domain.TrackedVessel{zhongDa()})

	m, ok := ex.Lookup("zhongda79")
	require.True(t, ok)
	assert.Equal(t, domain.EntityVessel, m.Type)
	assert.Equal(t, "1", m.VesselID)

	m, ok = ex.Lookup("Phalanx")
	require.True(t, ok)
	assert.Equal(t, domain.EntityWeaponSystem, m.Type)
	assert.Equal(t, WeaponSystemConfidence, m.Confidence)

	_, ok = ex.Lookup("banana")
	assert.False(t, ok)
}
