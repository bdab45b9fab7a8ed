package correlation

import (
	"sort"
	"strings"

	"VesselOSINT/internal/domain"
)

// profile summarizes the entity mix of one (article, vessel) pair.
type profile struct {
	types      map[domain.EntityType]bool
	activities map[string]bool
}

func newProfile(entities []domain.Entity) profile {
	p := profile{
		types:      make(map[domain.EntityType]bool),
		activities: make(map[string]bool),
	}
	for _, e := range entities {
		p.types[e.Type] = true
		if e.Type == domain.EntityKeyword {
			p.activities[e.Category] = true
		}
	}
	return p
}

func (p profile) has(t domain.EntityType) bool { return p.types[t] }

func (p profile) activity(category string) bool { return p.activities[category] }

type eventRule struct {
	eventType domain.EventType
	severity  domain.Severity
	matches   func(profile) bool
}

// eventRules is evaluated top to bottom; the first match wins.
var eventRules = []eventRule{
	{domain.EventWeaponsObserved, domain.SeverityCritical, func(p profile) bool {
		return p.has(domain.EntityWeaponSystem) && p.has(domain.EntityKeyword)
	}},
	{domain.EventModificationDetected, domain.SeverityHigh, func(p profile) bool {
		return p.activity(domain.ActivityConversion)
	}},
	{domain.EventShipyardEntry, domain.SeverityHigh, func(p profile) bool {
		return p.has(domain.EntityShipyard)
	}},
	{domain.EventAnomalyDetected, domain.SeverityHigh, func(p profile) bool {
		return p.activity(domain.ActivityMilitary) || p.has(domain.EntityWeaponSystem)
	}},
	{domain.EventExerciseActivity, domain.SeverityMedium, func(p profile) bool {
		return p.activity(domain.ActivityExercise)
	}},
	{domain.EventTransitActivity, domain.SeverityLow, func(p profile) bool {
		return p.activity(domain.ActivityTransit)
	}},
}

// InferEventType applies the rule table to a pair's entities. Any weapons
// evidence raises the severity to critical whatever the type.
func InferEventType(entities []domain.Entity) (domain.EventType, domain.Severity) {
	p := newProfile(entities)

	eventType, severity := domain.EventOSINTReport, domain.SeverityInfo
	for _, rule := range eventRules {
		if rule.matches(p) {
			eventType, severity = rule.eventType, rule.severity
			break
		}
	}
	if p.has(domain.EntityWeaponSystem) || p.activity(domain.ActivityWeapons) {
		severity = domain.SeverityCritical
	}
	return eventType, severity
}

// pairEntities keeps every non-vessel entity plus the vessel mentions that
// point at this vessel.
func pairEntities(entities []domain.Entity, vessel domain.TrackedVessel) []domain.Entity {
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Type != domain.EntityVessel || refersTo(e, vessel) {
			out = append(out, e)
		}
	}
	return out
}

func refersTo(e domain.Entity, vessel domain.TrackedVessel) bool {
	if e.VesselID != "" {
		return e.VesselID == vessel.ID
	}
	switch e.Provenance.ExtractionMethod {
	case domain.MethodIdentifier:
		imo := strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(vessel.IMO), "IMO"))
		return (e.Category == "mmsi" && e.Normalized == vessel.MMSI) || (e.Category == "imo" && e.Normalized == imo)
	case domain.MethodPattern:
		found := domain.CompactName(e.Normalized)
		if len(found) < 3 {
			return false
		}
		for _, name := range vessel.Names() {
			compact := domain.CompactName(name)
			if strings.Contains(found, compact) || strings.Contains(compact, found) {
				return true
			}
		}
	}
	return false
}

const evidenceEntities = 3

// strongestEvidence orders vessel mentions first, then by confidence, and
// keeps the top few.
func strongestEvidence(entities []domain.Entity) []domain.Entity {
	ranked := append([]domain.Entity(nil), entities...)
	sort.SliceStable(ranked, func(i, j int) bool {
		vi, vj := ranked[i].Type == domain.EntityVessel, ranked[j].Type == domain.EntityVessel
		if vi != vj {
			return vi
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Start < ranked[j].Start
	})
	if len(ranked) > evidenceEntities {
		ranked = ranked[:evidenceEntities]
	}
	return ranked
}
