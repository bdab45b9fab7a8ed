package extraction

import "VesselOSINT/internal/domain"

// Confidence assigned per rule.
const (
	KnownVesselConfidence  = 0.95
	MMSIConfidence         = 0.80
	IMOConfidence          = 0.85
	PatternBaseConfidence  = 0.50
	PatternCueBoost        = 0.10
	PatternMaxConfidence   = 0.80
	ShipyardConfidence     = 0.90
	LocationConfidence     = 0.90
	WeaponSystemConfidence = 0.85
	ActivityTermConfidence = 0.70
	defaultSnippetWindow   = 100
	defaultCueWindow       = 80
)

var shipyardTerms = map[string][]string{
	"hudong-zhonghua":     {"Hudong-Zhonghua", "Hudong Zhonghua", "HDZH"},
	"jiangnan":            {"Jiangnan Shipyard", "Jiangnan"},
	"dalian":              {"Dalian Shipbuilding", "Dalian Shipyard", "DSIC"},
	"longhai":             {"Longhai Shipyard"},
	"wuchang":             {"Wuchang Shipbuilding", "Wuchang"},
	"guangzhou":           {"Guangzhou Shipyard", "GSI"},
	"huangpu":             {"Huangpu Shipbuilding", "Huangpu Wenchong"},
	"shanghai_waigaoqiao": {"Shanghai Waigaoqiao", "SWS"},
	"cosco_dalian":        {"COSCO Dalian", "COSCO Shipping Dalian"},
}

var weaponTerms = map[string][]string{
	"vls":                    {"VLS", "Vertical Launch System", "vertical launch", "missile cells"},
	"ciws":                   {"CIWS", "Close-In Weapon System", "Type 1130", "Phalanx", "Goalkeeper"},
	"containerized_missiles": {"containerized missile", "containerized missiles", "container missile", "modular missile"},
	"cruise_missile":         {"cruise missile", "CJ-10", "CJ-100", "YJ-18", "YJ-21", "YJ-83"},
	"anti_ship":              {"anti-ship missile", "AShM", "ship-killer"},
	"radar":                  {"radar system", "phased array", "fire control radar"},
	"decoy":                  {"decoy launcher", "Type 726", "chaff"},
	"torpedo":                {"torpedo", "anti-submarine"},
}

var locationTerms = map[string][]string{
	"taiwan_strait":   {"Taiwan Strait", "Formosa Strait"},
	"south_china_sea": {"South China Sea", "Spratly", "Paracel"},
	"east_china_sea":  {"East China Sea"},
	"yellow_sea":      {"Yellow Sea", "Bohai"},
	"shanghai":        {"Shanghai", "Huangpu River", "Yangtze River Delta"},
	"fujian":          {"Fujian", "Xiamen", "Fuzhou"},
	"longhai":         {"Longhai"},
	"guangdong":       {"Guangdong", "Shenzhen", "Hong Kong"},
	"hainan":          {"Hainan", "Sanya", "Yulin"},
}

var activityTerms = map[string][]string{
	domain.ActivityConversion:   {"converted", "conversion", "modified", "modification", "retrofitted", "refit"},
	domain.ActivityMilitary:     {"military", "naval", "PLA Navy", "warship", "arsenal"},
	domain.ActivityWeapons:      {"armed", "weaponized", "missile", "missiles", "launcher", "launchers", "weapon", "weapons"},
	domain.ActivitySurveillance: {"monitoring", "tracking", "surveillance", "reconnaissance"},
	domain.ActivityExercise:     {"exercise", "drill", "maneuver", "deployment"},
	domain.ActivityTransit:      {"transit", "passage", "sailed", "departed", "arrived"},
}

// Built-in dictionaries. They are never mutated after package init.
var (
	Shipyards        = NewDictionary("shipyards", domain.EntityShipyard, ShipyardConfidence, shipyardTerms)
	WeaponSystems    = NewDictionary("weapon systems", domain.EntityWeaponSystem, WeaponSystemConfidence, weaponTerms)
	Locations        = NewDictionary("locations", domain.EntityLocation, LocationConfidence, locationTerms)
	ActivityKeywords = NewDictionary("activity keywords", domain.EntityKeyword, ActivityTermConfidence, activityTerms)
)

// DefaultDictionaries returns the built-in tables in registration order.
func DefaultDictionaries() []Dictionary {
	return []Dictionary{Shipyards, WeaponSystems, Locations, ActivityKeywords}
}

var commonWords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "WITH": {}, "FROM": {}, "INTO": {}, "THAT": {}, "THIS": {},
	"CHINA": {}, "CHINESE": {}, "RUSSIA": {}, "RUSSIAN": {}, "UNITED": {}, "STATES": {},
	"NAVY": {}, "MILITARY": {}, "REPORT": {}, "NEWS": {}, "ARTICLE": {}, "SOURCE": {},
}
