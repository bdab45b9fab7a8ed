package roster

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"VesselOSINT/internal/domain"
	"VesselOSINT/internal/extraction"
)

// DictionarySpec is one extra term table supplied by analysts.
type DictionarySpec struct {
	Name       string              `yaml:"name"`
	Type       domain.EntityType   `yaml:"type"`
	Confidence float64             `yaml:"confidence"`
	Terms      map[string][]string `yaml:"terms"`
}

type dictionaryFile struct {
	Dictionaries []DictionarySpec `yaml:"dictionaries"`
}

var defaultConfidence = map[domain.EntityType]float64{
	domain.EntityShipyard:     extraction.ShipyardConfidence,
	domain.EntityWeaponSystem: extraction.WeaponSystemConfidence,
	domain.EntityLocation:     extraction.LocationConfidence,
	domain.EntityKeyword:      extraction.ActivityTermConfidence,
}

// ParseDictionaries builds dictionaries from a YAML document. Vessel tables are
// rejected: vessels come from the roster.
func ParseDictionaries(raw []byte) ([]extraction.Dictionary, error) {
	var file dictionaryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse dictionaries: %w", err)
	}

	dicts := make([]extraction.Dictionary, 0, len(file.Dictionaries))
	for i, spec := range file.Dictionaries {
		fallback, ok := defaultConfidence[spec.Type]
		if !ok {
			return nil, &domain.ConfigurationError{
				Setting: fmt.Sprintf("dictionaries[%d].type", i),
				Reason:  fmt.Sprintf("unsupported entity type %q", spec.Type),
			}
		}
		if spec.Name == "" {
			return nil, &domain.ConfigurationError{
				Setting: fmt.Sprintf("dictionaries[%d].name", i),
				Reason:  "is required",
			}
		}
		confidence := spec.Confidence
		switch {
		case confidence == 0:
			confidence = fallback
		case confidence < 0 || confidence > 1:
			return nil, &domain.ConfigurationError{
				Setting: fmt.Sprintf("dictionaries[%d].confidence", i),
				Reason:  fmt.Sprintf("must lie in (0,1], got %v", confidence),
			}
		}
		dicts = append(dicts, extraction.NewDictionary(spec.Name, spec.Type, confidence, spec.Terms))
	}
	return dicts, nil
}

// LoadDictionaries reads extra dictionaries from path.
func LoadDictionaries(path string) ([]extraction.Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dictionaries %s: %w", path, err)
	}
	return ParseDictionaries(raw)
}
