package persona

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Personas []Persona `yaml:"personas"`
}

// LoadFile reads a YAML persona catalog. Entries missing flavour lists inherit
// the built-in penguin endings and sigma roasts.
func LoadFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML persona catalog.
func Parse(data []byte) ([]Persona, error) {
	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}
	if len(catalog.Personas) == 0 {
		return nil, fmt.Errorf("persona catalog is empty")
	}

	seen := make(map[string]struct{}, len(catalog.Personas))
	items := make([]Persona, 0, len(catalog.Personas))
	for i, p := range catalog.Personas {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("persona #%d has no id", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
		items = append(items, withDefaults(p))
	}
	return items, nil
}
