package configs

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bonaventura-EW/olx-monitor/internal/contracts"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// LoadProfiles reads the monitored profiles file, validates it against the
// embedded schema and rejects duplicate profile names.
func LoadProfiles(path string) ([]domain.Profile, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	if err := contracts.ValidateProfilesConfig(body); err != nil {
		return nil, fmt.Errorf("profiles file %s: %w", path, err)
	}

	var doc struct {
		Profiles []domain.Profile `json:"profiles"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(doc.Profiles))
	for _, p := range doc.Profiles {
		if seen[p.Name] {
			return nil, fmt.Errorf("profiles file %s: duplicate profile name %q", path, p.Name)
		}
		seen[p.Name] = true
	}

	return doc.Profiles, nil
}
