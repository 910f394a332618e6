package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// StateStoreAdapter persists per-profile presence state (current ids, gone
// ids, daily history) in a single JSON file with the same staged-replace
// discipline as the history store.
type StateStoreAdapter struct {
	path   string
	logger port.LoggerPort
}

func NewStateStoreAdapter(path string, logger port.LoggerPort) (*StateStoreAdapter, error) {
	if path == "" {
		return nil, fmt.Errorf("state store path cannot be empty")
	}
	return &StateStoreAdapter{path: path, logger: logger}, nil
}

func (a *StateStoreAdapter) Load(ctx context.Context) (map[string]*domain.ProfileState, error) {
	body, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*domain.ProfileState), nil
		}
		return nil, fmt.Errorf("state store: read %s: %w: %w", a.path, domain.ErrPersistence, err)
	}

	states := make(map[string]*domain.ProfileState)
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("state store: parse %s: %w: %w", a.path, domain.ErrPersistence, err)
	}
	return states, nil
}

func (a *StateStoreAdapter) Commit(ctx context.Context, states map[string]*domain.ProfileState) error {
	body, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return fmt.Errorf("state store: marshal: %w: %w", domain.ErrPersistence, err)
	}

	if err := writeFileAtomic(a.path, body); err != nil {
		return fmt.Errorf("state store: commit %s: %w: %w", a.path, domain.ErrPersistence, err)
	}

	a.logger.Debug("Profile states committed", port.Fields{
		"path":     a.path,
		"profiles": len(states),
	})
	return nil
}
