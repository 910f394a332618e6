package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// HistoryStoreAdapter implements HistoryStorePort on a single JSON file.
// A commit stages the full serialized history next to the live file and
// replaces it with one rename, so an interrupted run leaves the previous
// snapshot untouched.
type HistoryStoreAdapter struct {
	path   string
	logger port.LoggerPort
}

// NewHistoryStoreAdapter creates the adapter for the given file path.
func NewHistoryStoreAdapter(path string, logger port.LoggerPort) (*HistoryStoreAdapter, error) {
	if path == "" {
		return nil, fmt.Errorf("history store path cannot be empty")
	}
	return &HistoryStoreAdapter{path: path, logger: logger}, nil
}

// Load reads the price history snapshot. A missing file is not an error:
// the first run starts with an empty history.
func (a *HistoryStoreAdapter) Load(ctx context.Context) (*domain.History, error) {
	body, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			a.logger.Info("History file not found, starting with an empty history", port.Fields{"path": a.path})
			return domain.NewHistory(), nil
		}
		return nil, fmt.Errorf("history store: read %s: %w: %w", a.path, domain.ErrPersistence, err)
	}

	listings := make(map[string]*domain.Listing)
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("history store: parse %s: %w: %w", a.path, domain.ErrPersistence, err)
	}

	return domain.NewHistoryFrom(listings), nil
}

// Commit serializes the whole history and atomically replaces the previous
// snapshot file.
func (a *HistoryStoreAdapter) Commit(ctx context.Context, history *domain.History) error {
	body, err := json.MarshalIndent(history.Listings, "", "  ")
	if err != nil {
		return fmt.Errorf("history store: marshal: %w: %w", domain.ErrPersistence, err)
	}

	if err := writeFileAtomic(a.path, body); err != nil {
		return fmt.Errorf("history store: commit %s: %w: %w", a.path, domain.ErrPersistence, err)
	}

	a.logger.Debug("History committed", port.Fields{
		"path":     a.path,
		"listings": len(history.Listings),
	})
	return nil
}
