package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// RunStoreAdapter keeps the report of the most recent run in a JSON file,
// overwritten atomically after every run.
type RunStoreAdapter struct {
	path   string
	logger port.LoggerPort
}

func NewRunStoreAdapter(path string, logger port.LoggerPort) (*RunStoreAdapter, error) {
	if path == "" {
		return nil, fmt.Errorf("run store path cannot be empty")
	}
	return &RunStoreAdapter{path: path, logger: logger}, nil
}

func (a *RunStoreAdapter) WriteReport(ctx context.Context, report domain.RunReport) error {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("run store: marshal: %w: %w", domain.ErrPersistence, err)
	}

	if err := writeFileAtomic(a.path, body); err != nil {
		return fmt.Errorf("run store: commit %s: %w: %w", a.path, domain.ErrPersistence, err)
	}
	return nil
}

// LastReport returns the report of the previous run, or nil when no run has
// completed yet.
func (a *RunStoreAdapter) LastReport(ctx context.Context) (*domain.RunReport, error) {
	body, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("run store: read %s: %w: %w", a.path, domain.ErrPersistence, err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("run store: parse %s: %w: %w", a.path, domain.ErrPersistence, err)
	}
	return &report, nil
}
