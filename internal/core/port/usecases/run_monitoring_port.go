package usecases_port

import (
	"context"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// RunMonitoringPort executes one full monitoring pass over all configured
// profiles and returns the run's outputs. Runs are serialized: a second
// Execute while one is in flight fails fast with domain.ErrRunInProgress.
type RunMonitoringPort interface {
	Execute(ctx context.Context) (*domain.RunResult, error)

	// StartAsync kicks off a run in the background and returns immediately,
	// or domain.ErrRunInProgress when one is already running.
	StartAsync(ctx context.Context) error
}
