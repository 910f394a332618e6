package port

import (
	"context"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// StateStorePort persists the per-profile presence states between runs.
// Same contract as the history store: errors are persistence failures.
type StateStorePort interface {
	Load(ctx context.Context) (map[string]*domain.ProfileState, error)

	Commit(ctx context.Context, states map[string]*domain.ProfileState) error
}

// RunStorePort keeps the most recent run report for the dashboard and for
// operators diagnosing a failed run.
type RunStorePort interface {
	WriteReport(ctx context.Context, report domain.RunReport) error

	LastReport(ctx context.Context) (*domain.RunReport, error)
}
