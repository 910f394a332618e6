package usecases_port

import (
	"context"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// DashboardQueriesPort exposes the read-only views the dashboard pulls.
type DashboardQueriesPort interface {
	// PriceHistory returns every tracked listing with its full price series.
	PriceHistory(ctx context.Context) (map[string]*domain.Listing, error)

	// ProfileStates returns the per-profile presence state.
	ProfileStates(ctx context.Context) (map[string]*domain.ProfileState, error)

	// LastRun returns the report of the most recent run, nil before the
	// first one.
	LastRun(ctx context.Context) (*domain.RunReport, error)

	// Market aggregates the current non-stale listings into a market view.
	Market(ctx context.Context) (*domain.MarketSnapshot, error)
}
