package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// DashboardQueriesUseCase serves the read-only views. Every query reads the
// committed snapshots, so the dashboard never observes a half-finished run.
type DashboardQueriesUseCase struct {
	profiles     []domain.Profile
	historyStore port.HistoryStorePort
	stateStore   port.StateStorePort
	runStore     port.RunStorePort
}

func NewDashboardQueriesUseCase(
	profiles []domain.Profile,
	historyStore port.HistoryStorePort,
	stateStore port.StateStorePort,
	runStore port.RunStorePort,
) *DashboardQueriesUseCase {
	return &DashboardQueriesUseCase{
		profiles:     profiles,
		historyStore: historyStore,
		stateStore:   stateStore,
		runStore:     runStore,
	}
}

// PriceHistory returns every tracked listing keyed by id, stale ones included.
func (uc *DashboardQueriesUseCase) PriceHistory(ctx context.Context) (map[string]*domain.Listing, error) {
	history, err := uc.historyStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	return history.Listings, nil
}

// ProfileStates returns the per-profile presence bookkeeping.
func (uc *DashboardQueriesUseCase) ProfileStates(ctx context.Context) (map[string]*domain.ProfileState, error) {
	states, err := uc.stateStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile states: %w", err)
	}
	return states, nil
}

// LastRun returns the most recent run report, nil before the first run.
func (uc *DashboardQueriesUseCase) LastRun(ctx context.Context) (*domain.RunReport, error) {
	return uc.runStore.LastReport(ctx)
}

// Market recomputes the market view from the listings that are still live,
// so the dashboard stays meaningful between runs.
func (uc *DashboardQueriesUseCase) Market(ctx context.Context) (*domain.MarketSnapshot, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"use_case": "DashboardQueries"})

	history, err := uc.historyStore.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}

	now := time.Now()
	snapshots := make([]domain.ProfileSnapshot, 0, len(uc.profiles))
	for _, profile := range uc.profiles {
		snapshots = append(snapshots, domain.AggregateProfile(profile.Name, now, history.ActiveProfileListings(profile.Name)))
	}
	market := domain.AggregateMarket(now, snapshots)

	last, err := uc.runStore.LastReport(ctx)
	if err != nil {
		logger.Warn("Could not read the last run report for the declared total", port.Fields{"error": err.Error()})
	} else if last != nil {
		market.DeclaredTotal = last.MarketTotal
	}
	return &market, nil
}
