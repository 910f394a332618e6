package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// RunConfig carries the tunables of one monitoring pass.
type RunConfig struct {
	MinPrice           int
	MaxPrice           int
	ZeroRatioThreshold float64
	PriceChangeRatio   float64
	FetchCreatedDates  bool
}

// RunMonitoringUseCase walks every configured profile in one sequential pass:
// fetch cards, extract prices, fold the sightings into the history, aggregate,
// detect anomalies, commit, publish, export. A mutex serializes runs so the
// scheduler and the HTTP trigger can never interleave two passes.
type RunMonitoringUseCase struct {
	profiles     []domain.Profile
	fetcher      port.ProfileFetcherPort
	historyStore port.HistoryStorePort
	stateStore   port.StateStorePort
	runStore     port.RunStorePort
	alerts       port.AlertPublisherPort
	exporter     port.ListingExporterPort
	cfg          RunConfig

	mu sync.Mutex
}

// NewRunMonitoringUseCase wires the monitoring pass. The exporter may be nil
// when the tabular export is disabled; every other collaborator is required.
func NewRunMonitoringUseCase(
	profiles []domain.Profile,
	fetcher port.ProfileFetcherPort,
	historyStore port.HistoryStorePort,
	stateStore port.StateStorePort,
	runStore port.RunStorePort,
	alerts port.AlertPublisherPort,
	exporter port.ListingExporterPort,
	cfg RunConfig,
) *RunMonitoringUseCase {
	return &RunMonitoringUseCase{
		profiles:     profiles,
		fetcher:      fetcher,
		historyStore: historyStore,
		stateStore:   stateStore,
		runStore:     runStore,
		alerts:       alerts,
		exporter:     exporter,
		cfg:          cfg,
	}
}

// Execute runs one monitoring pass and blocks until it finishes. Returns
// domain.ErrRunInProgress without doing anything when a pass is in flight.
func (uc *RunMonitoringUseCase) Execute(ctx context.Context) (*domain.RunResult, error) {
	if !uc.mu.TryLock() {
		return nil, domain.ErrRunInProgress
	}
	defer uc.mu.Unlock()
	return uc.run(ctx)
}

// StartAsync launches one monitoring pass in the background, carrying the
// caller's logger and trace id into the detached context. Fails fast with
// domain.ErrRunInProgress when a pass is in flight.
func (uc *RunMonitoringUseCase) StartAsync(ctx context.Context) error {
	if !uc.mu.TryLock() {
		return domain.ErrRunInProgress
	}

	logger := contextkeys.LoggerFromContext(ctx)
	traceID := contextkeys.TraceIDFromContext(ctx)

	go func() {
		defer uc.mu.Unlock()
		bgCtx := contextkeys.ContextWithLogger(context.Background(), logger)
		if traceID != "" {
			bgCtx = contextkeys.ContextWithTraceID(bgCtx, traceID)
		}
		if _, err := uc.run(bgCtx); err != nil {
			logger.Error("Background monitoring run failed", err, nil)
		}
	}()
	return nil
}

func (uc *RunMonitoringUseCase) run(ctx context.Context) (*domain.RunResult, error) {
	baseLogger := contextkeys.LoggerFromContext(ctx)
	ucLogger := baseLogger.WithFields(port.Fields{"use_case": "RunMonitoring"})

	report := domain.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Status:    domain.RunCompleted,
	}
	runAt := report.StartedAt
	runLogger := ucLogger.WithFields(port.Fields{"run_id": report.RunID})
	runLogger.Info("Starting monitoring run", port.Fields{"profiles": len(uc.profiles)})

	history, err := uc.historyStore.Load(ctx)
	if err != nil {
		return uc.failRun(ctx, runLogger, report, nil, fmt.Errorf("load price history: %w", err))
	}
	states, err := uc.stateStore.Load(ctx)
	if err != nil {
		return uc.failRun(ctx, runLogger, report, nil, fmt.Errorf("load profile states: %w", err))
	}
	if states == nil {
		states = make(map[string]*domain.ProfileState)
	}

	var (
		snapshots   []domain.ProfileSnapshot
		crossChecks []domain.CrossCheck
		observed    []*domain.Listing
		problems    []string
	)

	for _, profile := range uc.profiles {
		profileLogger := runLogger.WithFields(port.Fields{"profile": profile.Name})
		profileCtx := contextkeys.ContextWithLogger(ctx, profileLogger)

		cards, declared, err := uc.fetcher.FetchCards(profileCtx, profile.URL)
		if err != nil {
			// A dead profile page degrades to zero cards; the other
			// profiles still run.
			profileLogger.Error("Profile fetch failed", err, port.Fields{"url": profile.URL})
			problems = append(problems, fmt.Sprintf("%s: fetch failed: %v", profile.Name, err))
			cards, declared = nil, -1
		}

		for _, card := range cards {
			candidates := domain.ScanPriceCandidates(card.Text)
			price, status := domain.SelectPrice(candidates, uc.cfg.MinPrice, uc.cfg.MaxPrice)
			firstSeen, collision := history.Record(card.StableKey, profile.Name, card.Title, card.URL, runAt, price, status, candidates)
			if collision {
				profileLogger.Warn("Two cards resolved to one listing id, kept the later sighting", port.Fields{
					"listing_id": card.StableKey,
					"position":   card.Position,
				})
			}
			switch status {
			case domain.StatusZeroAnomalous:
				profileLogger.Debug("Every price candidate fell outside the plausible range", port.Fields{
					"listing_id": card.StableKey,
					"candidates": candidates,
				})
			case domain.StatusUnparsed:
				profileLogger.Debug("No price candidates in card text", port.Fields{"listing_id": card.StableKey})
			}
			if firstSeen {
				profileLogger.Debug("First sighting of listing", port.Fields{
					"listing_id": card.StableKey,
					"price":      price,
				})
			}

			if uc.cfg.FetchCreatedDates && history.Listings[card.StableKey].Created.IsZero() {
				created, err := uc.fetcher.FetchCreatedAt(profileCtx, card.URL)
				if err != nil {
					profileLogger.Warn("Publication date fetch failed", port.Fields{
						"listing_id": card.StableKey,
						"error":      err.Error(),
					})
				} else if !created.IsZero() {
					history.SetCreated(card.StableKey, created)
				}
			}
		}

		scraped := len(cards)
		if declared >= 0 && declared != scraped {
			profileLogger.Warn("Scraped count differs from the page's declared count", port.Fields{
				"scraped":  scraped,
				"declared": declared,
			})
		}
		crossChecks = append(crossChecks, domain.CrossCheck{Profile: profile.Name, Scraped: scraped, Declared: declared})

		listings := history.ProfileListings(profile.Name)
		observed = append(observed, listings...)
		snapshot := domain.AggregateProfile(profile.Name, runAt, listings)
		snapshots = append(snapshots, snapshot)

		state := states[profile.Name]
		if state == nil {
			state = &domain.ProfileState{}
			states[profile.Name] = state
		}
		newCount, goneCount := state.Advance(profile.URL, history.ObservedIDs(profile.Name), runAt)
		report.NewListings += newCount
		report.GoneListings += goneCount

		profileLogger.Info("Profile scanned", port.Fields{
			"listings":      snapshot.ListingCount,
			"priced":        snapshot.PricedCount,
			"zero":          snapshot.ZeroCount,
			"average_price": snapshot.AveragePrice,
			"new":           newCount,
			"gone":          goneCount,
		})
	}

	report.StaleMarked = history.MarkStale()

	market := domain.AggregateMarket(runAt, snapshots)
	total, err := uc.fetcher.FetchMarketTotal(ctx)
	if err != nil {
		runLogger.Warn("Market total fetch failed", port.Fields{"error": err.Error()})
		problems = append(problems, fmt.Sprintf("market total fetch failed: %v", err))
	} else if total >= 0 {
		market.DeclaredTotal = total
	}

	alerts := domain.DetectZeroRatioAlerts(market.Profiles, uc.cfg.ZeroRatioThreshold)
	for _, alert := range alerts {
		runLogger.Warn("Zero-price ratio above threshold", port.Fields{
			"profile":   alert.Profile,
			"zero":      alert.ZeroCount,
			"listings":  alert.ListingCount,
			"ratio":     alert.Ratio,
			"threshold": alert.Threshold,
		})
	}

	var changes []domain.PriceChangeEvent
	for _, profile := range uc.profiles {
		changes = append(changes, domain.DetectPriceChanges(history, profile.Name, uc.cfg.PriceChangeRatio)...)
	}
	for _, event := range changes {
		runLogger.Info("Listing price moved beyond the change threshold", port.Fields{
			"listing_id":     event.ListingID,
			"previous_price": event.PreviousPrice,
			"new_price":      event.NewPrice,
			"change_ratio":   event.ChangeRatio,
		})
	}

	report.TotalListings = market.ListingCount
	report.PricedListings = market.PricedCount
	report.MarketTotal = market.DeclaredTotal
	report.CrossChecks = crossChecks
	report.AlertCount = len(alerts) + len(changes)

	if err := uc.historyStore.Commit(ctx, history); err != nil {
		return uc.failRun(ctx, runLogger, report, problems, fmt.Errorf("commit price history: %w", err))
	}
	if err := uc.stateStore.Commit(ctx, states); err != nil {
		return uc.failRun(ctx, runLogger, report, problems, fmt.Errorf("commit profile states: %w", err))
	}

	for _, alert := range alerts {
		if err := uc.alerts.PublishZeroRatioAlert(ctx, alert); err != nil {
			runLogger.Error("Failed to publish zero-ratio alert", err, port.Fields{"profile": alert.Profile})
			problems = append(problems, fmt.Sprintf("publish zero-ratio alert for %s: %v", alert.Profile, err))
		}
	}
	for _, event := range changes {
		if err := uc.alerts.PublishPriceChange(ctx, event); err != nil {
			runLogger.Error("Failed to publish price-change event", err, port.Fields{"listing_id": event.ListingID})
			problems = append(problems, fmt.Sprintf("publish price change for %s: %v", event.ListingID, err))
		}
	}

	if uc.exporter != nil {
		if err := uc.exporter.Append(ctx, runAt, observed); err != nil {
			runLogger.Error("Listing export failed", err, nil)
			problems = append(problems, fmt.Sprintf("listing export: %v", err))
		}
	}

	report.FinishedAt = time.Now()
	report.Problems = problems
	if err := uc.runStore.WriteReport(ctx, report); err != nil {
		runLogger.Error("Failed to write the run report", err, nil)
		return nil, fmt.Errorf("write run report: %w", err)
	}

	runLogger.Info("Monitoring run completed", port.Fields{
		"listings":    report.TotalListings,
		"priced":      report.PricedListings,
		"new":         report.NewListings,
		"gone":        report.GoneListings,
		"stale":       report.StaleMarked,
		"alerts":      report.AlertCount,
		"problems":    len(problems),
		"duration_ms": time.Since(report.StartedAt).Milliseconds(),
	})

	return &domain.RunResult{Report: report, Market: market, Alerts: alerts, Changes: changes}, nil
}

// failRun finalizes the report for a run that could not commit and records
// it best-effort. The returned error is always the cause.
func (uc *RunMonitoringUseCase) failRun(ctx context.Context, logger port.LoggerPort, report domain.RunReport, problems []string, cause error) (*domain.RunResult, error) {
	report.Status = domain.RunFailed
	report.FinishedAt = time.Now()
	report.Problems = append(problems, cause.Error())
	logger.Error("Monitoring run failed", cause, nil)
	if err := uc.runStore.WriteReport(ctx, report); err != nil {
		logger.Error("Failed to write the failed-run report", err, nil)
	}
	return nil, cause
}
