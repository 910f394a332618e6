package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

type fetchedPage struct {
	cards    []domain.RawCard
	declared int
	err      error
}

type fakeFetcher struct {
	pages        map[string]fetchedPage
	marketTotal  int
	marketErr    error
	createdAt    map[string]time.Time
	createdCalls int
}

func (f *fakeFetcher) FetchCards(ctx context.Context, profileURL string) ([]domain.RawCard, int, error) {
	page, ok := f.pages[profileURL]
	if !ok {
		return nil, -1, nil
	}
	if page.err != nil {
		return nil, -1, page.err
	}
	return page.cards, page.declared, nil
}

func (f *fakeFetcher) FetchMarketTotal(ctx context.Context) (int, error) {
	if f.marketErr != nil {
		return -1, f.marketErr
	}
	return f.marketTotal, nil
}

func (f *fakeFetcher) FetchCreatedAt(ctx context.Context, adURL string) (time.Time, error) {
	f.createdCalls++
	return f.createdAt[adURL], nil
}

type memHistoryStore struct {
	listings  map[string]*domain.Listing
	loadErr   error
	commitErr error
	commits   int
}

func (s *memHistoryStore) Load(ctx context.Context) (*domain.History, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	listings := make(map[string]*domain.Listing, len(s.listings))
	for id, l := range s.listings {
		cp := *l
		cp.Series = append([]domain.PricePoint(nil), l.Series...)
		listings[id] = &cp
	}
	return domain.NewHistoryFrom(listings), nil
}

func (s *memHistoryStore) Commit(ctx context.Context, history *domain.History) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	s.listings = history.Listings
	return nil
}

type memStateStore struct {
	states    map[string]*domain.ProfileState
	commitErr error
	commits   int
}

func (s *memStateStore) Load(ctx context.Context) (map[string]*domain.ProfileState, error) {
	states := make(map[string]*domain.ProfileState, len(s.states))
	for name, st := range s.states {
		cp := *st
		cp.Current = append([]string(nil), st.Current...)
		cp.Gone = append([]string(nil), st.Gone...)
		cp.History = append([]domain.StateHistoryEntry(nil), st.History...)
		states[name] = &cp
	}
	return states, nil
}

func (s *memStateStore) Commit(ctx context.Context, states map[string]*domain.ProfileState) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits++
	s.states = states
	return nil
}

type memRunStore struct {
	mu      sync.Mutex
	reports []domain.RunReport
}

func (s *memRunStore) WriteReport(ctx context.Context, report domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *memRunStore) LastReport(ctx context.Context) (*domain.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.reports) == 0 {
		return nil, nil
	}
	report := s.reports[len(s.reports)-1]
	return &report, nil
}

type capturePublisher struct {
	alerts  []domain.ZeroRatioAlert
	changes []domain.PriceChangeEvent
	err     error
}

func (p *capturePublisher) PublishZeroRatioAlert(ctx context.Context, alert domain.ZeroRatioAlert) error {
	if p.err != nil {
		return p.err
	}
	p.alerts = append(p.alerts, alert)
	return nil
}

func (p *capturePublisher) PublishPriceChange(ctx context.Context, event domain.PriceChangeEvent) error {
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, event)
	return nil
}

type captureExporter struct {
	calls [][]*domain.Listing
}

func (e *captureExporter) Append(ctx context.Context, runAt time.Time, listings []*domain.Listing) error {
	e.calls = append(e.calls, listings)
	return nil
}

func testRunConfig() RunConfig {
	return RunConfig{
		MinPrice:           300,
		MaxPrice:           20000,
		ZeroRatioThreshold: 0.5,
		PriceChangeRatio:   0.15,
	}
}

func card(key, title, text string) domain.RawCard {
	return domain.RawCard{
		StableKey: key,
		Title:     title,
		URL:       "https://www.olx.pl/d/oferta/" + key + ".html",
		Text:      text,
	}
}

func TestRunMonitoring(t *testing.T) {
	profiles := []domain.Profile{
		{Name: "centrum", URL: "https://www.olx.pl/centrum/"},
		{Name: "tanie", URL: "https://www.olx.pl/tanie/"},
	}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/centrum/": {
				cards: []domain.RawCard{
					card("kawalerka-CID3-IDaaa11", "Kawalerka na Wieniawie", "Kawalerka na Wieniawie 1 500 zł 25 m²"),
					card("pokoj-CID3-IDbbb22", "Pokój przy UMCS", "Pokój przy UMCS 800 zł"),
					card("pokoj-CID3-IDccc33", "Pokój super okazja", "Pokój super okazja pisz na priv"),
				},
				declared: 3,
			},
			"https://www.olx.pl/tanie/": {
				cards: []domain.RawCard{
					card("stancja-CID3-IDddd44", "Stancja dla studentki", "Stancja dla studentki 700 zł"),
				},
				declared: 1,
			},
		},
		marketTotal: 715,
	}
	historyStore := &memHistoryStore{}
	stateStore := &memStateStore{}
	runStore := &memRunStore{}
	publisher := &capturePublisher{}
	exporter := &captureExporter{}

	uc := NewRunMonitoringUseCase(profiles, fetcher, historyStore, stateStore, runStore, publisher, exporter, testRunConfig())
	result, err := uc.Execute(context.Background())

	require.NoError(t, err)
	require.NotNil(t, result)

	report := result.Report
	assert.Equal(t, domain.RunCompleted, report.Status)
	assert.Equal(t, 4, report.TotalListings)
	assert.Equal(t, 3, report.PricedListings)
	assert.Equal(t, 4, report.NewListings)
	assert.Equal(t, 0, report.GoneListings)
	assert.Equal(t, 0, report.StaleMarked)
	assert.Equal(t, 715, report.MarketTotal)
	assert.Equal(t, 0, report.AlertCount)
	assert.Empty(t, report.Problems)
	assert.Contains(t, report.CrossChecks, domain.CrossCheck{Profile: "centrum", Scraped: 3, Declared: 3})

	require.Len(t, result.Market.Profiles, 2)
	assert.Equal(t, 715, result.Market.DeclaredTotal)
	assert.InDelta(t, 1000.0, result.Market.AveragePrice, 0.001)

	assert.Equal(t, 1, historyStore.commits)
	assert.Equal(t, 1, stateStore.commits)
	require.Contains(t, historyStore.listings, "kawalerka-CID3-IDaaa11")
	assert.Equal(t, 1500, historyStore.listings["kawalerka-CID3-IDaaa11"].SelectedPrice)
	assert.Equal(t, domain.StatusUnparsed, historyStore.listings["pokoj-CID3-IDccc33"].Status)

	require.Contains(t, stateStore.states, "centrum")
	assert.Len(t, stateStore.states["centrum"].Current, 3)

	require.Len(t, exporter.calls, 1)
	assert.Len(t, exporter.calls[0], 4)

	last, err := runStore.LastReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, report.RunID, last.RunID)
}

func TestRunMonitoringHistoryCommitFailureAbortsRun(t *testing.T) {
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/centrum/": {
				cards:    []domain.RawCard{card("kawalerka-CID3-IDaaa11", "Kawalerka", "Kawalerka 1 500 zł")},
				declared: 1,
			},
		},
	}
	historyStore := &memHistoryStore{
		commitErr: fmt.Errorf("history store: replace snapshot: %w: disk full", domain.ErrPersistence),
	}
	stateStore := &memStateStore{}
	runStore := &memRunStore{}
	publisher := &capturePublisher{}

	uc := NewRunMonitoringUseCase(profiles, fetcher, historyStore, stateStore, runStore, publisher, nil, testRunConfig())
	result, err := uc.Execute(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Nil(t, result)

	assert.Equal(t, 0, stateStore.commits, "nothing past the failed commit may be persisted")
	assert.Empty(t, publisher.alerts)
	assert.Empty(t, publisher.changes)
	assert.Nil(t, historyStore.listings, "the prior snapshot stays untouched")

	last, lastErr := runStore.LastReport(context.Background())
	require.NoError(t, lastErr)
	require.NotNil(t, last)
	assert.Equal(t, domain.RunFailed, last.Status)
	require.NotEmpty(t, last.Problems)
	assert.Contains(t, last.Problems[len(last.Problems)-1], "commit price history")
}

func TestRunMonitoringRerunAfterFailureSucceeds(t *testing.T) {
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/centrum/": {
				cards:    []domain.RawCard{card("kawalerka-CID3-IDaaa11", "Kawalerka", "Kawalerka 1 500 zł")},
				declared: 1,
			},
		},
	}
	historyStore := &memHistoryStore{
		commitErr: fmt.Errorf("%w: disk full", domain.ErrPersistence),
	}
	runStore := &memRunStore{}

	uc := NewRunMonitoringUseCase(profiles, fetcher, historyStore, &memStateStore{}, runStore, &capturePublisher{}, nil, testRunConfig())

	_, err := uc.Execute(context.Background())
	require.Error(t, err)

	historyStore.commitErr = nil
	result, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, result.Report.Status)
	require.Contains(t, historyStore.listings, "kawalerka-CID3-IDaaa11")
	assert.Len(t, historyStore.listings["kawalerka-CID3-IDaaa11"].Series, 1,
		"the failed run must not have leaked a price point into the snapshot")

	require.Len(t, runStore.reports, 2)
	assert.Equal(t, domain.RunFailed, runStore.reports[0].Status)
	assert.Equal(t, domain.RunCompleted, runStore.reports[1].Status)
}

func TestRunMonitoringZeroRatioAlert(t *testing.T) {
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/centrum/": {
				cards: []domain.RawCard{
					card("pokoj-CID3-IDbbb22", "Pokój okazja", "Pokój okazja pisz"),
					card("pokoj-CID3-IDccc33", "Mieszkanie pisz priv", "Mieszkanie pisz priv"),
				},
				declared: 2,
			},
		},
	}
	publisher := &capturePublisher{}

	uc := NewRunMonitoringUseCase(profiles, fetcher, &memHistoryStore{}, &memStateStore{}, &memRunStore{}, publisher, nil, testRunConfig())
	result, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, result.Report.Status, "anomalies are data, not a run failure")
	assert.Equal(t, 1, result.Report.AlertCount)

	require.Len(t, publisher.alerts, 1)
	alert := publisher.alerts[0]
	assert.Equal(t, "centrum", alert.Profile)
	assert.Equal(t, 2, alert.ZeroCount)
	assert.Equal(t, 2, alert.ListingCount)
	assert.InDelta(t, 1.0, alert.Ratio, 0.001)
}

func TestRunMonitoringPriceChangeAcrossRuns(t *testing.T) {
	profileURL := "https://www.olx.pl/centrum/"
	profiles := []domain.Profile{{Name: "centrum", URL: profileURL}}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			profileURL: {
				cards: []domain.RawCard{
					card("kawalerka-CID3-IDaaa11", "Kawalerka", "Kawalerka 1 000 zł"),
					card("pokoj-CID3-IDbbb22", "Pokój", "Pokój stabilny 900 zł"),
				},
				declared: 2,
			},
		},
	}
	historyStore := &memHistoryStore{}
	stateStore := &memStateStore{}
	publisher := &capturePublisher{}

	uc := NewRunMonitoringUseCase(profiles, fetcher, historyStore, stateStore, &memRunStore{}, publisher, nil, testRunConfig())

	_, err := uc.Execute(context.Background())
	require.NoError(t, err)
	require.Empty(t, publisher.changes)

	fetcher.pages[profileURL] = fetchedPage{
		cards: []domain.RawCard{
			card("kawalerka-CID3-IDaaa11", "Kawalerka", "Kawalerka 1 400 zł"),
			card("pokoj-CID3-IDbbb22", "Pokój", "Pokój stabilny 900 zł"),
		},
		declared: 2,
	}
	result, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Report.NewListings, "a re-run resolves the same cards to the same ids")
	assert.Equal(t, 0, result.Report.StaleMarked)
	assert.Equal(t, 1, result.Report.AlertCount)

	require.Len(t, publisher.changes, 1)
	change := publisher.changes[0]
	assert.Equal(t, "kawalerka-CID3-IDaaa11", change.ListingID)
	assert.Equal(t, 1000, change.PreviousPrice)
	assert.Equal(t, 1400, change.NewPrice)
	assert.InDelta(t, 0.4, change.ChangeRatio, 0.001)

	assert.Len(t, historyStore.listings["kawalerka-CID3-IDaaa11"].Series, 2)
}

func TestRunMonitoringFetchFailureDegradesProfile(t *testing.T) {
	profiles := []domain.Profile{
		{Name: "martwy", URL: "https://www.olx.pl/martwy/"},
		{Name: "zdrowy", URL: "https://www.olx.pl/zdrowy/"},
	}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/martwy/": {err: errors.New("status 403")},
			"https://www.olx.pl/zdrowy/": {
				cards:    []domain.RawCard{card("pokoj-CID3-IDbbb22", "Pokój przy UMCS", "Pokój przy UMCS 800 zł")},
				declared: 1,
			},
		},
	}
	stateStore := &memStateStore{}
	runStore := &memRunStore{}

	uc := NewRunMonitoringUseCase(profiles, fetcher, &memHistoryStore{}, stateStore, runStore, &capturePublisher{}, nil, testRunConfig())
	result, err := uc.Execute(context.Background())

	require.NoError(t, err, "one dead profile page must not abort the pass")
	assert.Equal(t, domain.RunCompleted, result.Report.Status)
	assert.Equal(t, 1, result.Report.TotalListings)
	require.Len(t, result.Report.Problems, 1)
	assert.Contains(t, result.Report.Problems[0], "martwy: fetch failed")
	assert.Contains(t, result.Report.CrossChecks, domain.CrossCheck{Profile: "martwy", Scraped: 0, Declared: -1})
	assert.Equal(t, 1, stateStore.commits)
}

func TestRunMonitoringPublishFailureIsNonFatal(t *testing.T) {
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/centrum/": {
				cards:    []domain.RawCard{card("pokoj-CID3-IDccc33", "Pokój okazja", "Pokój okazja pisz")},
				declared: 1,
			},
		},
	}
	publisher := &capturePublisher{err: errors.New("broker down")}

	uc := NewRunMonitoringUseCase(profiles, fetcher, &memHistoryStore{}, &memStateStore{}, &memRunStore{}, publisher, nil, testRunConfig())
	result, err := uc.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, result.Report.Status)
	require.NotEmpty(t, result.Report.Problems)
	assert.Contains(t, result.Report.Problems[0], "publish zero-ratio alert")
}

func TestRunMonitoringFetchesCreatedDates(t *testing.T) {
	adURL := "https://www.olx.pl/d/oferta/kawalerka-CID3-IDaaa11.html"
	created := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	fetcher := &fakeFetcher{
		pages: map[string]fetchedPage{
			"https://www.olx.pl/centrum/": {
				cards:    []domain.RawCard{card("kawalerka-CID3-IDaaa11", "Kawalerka", "Kawalerka 1 500 zł")},
				declared: 1,
			},
		},
		createdAt: map[string]time.Time{adURL: created},
	}
	historyStore := &memHistoryStore{}

	cfg := testRunConfig()
	cfg.FetchCreatedDates = true
	uc := NewRunMonitoringUseCase(profiles, fetcher, historyStore, &memStateStore{}, &memRunStore{}, &capturePublisher{}, nil, cfg)

	_, err := uc.Execute(context.Background())
	require.NoError(t, err)
	require.Contains(t, historyStore.listings, "kawalerka-CID3-IDaaa11")
	assert.True(t, historyStore.listings["kawalerka-CID3-IDaaa11"].Created.Equal(created))
	assert.Equal(t, 1, fetcher.createdCalls)

	_, err = uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.createdCalls, "a known publication date is not refetched")
}

type gatedFetcher struct {
	entered chan struct{}
	release chan struct{}
}

func (f *gatedFetcher) FetchCards(ctx context.Context, profileURL string) ([]domain.RawCard, int, error) {
	select {
	case f.entered <- struct{}{}:
	default:
	}
	<-f.release
	return nil, -1, nil
}

func (f *gatedFetcher) FetchMarketTotal(ctx context.Context) (int, error) {
	return -1, nil
}

func (f *gatedFetcher) FetchCreatedAt(ctx context.Context, adURL string) (time.Time, error) {
	return time.Time{}, nil
}

func TestRunMonitoringRunsAreSerialized(t *testing.T) {
	fetcher := &gatedFetcher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	uc := NewRunMonitoringUseCase(profiles, fetcher, &memHistoryStore{}, &memStateStore{}, &memRunStore{}, &capturePublisher{}, nil, testRunConfig())

	firstDone := make(chan error, 1)
	go func() {
		_, err := uc.Execute(context.Background())
		firstDone <- err
	}()

	<-fetcher.entered

	_, err := uc.Execute(context.Background())
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(fetcher.release)
	require.NoError(t, <-firstDone)

	_, err = uc.Execute(context.Background())
	assert.NoError(t, err, "the lock is released once the pass finishes")
}

func TestRunMonitoringStartAsync(t *testing.T) {
	fetcher := &gatedFetcher{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}
	runStore := &memRunStore{}
	uc := NewRunMonitoringUseCase(profiles, fetcher, &memHistoryStore{}, &memStateStore{}, runStore, &capturePublisher{}, nil, testRunConfig())

	require.NoError(t, uc.StartAsync(context.Background()))

	<-fetcher.entered
	assert.ErrorIs(t, uc.StartAsync(context.Background()), domain.ErrRunInProgress)

	close(fetcher.release)
	assert.Eventually(t, func() bool {
		report, err := runStore.LastReport(context.Background())
		return err == nil && report != nil
	}, 2*time.Second, 10*time.Millisecond)
}
