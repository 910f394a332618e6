package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

type stubRenderer struct {
	rendered *domain.WeeklyReport
}

func (r *stubRenderer) Render(report domain.WeeklyReport) (*port.RenderedReport, error) {
	r.rendered = &report
	return &port.RenderedReport{Subject: "OLX Monitor - raport tygodniowy", Text: "raport"}, nil
}

type stubSender struct {
	sent []*port.RenderedReport
	err  error
}

func (s *stubSender) Send(ctx context.Context, msg *port.RenderedReport) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubCommentary struct {
	commentary *domain.MarketCommentary
	err        error
	calls      int
}

func (c *stubCommentary) MarketCommentary(ctx context.Context, report domain.WeeklyReport) (*domain.MarketCommentary, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.commentary, nil
}

func weeklyFixtureStores(now time.Time) (*memHistoryStore, *memStateStore) {
	historyStore := &memHistoryStore{listings: map[string]*domain.Listing{
		"kawalerka-CID3-IDaaa11": {
			ID: "kawalerka-CID3-IDaaa11", Profile: "centrum",
			Status: domain.StatusPriced, SelectedPrice: 1400,
			Series: []domain.PricePoint{
				{Timestamp: now.AddDate(0, 0, -3), Price: 1000},
				{Timestamp: now, Price: 1400},
			},
		},
		"pokoj-CID3-IDbbb22": {
			ID: "pokoj-CID3-IDbbb22", Profile: "centrum",
			Status: domain.StatusPriced, SelectedPrice: 900,
			Series: []domain.PricePoint{
				{Timestamp: now.AddDate(0, 0, -3), Price: 900},
				{Timestamp: now, Price: 900},
			},
		},
	}}
	stateStore := &memStateStore{states: map[string]*domain.ProfileState{
		"centrum": {
			Current: []string{"kawalerka-CID3-IDaaa11", "pokoj-CID3-IDbbb22"},
			History: []domain.StateHistoryEntry{
				{Date: now.AddDate(0, 0, -1).Format("2006-01-02"), Total: 45, NewCount: 3, GoneCount: 1},
				{Date: now.Format("2006-01-02"), Total: 46, NewCount: 2, GoneCount: 1},
			},
		},
	}}
	return historyStore, stateStore
}

func TestBuildWeeklyReport(t *testing.T) {
	now := time.Now()
	historyStore, stateStore := weeklyFixtureStores(now)
	renderer := &stubRenderer{}
	sender := &stubSender{}
	commentary := &stubCommentary{commentary: &domain.MarketCommentary{Summary: []string{"Rynek stabilny."}}}
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}

	uc := NewBuildWeeklyReportUseCase(profiles, historyStore, stateStore, commentary, renderer, sender, 0.15)
	require.NoError(t, uc.Execute(context.Background()))

	require.Len(t, sender.sent, 1)
	require.NotNil(t, renderer.rendered)
	report := *renderer.rendered

	require.Len(t, report.Summaries, 1)
	summary := report.Summaries[0]
	assert.Equal(t, "centrum", summary.Profile)
	assert.Equal(t, 2, summary.DaysTracked)
	assert.Equal(t, 5, summary.TotalNew)
	assert.Equal(t, 2, summary.TotalGone)
	assert.Equal(t, 46, summary.LastTotal)
	assert.Equal(t, 1, summary.NetChange)

	assert.Equal(t, 2, report.Market.ListingCount)
	assert.InDelta(t, 1150.0, report.Market.AveragePrice, 0.001)

	require.Len(t, report.Changes, 1)
	assert.Equal(t, "kawalerka-CID3-IDaaa11", report.Changes[0].ListingID)
	assert.Equal(t, 1000, report.Changes[0].PreviousPrice)
	assert.Equal(t, 1400, report.Changes[0].NewPrice)

	assert.Equal(t, 1, commentary.calls)
	require.NotNil(t, report.Commentary)
	assert.Equal(t, []string{"Rynek stabilny."}, report.Commentary.Summary)
}

func TestBuildWeeklyReportExcludesStaleListings(t *testing.T) {
	now := time.Now()
	historyStore, stateStore := weeklyFixtureStores(now)
	historyStore.listings["pokoj-CID3-IDbbb22"].Stale = true
	renderer := &stubRenderer{}
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}

	uc := NewBuildWeeklyReportUseCase(profiles, historyStore, stateStore, nil, renderer, &stubSender{}, 0.15)
	require.NoError(t, uc.Execute(context.Background()))

	require.NotNil(t, renderer.rendered)
	assert.Equal(t, 1, renderer.rendered.Market.ListingCount)
}

func TestBuildWeeklyReportWithoutCommentaryCollaborator(t *testing.T) {
	now := time.Now()
	historyStore, stateStore := weeklyFixtureStores(now)
	renderer := &stubRenderer{}
	sender := &stubSender{}
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}

	uc := NewBuildWeeklyReportUseCase(profiles, historyStore, stateStore, nil, renderer, sender, 0.15)
	require.NoError(t, uc.Execute(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Nil(t, renderer.rendered.Commentary)
}

func TestBuildWeeklyReportCommentaryFailureIsNonFatal(t *testing.T) {
	now := time.Now()
	historyStore, stateStore := weeklyFixtureStores(now)
	renderer := &stubRenderer{}
	sender := &stubSender{}
	commentary := &stubCommentary{err: errors.New("quota exhausted")}
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}

	uc := NewBuildWeeklyReportUseCase(profiles, historyStore, stateStore, commentary, renderer, sender, 0.15)
	require.NoError(t, uc.Execute(context.Background()))

	require.Len(t, sender.sent, 1, "the report still goes out without the narrative")
	assert.Nil(t, renderer.rendered.Commentary)
}

func TestBuildWeeklyReportSendFailure(t *testing.T) {
	now := time.Now()
	historyStore, stateStore := weeklyFixtureStores(now)
	profiles := []domain.Profile{{Name: "centrum", URL: "https://www.olx.pl/centrum/"}}

	uc := NewBuildWeeklyReportUseCase(profiles, historyStore, stateStore, nil, &stubRenderer{}, &stubSender{err: errors.New("smtp refused")}, 0.15)
	err := uc.Execute(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send weekly report")
}
