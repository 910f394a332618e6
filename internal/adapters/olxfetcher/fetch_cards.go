package olxfetcher

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// FetchCards downloads one profile page and extracts its listing cards plus
// the listing count OLX itself declares on the page (-1 when absent).
func (a *OlxFetcherAdapter) FetchCards(ctx context.Context, profileURL string) ([]domain.RawCard, int, error) {
	// inherits the limits, but has its own handlers
	collector := a.collector.Clone()

	var (
		cards       []domain.RawCard
		declared    = -1
		responseErr error
	)

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		cards, declared = parseProfilePage(e.DOM)
	})

	collector.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("olx fetcher: request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := collector.Visit(profileURL); err != nil {
		return nil, -1, fmt.Errorf("olx fetcher: failed to visit %s: %w", profileURL, err)
	}
	collector.Wait()

	if responseErr != nil {
		return nil, -1, responseErr
	}

	a.logger.Info("Profile page scanned", port.Fields{
		"url":      profileURL,
		"cards":    len(cards),
		"declared": declared,
	})
	return cards, declared, nil
}
