package olxfetcher

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// FetchMarketTotal reads the market-wide listing count from the configured
// category page. Returns -1 when the page carries no counter.
func (a *OlxFetcherAdapter) FetchMarketTotal(ctx context.Context) (int, error) {
	collector := a.collector.Clone()

	var (
		total       = -1
		responseErr error
	)

	collector.OnHTML("html", func(e *colly.HTMLElement) {
		if n, ok := declaredCount(e.DOM); ok {
			total = n
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("olx fetcher: request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := collector.Visit(a.marketURL); err != nil {
		return -1, fmt.Errorf("olx fetcher: failed to visit %s: %w", a.marketURL, err)
	}
	collector.Wait()

	if responseErr != nil {
		return -1, responseErr
	}

	a.logger.Info("Market counter fetched", port.Fields{"url": a.marketURL, "total": total})
	return total, nil
}
