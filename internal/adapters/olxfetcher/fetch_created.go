package olxfetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetchCreatedAt opens one ad page and extracts its publication timestamp.
// Returns the zero time when the page does not expose one; many promoted
// listings do not.
func (a *OlxFetcherAdapter) FetchCreatedAt(ctx context.Context, adURL string) (time.Time, error) {
	collector := a.collector.Clone()

	var (
		created     time.Time
		responseErr error
	)

	collector.OnResponse(func(r *colly.Response) {
		if t, ok := extractCreatedTime(string(r.Body)); ok {
			created = t
		}
	})

	collector.OnError(func(r *colly.Response, err error) {
		responseErr = fmt.Errorf("olx fetcher: request to %s failed with status %d: %w", r.Request.URL, r.StatusCode, err)
	})

	if err := collector.Visit(adURL); err != nil {
		return time.Time{}, fmt.Errorf("olx fetcher: failed to visit %s: %w", adURL, err)
	}
	collector.Wait()

	if responseErr != nil {
		return time.Time{}, responseErr
	}
	return created, nil
}
