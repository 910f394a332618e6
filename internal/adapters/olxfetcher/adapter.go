package olxfetcher

import (
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// OlxFetcherAdapter owns all traffic to OLX.
type OlxFetcherAdapter struct {
	// one parent collector so every call shares the same rate limit
	collector *colly.Collector
	marketURL string
	logger    port.LoggerPort
}

type Config struct {
	AllowedDomain      string
	MarketURL          string
	RandomDelaySeconds int
}

// NewOlxFetcherAdapter builds the parent collector. Calls clone it, so they
// inherit the limits but keep their own handlers.
func NewOlxFetcherAdapter(cfg Config, logger port.LoggerPort) (*OlxFetcherAdapter, error) {
	c := colly.NewCollector(colly.AllowedDomains(cfg.AllowedDomain), colly.AllowURLRevisit())

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  cfg.AllowedDomain,
		Parallelism: 1,
		RandomDelay: time.Duration(cfg.RandomDelaySeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("olx fetcher: failed to set limit rule: %w", err)
	}

	extensions.RandomUserAgent(c) // a real browser User-Agent on every request
	extensions.Referer(c)         // imitates navigation between pages

	c.OnRequest(func(r *colly.Request) {
		logger.Debug("Making request", port.Fields{"url": r.URL.String()})
	})
	c.OnError(func(r *colly.Response, err error) {
		logger.Warn("Request failed", port.Fields{
			"url":    r.Request.URL.String(),
			"status": r.StatusCode,
			"error":  err.Error(),
		})
	})

	return &OlxFetcherAdapter{
		collector: c,
		marketURL: cfg.MarketURL,
		logger:    logger,
	}, nil
}
