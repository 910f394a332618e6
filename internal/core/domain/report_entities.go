package domain

import (
	"time"
)

const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// CrossCheck compares how many cards a profile page yielded against the
// result count the page itself declares.
type CrossCheck struct {
	Profile  string `json:"profile"`
	Scraped  int    `json:"scraped"`
	Declared int    `json:"declared"`
}

// RunReport is the durable record of one monitoring run. Status separates a
// failed run (persistence could not commit) from a successful run that
// merely carried anomalies: anomalies are data, failure is absence of data.
type RunReport struct {
	RunID          string       `json:"run_id"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Status         string       `json:"status"`
	TotalListings  int          `json:"total_listings"`
	PricedListings int          `json:"priced_listings"`
	NewListings    int          `json:"new_listings"`
	GoneListings   int          `json:"gone_listings"`
	StaleMarked    int          `json:"stale_marked"`
	MarketTotal    int          `json:"market_total"`
	CrossChecks    []CrossCheck `json:"crosschecks,omitempty"`
	AlertCount     int          `json:"alert_count"`
	Problems       []string     `json:"problems,omitempty"`
}

// RunResult bundles everything one run hands to the output collaborators.
type RunResult struct {
	Report  RunReport
	Market  MarketSnapshot
	Alerts  []ZeroRatioAlert
	Changes []PriceChangeEvent
}

// WeeklyProfileSummary condenses a profile's last seven days of state
// history for the e-mail report.
type WeeklyProfileSummary struct {
	Profile     string `json:"profile"`
	DaysTracked int    `json:"days_tracked"`
	TotalNew    int    `json:"total_new"`
	TotalGone   int    `json:"total_gone"`
	NetChange   int    `json:"net_change"`
	FirstTotal  int    `json:"first_total"`
	LastTotal   int    `json:"last_total"`
}

// MarketCommentary is the model-written narrative attached to the weekly
// report when the AI collaborator is available.
type MarketCommentary struct {
	Summary      []string            `json:"summary"`
	Observations []MarketObservation `json:"observations"`
}

type MarketObservation struct {
	Category string `json:"category"`
	Details  string `json:"details"`
}

// WeeklyReport is the assembled weekly digest handed to the renderer.
type WeeklyReport struct {
	GeneratedAt time.Time
	Summaries   []WeeklyProfileSummary
	Market      MarketSnapshot
	Changes     []PriceChangeEvent
	Commentary  *MarketCommentary
}

// SummarizeWeek folds the last seven days of a profile's state history into
// one summary row.
func SummarizeWeek(profile string, state ProfileState, now time.Time) WeeklyProfileSummary {
	cutoff := now.AddDate(0, 0, -7).Format("2006-01-02")
	summary := WeeklyProfileSummary{Profile: profile}
	for _, entry := range state.History {
		if entry.Date < cutoff {
			continue
		}
		if summary.DaysTracked == 0 {
			summary.FirstTotal = entry.Total
		}
		summary.DaysTracked++
		summary.TotalNew += entry.NewCount
		summary.TotalGone += entry.GoneCount
		summary.LastTotal = entry.Total
	}
	summary.NetChange = summary.LastTotal - summary.FirstTotal
	return summary
}
