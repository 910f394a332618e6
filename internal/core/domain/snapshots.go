package domain

import (
	"time"
)

// ProfileSnapshot is the per-profile aggregate of one run. Derived data:
// recomputed every run from the listings observed in it, never persisted on
// its own.
type ProfileSnapshot struct {
	Profile      string    `json:"profile"`
	Timestamp    time.Time `json:"timestamp"`
	ListingCount int       `json:"listing_count"`
	PricedCount  int       `json:"priced_count"`
	ZeroCount    int       `json:"zero_count"`
	TotalValue   int       `json:"total_value"`
	AveragePrice float64   `json:"average_price"`
}

// MarketSnapshot sums the profile snapshots of one run. Listings recurring
// under several profiles are counted once per profile; cross-profile
// deduplication is out of scope.
type MarketSnapshot struct {
	Timestamp     time.Time         `json:"timestamp"`
	Profiles      []ProfileSnapshot `json:"profiles"`
	ListingCount  int               `json:"listing_count"`
	PricedCount   int               `json:"priced_count"`
	ZeroCount     int               `json:"zero_count"`
	TotalValue    int               `json:"total_value"`
	AveragePrice  float64           `json:"average_price"`
	DeclaredTotal int               `json:"declared_total,omitempty"`
}

// AggregateProfile computes the snapshot for one profile from the listings
// observed this run. An empty profile yields a zero snapshot, not a fault,
// and average_price is defined as 0 when nothing was priced.
func AggregateProfile(profile string, ts time.Time, listings []*Listing) ProfileSnapshot {
	snapshot := ProfileSnapshot{
		Profile:      profile,
		Timestamp:    ts,
		ListingCount: len(listings),
	}
	for _, l := range listings {
		if l.Status == StatusPriced {
			snapshot.PricedCount++
			snapshot.TotalValue += l.SelectedPrice
		}
	}
	snapshot.ZeroCount = snapshot.ListingCount - snapshot.PricedCount
	if snapshot.PricedCount > 0 {
		snapshot.AveragePrice = float64(snapshot.TotalValue) / float64(snapshot.PricedCount)
	}
	return snapshot
}

// AggregateMarket folds the run's profile snapshots into one market view.
func AggregateMarket(ts time.Time, profiles []ProfileSnapshot) MarketSnapshot {
	market := MarketSnapshot{
		Timestamp: ts,
		Profiles:  profiles,
	}
	for _, p := range profiles {
		market.ListingCount += p.ListingCount
		market.PricedCount += p.PricedCount
		market.ZeroCount += p.ZeroCount
		market.TotalValue += p.TotalValue
	}
	if market.PricedCount > 0 {
		market.AveragePrice = float64(market.TotalValue) / float64(market.PricedCount)
	}
	return market
}
