package domain

import (
	"time"
)

// ZeroRatioAlert is raised when too large a share of a profile's listings
// came out of a run without a valid price. It is the primary signal for an
// extraction regression.
type ZeroRatioAlert struct {
	Profile      string    `json:"profile"`
	Timestamp    time.Time `json:"timestamp"`
	ZeroCount    int       `json:"zero_count"`
	ListingCount int       `json:"listing_count"`
	Ratio        float64   `json:"ratio"`
	Threshold    float64   `json:"threshold"`
}

// PriceChangeEvent marks a listing whose price moved beyond the configured
// relative threshold between two consecutive observations. Informational,
// not an error; consumed by the dashboard, the alert queue and the report.
type PriceChangeEvent struct {
	ListingID     string    `json:"listing_id"`
	Profile       string    `json:"profile"`
	Timestamp     time.Time `json:"timestamp"`
	PreviousPrice int       `json:"previous_price"`
	NewPrice      int       `json:"new_price"`
	ChangeRatio   float64   `json:"change_ratio"`
}

// DetectZeroRatioAlerts evaluates the zero-price ratio of every profile
// snapshot against the threshold. Profiles with no listings never alert.
func DetectZeroRatioAlerts(profiles []ProfileSnapshot, threshold float64) []ZeroRatioAlert {
	var alerts []ZeroRatioAlert
	for _, p := range profiles {
		if p.ListingCount == 0 {
			continue
		}
		ratio := float64(p.ZeroCount) / float64(p.ListingCount)
		if ratio > threshold {
			alerts = append(alerts, ZeroRatioAlert{
				Profile:      p.Profile,
				Timestamp:    p.Timestamp,
				ZeroCount:    p.ZeroCount,
				ListingCount: p.ListingCount,
				Ratio:        ratio,
				Threshold:    threshold,
			})
		}
	}
	return alerts
}

// WeeklyPriceChanges reports the listings whose price moved beyond the ratio
// across the observations made at or after since. The endpoints are the first
// and last priced sightings in the window, so a move taken in several small
// steps still registers once.
func WeeklyPriceChanges(listings []*Listing, ratio float64, since time.Time) []PriceChangeEvent {
	if ratio <= 0 {
		return nil
	}
	var events []PriceChangeEvent
	for _, listing := range listings {
		var first, last PricePoint
		found := false
		for _, p := range listing.Series {
			if p.Price == 0 || p.Timestamp.Before(since) {
				continue
			}
			if !found {
				first = p
				found = true
			}
			last = p
		}
		if !found || first.Price == last.Price {
			continue
		}
		change := float64(last.Price-first.Price) / float64(first.Price)
		if change < 0 {
			change = -change
		}
		if change > ratio {
			events = append(events, PriceChangeEvent{
				ListingID:     listing.ID,
				Profile:       listing.Profile,
				Timestamp:     last.Timestamp,
				PreviousPrice: first.Price,
				NewPrice:      last.Price,
				ChangeRatio:   change,
			})
		}
	}
	return events
}

// DetectPriceChanges compares the last two points of every listing observed
// this run. Only pairs of non-zero prices participate: the zero sentinel
// marks an unpriced sighting, not a price movement. Reads the history, never
// mutates it.
func DetectPriceChanges(history *History, profile string, ratio float64) []PriceChangeEvent {
	if ratio <= 0 {
		return nil
	}
	var events []PriceChangeEvent
	for _, listing := range history.ProfileListings(profile) {
		series := listing.Series
		if len(series) < 2 {
			continue
		}
		prev, last := series[len(series)-2], series[len(series)-1]
		if prev.Price == 0 || last.Price == 0 || prev.Price == last.Price {
			continue
		}
		change := float64(last.Price-prev.Price) / float64(prev.Price)
		if change < 0 {
			change = -change
		}
		if change > ratio {
			events = append(events, PriceChangeEvent{
				ListingID:     listing.ID,
				Profile:       profile,
				Timestamp:     last.Timestamp,
				PreviousPrice: prev.Price,
				NewPrice:      last.Price,
				ChangeRatio:   change,
			})
		}
	}
	return events
}
