package domain

import (
	"time"
)

// ListingStatus describes the outcome of price extraction for one sighting.
const (
	StatusPriced        = "priced"
	StatusZeroAnomalous = "zero_anomalous" // candidates found, all rejected as out of range
	StatusUnparsed      = "unparsed"       // no money tokens in the card text at all
)

// RawCard is one listing card as delivered by the fetching collaborator:
// an opaque text block plus the stable key it was reached through.
// Produced once per scrape, discarded after extraction.
type RawCard struct {
	StableKey string
	Title     string
	URL       string
	Text      string
	Position  int
}

// PricePoint is a single observation in a listing's price series.
// Price 0 is the unpriced sentinel. Points are append-only: once written
// they are never reordered or mutated.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     int       `json:"price"`
}

// Listing is the cross-run record for one ad. The ID is derived from the
// ad URL slug, never from price or page position, so it stays stable while
// the price moves.
type Listing struct {
	ID            string       `json:"id"`
	Profile       string       `json:"profile"`
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	SelectedPrice int          `json:"selected_price"`
	RawCandidates []int        `json:"raw_candidates,omitempty"`
	Status        string       `json:"status"`
	FirstSeen     time.Time    `json:"first_seen"`
	LastSeen      time.Time    `json:"last_seen"`
	Created       time.Time    `json:"created,omitempty"`
	Stale         bool         `json:"stale,omitempty"`
	Series        []PricePoint `json:"series"`
}
