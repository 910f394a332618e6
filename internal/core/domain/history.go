package domain

import (
	"sort"
	"time"
)

// History is the cross-run state of the series store: every listing ever
// seen, keyed by id, each carrying its append-only price series. The store
// loads it at the start of a run and commits it at the end; in between it is
// mutated by exactly one sequential pass, so no locking lives here.
type History struct {
	Listings map[string]*Listing

	observed map[string]bool // ids recorded during the current run
}

func NewHistory() *History {
	return NewHistoryFrom(make(map[string]*Listing))
}

// NewHistoryFrom wraps an already-loaded listing map (e.g. unmarshalled from
// the durable snapshot) into a History with a fresh observation set.
func NewHistoryFrom(listings map[string]*Listing) *History {
	if listings == nil {
		listings = make(map[string]*Listing)
	}
	return &History{
		Listings: listings,
		observed: make(map[string]bool),
	}
}

// Record folds one sighting into the history: creates the Listing with
// first_seen on the first ever sighting, always updates last_seen and the
// selection fields, and appends exactly one PricePoint for this run.
// Recording the same id twice within one run is an identity collision: the
// later card is treated as an update of the former, replacing this run's
// point instead of appending a second one. Returns whether the id was first
// seen and whether it collided.
func (h *History) Record(id, profile, title, url string, ts time.Time, price int, status string, candidates []int) (firstSeen, collision bool) {
	listing, exists := h.Listings[id]
	if !exists {
		listing = &Listing{ID: id, FirstSeen: ts}
		h.Listings[id] = listing
		firstSeen = true
	}
	collision = h.observed[id]

	listing.Profile = profile
	listing.Title = title
	listing.URL = url
	listing.SelectedPrice = price
	listing.Status = status
	listing.RawCandidates = candidates
	listing.LastSeen = ts
	listing.Stale = false

	point := PricePoint{Timestamp: ts, Price: price}
	if collision && len(listing.Series) > 0 {
		listing.Series[len(listing.Series)-1] = point
	} else {
		listing.Series = append(listing.Series, point)
	}

	h.observed[id] = true
	return firstSeen, collision
}

// SetCreated stores the ad's publication date, fetched once per listing.
func (h *History) SetCreated(id string, created time.Time) {
	if listing, ok := h.Listings[id]; ok {
		listing.Created = created
	}
}

// SeriesFor returns the chronological price series for one listing. The
// returned slice is a copy; the stored series stays append-only.
func (h *History) SeriesFor(id string) []PricePoint {
	listing, ok := h.Listings[id]
	if !ok {
		return nil
	}
	series := make([]PricePoint, len(listing.Series))
	copy(series, listing.Series)
	return series
}

// ProfileListings returns the listings observed during the current run for
// one profile, ordered by id. Listings known from earlier runs but not seen
// in this one are excluded; aggregation is always scoped to the run.
func (h *History) ProfileListings(profile string) []*Listing {
	var listings []*Listing
	for id := range h.observed {
		if l := h.Listings[id]; l != nil && l.Profile == profile {
			listings = append(listings, l)
		}
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings
}

// ActiveProfileListings returns a profile's non-stale listings ordered by id,
// regardless of when they were last observed. This is the dashboard's view
// between runs; run-time aggregation uses ProfileListings instead.
func (h *History) ActiveProfileListings(profile string) []*Listing {
	var listings []*Listing
	for _, l := range h.Listings {
		if l.Profile == profile && !l.Stale {
			listings = append(listings, l)
		}
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ID < listings[j].ID })
	return listings
}

// ObservedIDs returns the sorted ids recorded for a profile this run.
func (h *History) ObservedIDs(profile string) []string {
	var ids []string
	for id := range h.observed {
		if l := h.Listings[id]; l != nil && l.Profile == profile {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ObservedCount reports how many distinct listings this run recorded.
func (h *History) ObservedCount() int {
	return len(h.observed)
}

// MarkStale flags every listing absent from the current run and clears the
// flag on observed ones. Listings are never deleted; staleness preserves
// historical continuity. Returns the number of listings newly marked.
func (h *History) MarkStale() int {
	marked := 0
	for id, listing := range h.Listings {
		if h.observed[id] {
			continue
		}
		if !listing.Stale {
			marked++
		}
		listing.Stale = true
	}
	return marked
}
