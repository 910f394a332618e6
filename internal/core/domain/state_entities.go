package domain

import (
	"sort"
	"time"
)

// stateHistoryLimit caps the per-profile run history; older entries roll off.
const stateHistoryLimit = 30

// StateHistoryEntry is one day's presence bookkeeping for a profile.
type StateHistoryEntry struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	NewCount  int    `json:"new_count"`
	GoneCount int    `json:"gone_count"`
}

// ProfileState tracks which listings a profile currently shows and which
// disappeared since the previous run. Persisted between runs next to the
// price history.
type ProfileState struct {
	URL     string              `json:"url"`
	Current []string            `json:"current"`
	Gone    []string            `json:"gone"`
	History []StateHistoryEntry `json:"history"`
}

// Advance moves the state to the given run's observation: computes the
// new/gone id sets against the previous current set, replaces the current
// set, and appends one history entry per day (a re-run on the same day
// overwrites that day's entry). Returns the new/gone counts for reporting.
func (s *ProfileState) Advance(url string, observed []string, ts time.Time) (newCount, goneCount int) {
	previous := make(map[string]bool, len(s.Current))
	for _, id := range s.Current {
		previous[id] = true
	}
	nowCurrent := make(map[string]bool, len(observed))
	for _, id := range observed {
		nowCurrent[id] = true
		if !previous[id] {
			newCount++
		}
	}
	var gone []string
	for _, id := range s.Current {
		if !nowCurrent[id] {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	goneCount = len(gone)

	current := make([]string, len(observed))
	copy(current, observed)
	sort.Strings(current)

	s.URL = url
	s.Current = current
	s.Gone = gone

	date := ts.Format("2006-01-02")
	entry := StateHistoryEntry{Date: date, Total: len(current), NewCount: newCount, GoneCount: goneCount}
	history := s.History[:0]
	for _, h := range s.History {
		if h.Date != date {
			history = append(history, h)
		}
	}
	history = append(history, entry)
	if len(history) > stateHistoryLimit {
		history = history[len(history)-stateHistoryLimit:]
	}
	s.History = history
	return newCount, goneCount
}
