package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFromEmpty(t *testing.T) {
	s := &ProfileState{}
	ts := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	newCount, goneCount := s.Advance("https://x/profil", []string{"b", "a"}, ts)

	assert.Equal(t, 2, newCount)
	assert.Equal(t, 0, goneCount)
	assert.Equal(t, []string{"a", "b"}, s.Current)
	assert.Empty(t, s.Gone)
	require.Len(t, s.History, 1)
	assert.Equal(t, StateHistoryEntry{Date: "2025-03-10", Total: 2, NewCount: 2, GoneCount: 0}, s.History[0])
}

func TestAdvanceTracksNewAndGone(t *testing.T) {
	s := &ProfileState{}
	day1 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	s.Advance("https://x/profil", []string{"a", "b"}, day1)
	newCount, goneCount := s.Advance("https://x/profil", []string{"b", "c"}, day2)

	assert.Equal(t, 1, newCount)
	assert.Equal(t, 1, goneCount)
	assert.Equal(t, []string{"b", "c"}, s.Current)
	assert.Equal(t, []string{"a"}, s.Gone)
	require.Len(t, s.History, 2)
}

func TestAdvanceSameDayOverwritesEntry(t *testing.T) {
	s := &ProfileState{}
	morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := morning.Add(10 * time.Hour)

	s.Advance("https://x/profil", []string{"a"}, morning)
	s.Advance("https://x/profil", []string{"a", "b"}, evening)

	require.Len(t, s.History, 1, "a re-run on the same day keeps one entry per day")
	assert.Equal(t, 2, s.History[0].Total)
	assert.Equal(t, 1, s.History[0].NewCount)
}

func TestAdvanceHistoryCapped(t *testing.T) {
	s := &ProfileState{}
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < stateHistoryLimit+5; i++ {
		s.Advance("https://x/profil", []string{fmt.Sprintf("id-%d", i)}, start.AddDate(0, 0, i))
	}

	require.Len(t, s.History, stateHistoryLimit)
	assert.Equal(t, "2025-01-06", s.History[0].Date, "oldest entries roll off")
}

func TestAdvanceEmptyObservation(t *testing.T) {
	s := &ProfileState{}
	day1 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	s.Advance("https://x/profil", []string{"a", "b"}, day1)
	newCount, goneCount := s.Advance("https://x/profil", nil, day1.AddDate(0, 0, 1))

	assert.Equal(t, 0, newCount)
	assert.Equal(t, 2, goneCount)
	assert.Empty(t, s.Current)
	assert.Equal(t, []string{"a", "b"}, s.Gone)
}
