package jsonstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

func TestStateStoreRoundtrip(t *testing.T) {
	store, err := NewStateStoreAdapter(filepath.Join(t.TempDir(), "state.json"), testLogger())
	require.NoError(t, err)

	state := &domain.ProfileState{}
	state.Advance("https://x/profil", []string{"a", "b"}, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))
	states := map[string]*domain.ProfileState{"centrum": state}

	require.NoError(t, store.Commit(context.Background(), states))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, loaded, "centrum")
	assert.Equal(t, []string{"a", "b"}, loaded["centrum"].Current)
	require.Len(t, loaded["centrum"].History, 1)
	assert.Equal(t, "2025-03-10", loaded["centrum"].History[0].Date)
}

func TestStateStoreLoadMissingFile(t *testing.T) {
	store, err := NewStateStoreAdapter(filepath.Join(t.TempDir(), "state.json"), testLogger())
	require.NoError(t, err)

	states, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, states)
}
