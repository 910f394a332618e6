package csvexport

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

func readRows(t *testing.T, path string) ([][]string, []byte) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	return rows, raw
}

func TestAppendCreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "olx_history.csv")
	exporter, err := NewListingExporterAdapter(path)
	require.NoError(t, err)

	runAt := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	listings := []*domain.Listing{
		{
			ID:            "kawalerka-CID3-IDaaa11",
			Profile:       "centrum",
			Title:         "Kawalerka na Wieniawie",
			URL:           "https://www.olx.pl/d/oferta/kawalerka-CID3-IDaaa11.html",
			SelectedPrice: 1500,
			Created:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:            "pokoj-CID3-IDbbb22",
			Profile:       "centrum",
			Title:         "Pokój przy UMCS",
			URL:           "https://www.olx.pl/d/oferta/pokoj-CID3-IDbbb22.html",
			SelectedPrice: 0,
		},
	}

	require.NoError(t, exporter.Append(context.Background(), runAt, listings))

	rows, raw := readRows(t, path)
	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "Excel needs the BOM to decode UTF-8")

	require.Len(t, rows, 3)
	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, []string{
		"2025-03-10 08:30:00",
		"centrum",
		"Kawalerka na Wieniawie",
		"1500",
		"2025-03-01",
		"8",
		"https://www.olx.pl/d/oferta/kawalerka-CID3-IDaaa11.html",
		"kawalerka-CID3-IDaaa11",
	}, rows[1])

	assert.Equal(t, "", rows[2][4], "no publication date without a created timestamp")
	assert.Equal(t, "", rows[2][5])
	assert.Equal(t, "0", rows[2][3])
}

func TestAppendDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olx_history.csv")
	exporter, err := NewListingExporterAdapter(path)
	require.NoError(t, err)

	runAt := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	listing := &domain.Listing{ID: "a-CID3-ID1", Profile: "centrum", Title: "Kawalerka", SelectedPrice: 1200}

	require.NoError(t, exporter.Append(context.Background(), runAt, []*domain.Listing{listing}))
	require.NoError(t, exporter.Append(context.Background(), runAt.Add(24*time.Hour), []*domain.Listing{listing}))

	rows, _ := readRows(t, path)
	require.Len(t, rows, 3, "one header plus one row per run")
	assert.Equal(t, csvColumns, rows[0])
	assert.Equal(t, "2025-03-10 08:30:00", rows[1][0])
	assert.Equal(t, "2025-03-11 08:30:00", rows[2][0])
}

func TestNewListingExporterAdapterRequiresPath(t *testing.T) {
	_, err := NewListingExporterAdapter("")
	assert.Error(t, err)
}
