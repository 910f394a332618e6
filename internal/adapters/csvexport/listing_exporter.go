// Package csvexport appends every run's observed listings to a CSV file that
// opens cleanly in spreadsheet software.
package csvexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

var csvColumns = []string{
	"Data skanu",
	"Profil",
	"Tytuł",
	"Cena (zł)",
	"Data publikacji",
	"Dni od publikacji",
	"URL",
	"ID ogłoszenia",
}

// ListingExporterAdapter appends one row per listing per run. The file gets a
// UTF-8 BOM and a header row on creation so Excel renders the Polish
// diacritics correctly.
type ListingExporterAdapter struct {
	path string
}

func NewListingExporterAdapter(path string) (*ListingExporterAdapter, error) {
	if path == "" {
		return nil, fmt.Errorf("csv export: path cannot be empty")
	}
	return &ListingExporterAdapter{path: path}, nil
}

func (a *ListingExporterAdapter) Append(ctx context.Context, runAt time.Time, listings []*domain.Listing) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"component": "ListingExporterAdapter"})

	if err := a.ensureHeader(); err != nil {
		return err
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv export: open %s: %w", a.path, err)
	}

	w := csv.NewWriter(f)
	scanDate := runAt.Format("2006-01-02 15:04:05")
	for _, l := range listings {
		if err := w.Write(listingRow(scanDate, runAt, l)); err != nil {
			f.Close()
			return fmt.Errorf("csv export: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("csv export: flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("csv export: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv export: close: %w", err)
	}

	logger.Debug("Listings exported", port.Fields{"path": a.path, "rows": len(listings)})
	return nil
}

// ensureHeader creates the file with a BOM and the header row when it is
// missing or empty. An existing file is left alone.
func (a *ListingExporterAdapter) ensureHeader() error {
	if fi, err := os.Stat(a.path); err == nil && fi.Size() > 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("csv export: create output dir: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("csv export: create %s: %w", a.path, err)
	}
	// UTF-8 BOM for Excel friendliness
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		f.Close()
		return fmt.Errorf("csv export: write BOM: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		f.Close()
		return fmt.Errorf("csv export: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("csv export: flush header: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("csv export: sync header: %w", err)
	}
	return f.Close()
}

func listingRow(scanDate string, runAt time.Time, l *domain.Listing) []string {
	created, days := "", ""
	if !l.Created.IsZero() {
		created = l.Created.Format("2006-01-02")
		days = strconv.Itoa(int(runAt.Sub(l.Created).Hours() / 24))
	}
	return []string{
		scanDate,
		l.Profile,
		l.Title,
		strconv.Itoa(l.SelectedPrice),
		created,
		days,
		l.URL,
		l.ID,
	}
}
