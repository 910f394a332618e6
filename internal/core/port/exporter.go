package port

import (
	"context"
	"time"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// ListingExporterPort appends one run's observed listings to an external
// tabular export. Best-effort, like the alert publisher.
type ListingExporterPort interface {
	Append(ctx context.Context, runAt time.Time, listings []*domain.Listing) error
}
