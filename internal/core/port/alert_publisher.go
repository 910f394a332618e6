package port

import (
	"context"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// AlertPublisherPort pushes anomaly signals to the alerting collaborator.
// Publishing is best-effort: failures become run problems, not run failures.
type AlertPublisherPort interface {
	PublishZeroRatioAlert(ctx context.Context, alert domain.ZeroRatioAlert) error

	PublishPriceChange(ctx context.Context, event domain.PriceChangeEvent) error
}
