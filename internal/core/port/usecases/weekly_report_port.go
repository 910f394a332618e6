package usecases_port

import (
	"context"
)

// BuildWeeklyReportPort assembles and sends the weekly e-mail digest.
type BuildWeeklyReportPort interface {
	Execute(ctx context.Context) error
}
