package port

import (
	"context"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// RenderedReport is a ready-to-send message with a plain-text alternative
// for clients that do not render HTML.
type RenderedReport struct {
	Subject string
	Text    string
	HTML    string
}

// CommentaryPort asks the AI collaborator for a written market commentary.
// Optional: a nil result with an error means the report goes out without it.
type CommentaryPort interface {
	MarketCommentary(ctx context.Context, report domain.WeeklyReport) (*domain.MarketCommentary, error)
}

// ReportRendererPort turns a weekly report into a sendable message.
type ReportRendererPort interface {
	Render(report domain.WeeklyReport) (*RenderedReport, error)
}

// ReportSenderPort delivers the rendered report.
type ReportSenderPort interface {
	Send(ctx context.Context, msg *RenderedReport) error
}
