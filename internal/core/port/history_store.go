package port

import (
	"context"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// HistoryStorePort is the durable home of the price series. The lifecycle is
// load-at-start / commit-at-end: Load hands the run a mutable History, Commit
// replaces the durable snapshot atomically. Any error carries
// domain.ErrPersistence in its chain and is fatal to the run; a crash between
// Load and Commit must leave the prior snapshot intact.
type HistoryStorePort interface {
	Load(ctx context.Context) (*domain.History, error)

	Commit(ctx context.Context, history *domain.History) error
}
