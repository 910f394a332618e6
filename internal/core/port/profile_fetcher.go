package port

import (
	"context"
	"time"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// ProfileFetcherPort supplies the raw material of a run. The core treats the
// fetching side as a best-effort collaborator: a failed or partial fetch
// degrades the profile to fewer (or zero) cards, it never aborts the run.
type ProfileFetcherPort interface {
	// FetchCards returns the listing cards of one profile page in page
	// order, plus the result count the page itself declares (-1 when the
	// counter is absent).
	FetchCards(ctx context.Context, profileURL string) ([]domain.RawCard, int, error)

	// FetchMarketTotal returns the site-wide listing count for the
	// monitored category, or -1 when the page carries no counter.
	FetchMarketTotal(ctx context.Context) (int, error)

	// FetchCreatedAt extracts the publication timestamp from an ad page,
	// or the zero time when the page does not expose one. Called once per
	// listing, on first sighting.
	FetchCreatedAt(ctx context.Context, adURL string) (time.Time, error)
}
