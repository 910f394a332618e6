package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
)

// HistoryStoreAdapter implements HistoryStorePort on PostgreSQL. Listings are
// upserted and price points appended inside one transaction, so a failed
// commit leaves the previous snapshot untouched.
type HistoryStoreAdapter struct {
	pool *pgxpool.Pool
}

// NewHistoryStoreAdapter creates the adapter and makes sure its tables exist.
func NewHistoryStoreAdapter(ctx context.Context, pool *pgxpool.Pool) (*HistoryStoreAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres history store: pool cannot be nil")
	}
	a := &HistoryStoreAdapter{pool: pool}
	if err := a.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres history store: migrate: %w", err)
	}
	return a, nil
}

func (a *HistoryStoreAdapter) migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id             TEXT PRIMARY KEY,
			profile        TEXT NOT NULL,
			title          TEXT NOT NULL DEFAULT '',
			url            TEXT NOT NULL DEFAULT '',
			selected_price INTEGER NOT NULL DEFAULT 0,
			raw_candidates INTEGER[] NOT NULL DEFAULT '{}',
			status         TEXT NOT NULL DEFAULT 'unparsed',
			first_seen     TIMESTAMPTZ NOT NULL,
			last_seen      TIMESTAMPTZ NOT NULL,
			created_at     TIMESTAMPTZ,
			stale          BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE TABLE IF NOT EXISTS price_points (
			listing_id TEXT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			ts         TIMESTAMPTZ NOT NULL,
			price      INTEGER NOT NULL,
			PRIMARY KEY (listing_id, ts)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_profile ON listings(profile);
	`)
	return err
}

// Load reads every listing and its full price series. An empty database
// yields an empty history.
func (a *HistoryStoreAdapter) Load(ctx context.Context) (*domain.History, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresHistoryStore",
		"method":    "Load",
	})

	listings := make(map[string]*domain.Listing)

	rows, err := a.pool.Query(ctx, `
		SELECT id, profile, title, url, selected_price, raw_candidates, status,
		       first_seen, last_seen, created_at, stale
		FROM listings
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres history store: query listings: %w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l          domain.Listing
			candidates []int32
			created    *time.Time
		)
		if err := rows.Scan(&l.ID, &l.Profile, &l.Title, &l.URL, &l.SelectedPrice,
			&candidates, &l.Status, &l.FirstSeen, &l.LastSeen, &created, &l.Stale); err != nil {
			return nil, fmt.Errorf("postgres history store: scan listing: %w: %w", domain.ErrPersistence, err)
		}
		l.RawCandidates = int32sToInts(candidates)
		if created != nil {
			l.Created = *created
		}
		listings[l.ID] = &l
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres history store: iterate listings: %w: %w", domain.ErrPersistence, err)
	}

	pointRows, err := a.pool.Query(ctx, `
		SELECT listing_id, ts, price
		FROM price_points
		ORDER BY listing_id, ts
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres history store: query price points: %w: %w", domain.ErrPersistence, err)
	}
	defer pointRows.Close()

	for pointRows.Next() {
		var (
			listingID string
			point     domain.PricePoint
		)
		if err := pointRows.Scan(&listingID, &point.Timestamp, &point.Price); err != nil {
			return nil, fmt.Errorf("postgres history store: scan price point: %w: %w", domain.ErrPersistence, err)
		}
		if l, ok := listings[listingID]; ok {
			l.Series = append(l.Series, point)
		}
	}
	if err := pointRows.Err(); err != nil {
		return nil, fmt.Errorf("postgres history store: iterate price points: %w: %w", domain.ErrPersistence, err)
	}

	logger.Debug("History loaded", port.Fields{"listings": len(listings)})
	return domain.NewHistoryFrom(listings), nil
}

// Commit upserts every listing and appends its new price points in a single
// transaction. Existing points are never rewritten.
func (a *HistoryStoreAdapter) Commit(ctx context.Context, history *domain.History) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "PostgresHistoryStore",
		"method":    "Commit",
	})

	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres history store: begin transaction: %w: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	upsertListing := `
		INSERT INTO listings (id, profile, title, url, selected_price, raw_candidates,
		                      status, first_seen, last_seen, created_at, stale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			profile        = EXCLUDED.profile,
			title          = EXCLUDED.title,
			url            = EXCLUDED.url,
			selected_price = EXCLUDED.selected_price,
			raw_candidates = EXCLUDED.raw_candidates,
			status         = EXCLUDED.status,
			last_seen      = EXCLUDED.last_seen,
			created_at     = EXCLUDED.created_at,
			stale          = EXCLUDED.stale
	`
	insertPoint := `
		INSERT INTO price_points (listing_id, ts, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (listing_id, ts) DO UPDATE SET price = EXCLUDED.price
	`

	for _, l := range history.Listings {
		var created *time.Time
		if !l.Created.IsZero() {
			created = &l.Created
		}
		if _, err := tx.Exec(ctx, upsertListing,
			l.ID, l.Profile, l.Title, l.URL, l.SelectedPrice, intsToInt32s(l.RawCandidates),
			l.Status, l.FirstSeen, l.LastSeen, created, l.Stale); err != nil {
			return fmt.Errorf("postgres history store: upsert listing '%s': %w: %w", l.ID, domain.ErrPersistence, err)
		}
		for _, p := range l.Series {
			if _, err := tx.Exec(ctx, insertPoint, l.ID, p.Timestamp, p.Price); err != nil {
				return fmt.Errorf("postgres history store: insert price point for '%s': %w: %w", l.ID, domain.ErrPersistence, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres history store: commit transaction: %w: %w", domain.ErrPersistence, err)
	}

	logger.Debug("History committed", port.Fields{"listings": len(history.Listings)})
	return nil
}

func intsToInt32s(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

func int32sToInts(values []int32) []int {
	if len(values) == 0 {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
