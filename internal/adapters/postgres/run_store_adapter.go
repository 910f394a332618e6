package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// RunStoreAdapter records one row per monitoring run. Unlike the JSON
// variant, it keeps the full run log; LastReport reads the newest row.
type RunStoreAdapter struct {
	pool *pgxpool.Pool
}

func NewRunStoreAdapter(ctx context.Context, pool *pgxpool.Pool) (*RunStoreAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres run store: pool cannot be nil")
	}
	a := &RunStoreAdapter{pool: pool}
	if err := a.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres run store: migrate: %w", err)
	}
	return a, nil
}

func (a *RunStoreAdapter) migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS run_reports (
			id          UUID PRIMARY KEY,
			finished_at TIMESTAMPTZ NOT NULL,
			report      JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_run_reports_finished_at ON run_reports(finished_at);
	`)
	return err
}

func (a *RunStoreAdapter) WriteReport(ctx context.Context, report domain.RunReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("postgres run store: marshal: %w: %w", domain.ErrPersistence, err)
	}

	query := `
		INSERT INTO run_reports (id, finished_at, report)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET finished_at = EXCLUDED.finished_at, report = EXCLUDED.report
	`
	if _, err := a.pool.Exec(ctx, query, report.RunID, report.FinishedAt, body); err != nil {
		return fmt.Errorf("postgres run store: insert report '%s': %w: %w", report.RunID, domain.ErrPersistence, err)
	}
	return nil
}

func (a *RunStoreAdapter) LastReport(ctx context.Context) (*domain.RunReport, error) {
	var body []byte
	query := `SELECT report FROM run_reports ORDER BY finished_at DESC LIMIT 1`

	err := a.pool.QueryRow(ctx, query).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres run store: query last report: %w: %w", domain.ErrPersistence, err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("postgres run store: parse report: %w: %w", domain.ErrPersistence, err)
	}
	return &report, nil
}
