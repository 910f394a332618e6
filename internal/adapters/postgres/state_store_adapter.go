package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
)

// StateStoreAdapter keeps per-profile presence state as one JSONB row per
// profile. The state is an envelope the domain owns; the database only needs
// to address it by profile name.
type StateStoreAdapter struct {
	pool *pgxpool.Pool
}

func NewStateStoreAdapter(ctx context.Context, pool *pgxpool.Pool) (*StateStoreAdapter, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres state store: pool cannot be nil")
	}
	a := &StateStoreAdapter{pool: pool}
	if err := a.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres state store: migrate: %w", err)
	}
	return a, nil
}

func (a *StateStoreAdapter) migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS profile_states (
			profile TEXT PRIMARY KEY,
			state   JSONB NOT NULL
		);
	`)
	return err
}

func (a *StateStoreAdapter) Load(ctx context.Context) (map[string]*domain.ProfileState, error) {
	rows, err := a.pool.Query(ctx, `SELECT profile, state FROM profile_states`)
	if err != nil {
		return nil, fmt.Errorf("postgres state store: query: %w: %w", domain.ErrPersistence, err)
	}
	defer rows.Close()

	states := make(map[string]*domain.ProfileState)
	for rows.Next() {
		var (
			profile string
			body    []byte
		)
		if err := rows.Scan(&profile, &body); err != nil {
			return nil, fmt.Errorf("postgres state store: scan: %w: %w", domain.ErrPersistence, err)
		}
		var state domain.ProfileState
		if err := json.Unmarshal(body, &state); err != nil {
			return nil, fmt.Errorf("postgres state store: parse state for '%s': %w: %w", profile, domain.ErrPersistence, err)
		}
		states[profile] = &state
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres state store: iterate: %w: %w", domain.ErrPersistence, err)
	}
	return states, nil
}

func (a *StateStoreAdapter) Commit(ctx context.Context, states map[string]*domain.ProfileState) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres state store: begin transaction: %w: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO profile_states (profile, state)
		VALUES ($1, $2)
		ON CONFLICT (profile) DO UPDATE SET state = EXCLUDED.state
	`

	profiles := make([]string, 0, len(states))
	for profile, state := range states {
		body, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("postgres state store: marshal state for '%s': %w: %w", profile, domain.ErrPersistence, err)
		}
		if _, err := tx.Exec(ctx, upsert, profile, body); err != nil {
			return fmt.Errorf("postgres state store: upsert '%s': %w: %w", profile, domain.ErrPersistence, err)
		}
		profiles = append(profiles, profile)
	}

	// Profiles removed from the configuration drop out of the state table.
	if _, err := tx.Exec(ctx, `DELETE FROM profile_states WHERE profile != ALL($1)`, profiles); err != nil {
		return fmt.Errorf("postgres state store: prune: %w: %w", domain.ErrPersistence, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres state store: commit transaction: %w: %w", domain.ErrPersistence, err)
	}
	return nil
}
