package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"turnos/ticket-service/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const snapshotName = "ticket-system"

// Snapshotter keeps the serialized system state in a single row, so several
// kiosks at the location can share one queue through a common database.
type Snapshotter struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Snapshotter {
	return &Snapshotter{pool: pool}
}

func (s *Snapshotter) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS system_state (
			name TEXT PRIMARY KEY,
			state JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure system_state table: %w", err)
	}
	return nil
}

func (s *Snapshotter) Load(ctx context.Context) (store.SystemState, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM system_state WHERE name = $1`, snapshotName).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.SystemState{}, false, nil
		}
		return store.SystemState{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var state store.SystemState
	if err := json.Unmarshal(data, &state); err != nil {
		return store.SystemState{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return state, true, nil
}

func (s *Snapshotter) Save(ctx context.Context, state store.SystemState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO system_state (name, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		snapshotName, data)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
