package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

// PostgresStore persists snapshots as jsonb rows keyed by room id.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	ps := &PostgresStore{pool: pool}
	if err := ps.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return ps, nil
}

func (ps *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := ps.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS room_snapshots (
			room_id        text PRIMARY KEY,
			schema_version int NOT NULL,
			state          jsonb NOT NULL,
			updated_at     timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating room_snapshots table: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Save(ctx context.Context, snap *types.RoomSnapshot) error {
	state, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.State.RoomID, err)
	}
	query := `
		INSERT INTO room_snapshots (room_id, schema_version, state, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id)
		DO UPDATE SET schema_version = $2, state = $3, updated_at = $4`
	_, err = ps.pool.Exec(ctx, query, snap.State.RoomID, snap.SchemaVersion, state, snap.SavedAt)
	if err != nil {
		return fmt.Errorf("upserting snapshot %s: %w", snap.State.RoomID, err)
	}
	return nil
}

func (ps *PostgresStore) Load(ctx context.Context, roomID string) (*types.RoomSnapshot, error) {
	query := `SELECT schema_version, state, updated_at FROM room_snapshots WHERE room_id = $1`
	var snap types.RoomSnapshot
	var state []byte
	err := ps.pool.QueryRow(ctx, query, roomID).Scan(&snap.SchemaVersion, &state, &snap.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot %s: %w", roomID, err)
	}
	if err := json.Unmarshal(state, &snap.State); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", roomID, err)
	}
	return &snap, nil
}

func (ps *PostgresStore) Delete(ctx context.Context, roomID string) error {
	if _, err := ps.pool.Exec(ctx, `DELETE FROM room_snapshots WHERE room_id = $1`, roomID); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", roomID, err)
	}
	return nil
}

func (ps *PostgresStore) LoadAll(ctx context.Context) ([]*types.RoomSnapshot, error) {
	rows, err := ps.pool.Query(ctx, `SELECT schema_version, state, updated_at FROM room_snapshots`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*types.RoomSnapshot
	for rows.Next() {
		var snap types.RoomSnapshot
		var state []byte
		if err := rows.Scan(&snap.SchemaVersion, &state, &snap.SavedAt); err != nil {
			return nil, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if err := json.Unmarshal(state, &snap.State); err != nil {
			return nil, fmt.Errorf("decoding snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snaps, nil
}

func (ps *PostgresStore) Close(context.Context) error {
	ps.pool.Close()
	return nil
}
