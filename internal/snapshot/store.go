// Package snapshot persists the resumable projection of room state. Saves
// are best-effort: the in-memory room stays authoritative and a failed write
// is only logged by the caller.
package snapshot

import (
	"context"
	"errors"

	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

// ErrNotFound is returned when no snapshot exists for a room id.
var ErrNotFound = errors.New("snapshot not found")

type Store interface {
	Save(ctx context.Context, snap *types.RoomSnapshot) error
	Load(ctx context.Context, roomID string) (*types.RoomSnapshot, error)
	Delete(ctx context.Context, roomID string) error
	// LoadAll returns every stored snapshot, used to rebuild rooms at boot.
	LoadAll(ctx context.Context) ([]*types.RoomSnapshot, error)
	Close(ctx context.Context) error
}

// Noop discards everything; used when SNAPSHOT_BACKEND=none.
type Noop struct{}

func (Noop) Save(context.Context, *types.RoomSnapshot) error { return nil }

func (Noop) Load(context.Context, string) (*types.RoomSnapshot, error) { return nil, ErrNotFound }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) LoadAll(context.Context) ([]*types.RoomSnapshot, error) { return nil, nil }

func (Noop) Close(context.Context) error { return nil }
