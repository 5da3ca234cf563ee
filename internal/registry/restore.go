package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/room"
	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

// Restore rebuilds every persisted room at startup. Sessions are re-derived
// from the team identities in each snapshot so rejoinGame works straight
// after a server restart. Returns the number of rooms restored.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	snaps, err := r.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}
	reply := make(chan int, 1)
	select {
	case r.inbox <- restoreRooms{snaps: snaps, reply: reply}:
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	}
	return <-reply, nil
}

func (r *Registry) restore(snaps []*types.RoomSnapshot) int {
	restored := 0
	for _, snap := range snaps {
		id := snap.State.RoomID
		if snap.SchemaVersion != types.SnapshotSchemaVersion {
			r.log.Warn("skipping snapshot with unknown schema version",
				zap.String("room", id),
				zap.Int("schema_version", snap.SchemaVersion))
			continue
		}
		if id == "" || r.rooms[id] != nil {
			continue
		}
		rm := room.Restore(r.ctx, r.log, r.store, snap, r.notifyEmpty)
		r.rooms[id] = rm
		for identity := range snap.State.Teams {
			r.sessions[identity] = id
		}
		restored++
		r.log.Info("room restored",
			zap.String("room", id),
			zap.String("phase", string(snap.State.Phase)),
			zap.Int("teams", len(snap.State.Teams)))
	}
	return restored
}
