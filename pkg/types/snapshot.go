package types

import (
	"time"

	"github.com/auction-arena/cricket-auction-backend/internal/engine"
)

// SnapshotSchemaVersion bumps whenever the persisted shape changes.
const SnapshotSchemaVersion = 1

// RoomSnapshot is the versioned persisted projection of a room. It carries
// only resumable state: engine.State holds no timer or deferred-action
// handles, those are reconstructed on load by the room actor.
type RoomSnapshot struct {
	SchemaVersion int          `json:"schema_version"`
	SavedAt       time.Time    `json:"saved_at"`
	State         engine.State `json:"state"`
}
