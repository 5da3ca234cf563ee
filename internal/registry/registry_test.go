package registry

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/catalog"
	"github.com/auction-arena/cricket-auction-backend/internal/engine"
	"github.com/auction-arena/cricket-auction-backend/internal/room"
	"github.com/auction-arena/cricket-auction-backend/internal/snapshot"
	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

func newTestRegistry(t *testing.T, store snapshot.Store) *Registry {
	t.Helper()
	reg := New(context.Background(), zap.NewNop(), store, catalog.Fallback(),
		engine.Rules{BidSeconds: 30, PauseSeconds: 0}, 0)
	t.Cleanup(func() { reg.Inbox() <- ShutdownRegistry{} })
	return reg
}

func createRoom(t *testing.T, reg *Registry, hostID string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	reg.Inbox() <- CreateRoom{HostID: hostID, TeamName: "Hosts", Purse: 100, Reply: reply}
	select {
	case rm := <-reply:
		if rm == nil {
			t.Fatalf("CreateRoom returned nil")
		}
		return rm
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out creating room")
		return nil
	}
}

func getRoom(t *testing.T, reg *Registry, id string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	reg.Inbox() <- GetRoom{ID: id, Reply: reply}
	select {
	case rm := <-reply:
		return rm
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out getting room")
		return nil
	}
}

func resolveSession(t *testing.T, reg *Registry, identity string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	reg.Inbox() <- ResolveSession{Identity: identity, Reply: reply}
	select {
	case rm := <-reply:
		return rm
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out resolving session")
		return nil
	}
}

func TestCreateRoom_GetReturnsSameRoom(t *testing.T) {
	reg := newTestRegistry(t, snapshot.Noop{})
	rm := createRoom(t, reg, "host")

	if len(rm.ID()) != codeLen {
		t.Fatalf("want %d-char room code, got %q", codeLen, rm.ID())
	}
	if got := getRoom(t, reg, rm.ID()); got != rm {
		t.Fatalf("GetRoom returned a different room")
	}
	if got := getRoom(t, reg, "NOSUCH"); got != nil {
		t.Fatalf("unknown id must resolve to nil, got %v", got)
	}
}

func TestCreateRoom_BindsHostSession(t *testing.T) {
	reg := newTestRegistry(t, snapshot.Noop{})
	rm := createRoom(t, reg, "host")

	if got := resolveSession(t, reg, "host"); got != rm {
		t.Fatalf("host session not bound to the new room")
	}
	if got := resolveSession(t, reg, "stranger"); got != nil {
		t.Fatalf("unknown identity must resolve to nil")
	}
}

func TestJoinRoom_BindsSession(t *testing.T) {
	reg := newTestRegistry(t, snapshot.Noop{})
	rm := createRoom(t, reg, "host")

	reply := make(chan *room.Room, 1)
	reg.Inbox() <- JoinRoom{RoomID: rm.ID(), Identity: "guest", Reply: reply}
	if got := <-reply; got != rm {
		t.Fatalf("JoinRoom returned wrong room")
	}
	if got := resolveSession(t, reg, "guest"); got != rm {
		t.Fatalf("join must bind the guest session")
	}

	reply = make(chan *room.Room, 1)
	reg.Inbox() <- JoinRoom{RoomID: "NOSUCH", Identity: "guest2", Reply: reply}
	if got := <-reply; got != nil {
		t.Fatalf("joining a dead code must return nil")
	}
	if got := resolveSession(t, reg, "guest2"); got != nil {
		t.Fatalf("failed join must not bind a session")
	}
}

func TestLeaveRoom_LastTeamDestroysRoom(t *testing.T) {
	reg := newTestRegistry(t, snapshot.Noop{})
	rm := createRoom(t, reg, "host")
	id := rm.ID()

	reg.Inbox() <- LeaveRoom{RoomID: id, Identity: "host"}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if getRoom(t, reg, id) == nil {
			select {
			case <-rm.Done():
				return
			case <-time.After(3 * time.Second):
				t.Fatalf("room removed from registry but never stopped")
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("empty room never destroyed")
}

func TestRestore_RebuildsRoomsAndSessions(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}

	state := engine.NewState("SAVED1", "host", "Hosts", 100, catalog.Fallback().ShuffledPool(),
		engine.Rules{BidSeconds: 30, PauseSeconds: 0})
	state.AddTeam("guest", "Guests")
	snap := &types.RoomSnapshot{
		SchemaVersion: types.SnapshotSchemaVersion,
		SavedAt:       time.Now().UTC(),
		State:         *state.Clone(),
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}

	reg := newTestRegistry(t, store)
	n, err := reg.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 room restored, got %d", n)
	}

	rm := getRoom(t, reg, "SAVED1")
	if rm == nil {
		t.Fatalf("restored room not registered")
	}
	// Both identities can rejoin without knowing the code.
	if resolveSession(t, reg, "host") != rm || resolveSession(t, reg, "guest") != rm {
		t.Fatalf("restored sessions not rebound")
	}
}

func TestRestore_SkipsUnknownSchema(t *testing.T) {
	store, err := snapshot.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	state := engine.NewState("OLDFMT", "host", "Hosts", 100, nil,
		engine.Rules{BidSeconds: 30, PauseSeconds: 0})
	snap := &types.RoomSnapshot{
		SchemaVersion: types.SnapshotSchemaVersion + 1,
		SavedAt:       time.Now().UTC(),
		State:         *state.Clone(),
	}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("seeding snapshot: %v", err)
	}

	reg := newTestRegistry(t, store)
	n, err := reg.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 0 {
		t.Fatalf("unknown schema must be skipped, restored %d", n)
	}
	if getRoom(t, reg, "OLDFMT") != nil {
		t.Fatalf("skipped room must not be registered")
	}
}

func TestGenerateCode_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := generateCode()
		if len(code) != codeLen {
			t.Fatalf("want length %d, got %q", codeLen, code)
		}
		for _, c := range code {
			if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				t.Fatalf("code %q contains %q", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 90 {
		t.Fatalf("codes barely vary: %d unique of 100", len(seen))
	}
}
