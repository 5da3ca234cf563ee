package registry

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/catalog"
	"github.com/auction-arena/cricket-auction-backend/internal/engine"
	"github.com/auction-arena/cricket-auction-backend/internal/room"
	"github.com/auction-arena/cricket-auction-backend/internal/snapshot"
	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

const (
	codeLen       = 6
	codeCharset   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	sweepInterval = time.Minute
)

type Msg interface{ isRegistryMsg() }

// CreateRoom makes a fresh room with the host as its sole team and a newly
// shuffled pool. The requested purse is clamped by the engine.
type CreateRoom struct {
	HostID   string
	TeamName string
	Purse    float64
	Reply    chan *room.Room
}

func (CreateRoom) isRegistryMsg() {}

// JoinRoom resolves a room and binds the identity's session to it. Reply is
// nil when the room does not exist.
type JoinRoom struct {
	RoomID   string
	Identity string
	Reply    chan *room.Room
}

func (JoinRoom) isRegistryMsg() {}

// ResolveSession looks up the room an identity last joined.
type ResolveSession struct {
	Identity string
	Reply    chan *room.Room
}

func (ResolveSession) isRegistryMsg() {}

type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

func (GetRoom) isRegistryMsg() {}

// LeaveRoom is the explicit quit: the team is removed and the session
// mapping dropped.
type LeaveRoom struct {
	RoomID   string
	Identity string
}

func (LeaveRoom) isRegistryMsg() {}

type RemoveRoom struct{ ID string }

func (RemoveRoom) isRegistryMsg() {}

type ShutdownRegistry struct{}

func (ShutdownRegistry) isRegistryMsg() {}

type restoreRooms struct {
	snaps []*types.RoomSnapshot
	reply chan int
}

func (restoreRooms) isRegistryMsg() {}

type sweep struct{}

func (sweep) isRegistryMsg() {}

type Registry struct {
	inbox    chan Msg
	rooms    map[string]*room.Room
	sessions map[string]string // identity -> room id
	ctx      context.Context
	cancel   context.CancelFunc
	log      *zap.Logger
	store    snapshot.Store
	catalog  *catalog.Catalog
	rules    engine.Rules
	idleTTL  time.Duration
}

func New(parent context.Context, log *zap.Logger, store snapshot.Store, cat *catalog.Catalog, rules engine.Rules, idleTTL time.Duration) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan Msg, 64),
		rooms:    make(map[string]*room.Room),
		sessions: make(map[string]string),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
		store:    store,
		catalog:  cat,
		rules:    rules,
		idleTTL:  idleTTL,
	}
	go r.loop()
	if idleTTL > 0 {
		go r.janitor()
	}
	return r
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				msg.Reply <- r.createRoom(msg)

			case JoinRoom:
				rm := r.rooms[msg.RoomID]
				if rm != nil {
					r.sessions[msg.Identity] = msg.RoomID
				}
				msg.Reply <- rm // may be nil

			case ResolveSession:
				var rm *room.Room
				if id, ok := r.sessions[msg.Identity]; ok {
					rm = r.rooms[id]
				}
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- r.rooms[msg.ID]

			case LeaveRoom:
				delete(r.sessions, msg.Identity)
				if rm := r.rooms[msg.RoomID]; rm != nil {
					rm.Inbox() <- room.Quit{Identity: msg.Identity}
				}

			case RemoveRoom:
				r.removeRoom(msg.ID, true)

			case restoreRooms:
				msg.reply <- r.restore(msg.snaps)

			case sweep:
				r.sweepIdle()

			case ShutdownRegistry:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Registry) createRoom(msg CreateRoom) *room.Room {
	code := r.newCode()
	pool := r.catalog.ShuffledPool()
	state := engine.NewState(code, msg.HostID, msg.TeamName, msg.Purse, pool, r.rules)
	rm := room.New(r.ctx, r.log, r.store, state, r.notifyEmpty)
	r.rooms[code] = rm
	r.sessions[msg.HostID] = code
	r.log.Info("room created",
		zap.String("room", code),
		zap.String("host", msg.HostID),
		zap.Float64("purse", state.StartingPurse),
		zap.Int("pool", len(pool)))
	return rm
}

func (r *Registry) newCode() string {
	for {
		code := generateCode()
		if _, taken := r.rooms[code]; !taken {
			return code
		}
	}
}

func generateCode() string {
	code := make([]byte, codeLen)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			// crypto/rand failing is unrecoverable for code generation
			panic(fmt.Sprintf("generating room code: %v", err))
		}
		code[i] = codeCharset[n.Int64()]
	}
	return string(code)
}

// notifyEmpty is invoked by a room actor when its last team quits.
func (r *Registry) notifyEmpty(roomID string) {
	select {
	case r.inbox <- RemoveRoom{ID: roomID}:
	case <-r.ctx.Done():
	}
}

func (r *Registry) removeRoom(id string, dropSnapshot bool) {
	rm := r.rooms[id]
	if rm == nil {
		return
	}
	delete(r.rooms, id)
	for identity, roomID := range r.sessions {
		if roomID == id {
			delete(r.sessions, identity)
		}
	}
	rm.Inbox() <- room.Shutdown{}
	if dropSnapshot {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.store.Delete(ctx, id); err != nil {
				r.log.Warn("deleting snapshot failed", zap.String("room", id), zap.Error(err))
			}
		}()
	}
}

func (r *Registry) sweepIdle() {
	cutoff := time.Now().Add(-r.idleTTL)
	for id, rm := range r.rooms {
		if rm.LastActivity().Before(cutoff) {
			r.log.Info("destroying idle room", zap.String("room", id))
			r.removeRoom(id, true)
		}
	}
}

func (r *Registry) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			select {
			case r.inbox <- sweep{}:
			case <-r.ctx.Done():
				return
			}
		}
	}
}

func (r *Registry) shutdown() {
	for id, rm := range r.rooms {
		rm.Inbox() <- room.Shutdown{}
		delete(r.rooms, id)
	}
	clear(r.sessions)
	r.cancel()
}
