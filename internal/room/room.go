package room

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/engine"
	"github.com/auction-arena/cricket-auction-backend/internal/snapshot"
	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

const (
	tickInterval = time.Second
	saveDebounce = time.Second
	saveTimeout  = 5 * time.Second
)

type Msg interface{ isRoomMsg() }

// Join attaches a connection to the room. With Rejoin set the identity must
// already have a team (stale sessions get an errorMessage instead); without
// it, a missing team is created with the room's starting purse.
type Join struct {
	ConnID   string
	Identity string
	TeamName string
	Rejoin   bool
	Created  bool // room was just created for this host; reply roomCreated
	Outbox   chan types.ServerMessage
}

func (Join) isRoomMsg() {}

// Leave detaches a connection; the team stays and can rejoin later. Rebind
// means the connection is moving to another room and keeps its outbox;
// otherwise the room closes it so the connection's writer can exit.
type Leave struct {
	ConnID string
	Rebind bool
}

func (Leave) isRoomMsg() {}

// Quit removes the identity's team from the room entirely.
type Quit struct{ Identity string }

func (Quit) isRoomMsg() {}

type FromClient struct{ Cmd engine.Command }

func (FromClient) isRoomMsg() {}

type GetState struct{ Reply chan View }

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// Internal timer messages. The generation stamp lets the actor drop fires
// that were superseded by a cancel-then-replace.
type timerTick struct{ gen uint64 }

func (timerTick) isRoomMsg() {}

type advanceDue struct{ gen uint64 }

func (advanceDue) isRoomMsg() {}

type saveDue struct{}

func (saveDue) isRoomMsg() {}

// View is a copy of room state replied over a channel, so callers can read
// it without touching the actor's live state.
type View struct {
	NumClients int
	State      *engine.State
}

type Room struct {
	id      string
	inbox   chan Msg
	state   *engine.State
	clients map[string]chan types.ServerMessage
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
	store   snapshot.Store
	onEmpty func(roomID string)

	timerGen     uint64
	tickTimer    *time.Timer
	advanceGen   uint64
	advanceTimer *time.Timer
	savePending  bool
	lastActivity atomic.Int64
}

// New starts the actor goroutine owning state. onEmpty is called (from the
// actor) when the last team quits, so the registry can drop the room.
func New(parent context.Context, log *zap.Logger, store snapshot.Store, state *engine.State, onEmpty func(string)) *Room {
	r := newRoom(parent, log, store, state, onEmpty)
	go r.loop()
	return r
}

// Restore rebuilds a room from a persisted snapshot. Countdown and advance
// handles are transient, so a room that was mid-round restarts its countdown
// fresh, and one caught between items re-schedules the advance.
func Restore(parent context.Context, log *zap.Logger, store snapshot.Store, snap *types.RoomSnapshot, onEmpty func(string)) *Room {
	state := snap.State
	if state.Teams == nil {
		state.Teams = make(map[string]*engine.Team)
	}
	if state.Auction.Skips == nil {
		state.Auction.Skips = make(map[string]bool)
	}
	r := newRoom(parent, log, store, &state, onEmpty)
	if state.Phase == engine.PhaseAuction {
		if state.Auction.Open {
			state.Auction.SecondsLeft = state.Rules.BidSeconds
			r.startCountdown()
		} else {
			r.scheduleAdvance()
		}
	}
	go r.loop()
	return r
}

func newRoom(parent context.Context, log *zap.Logger, store snapshot.Store, state *engine.State, onEmpty func(string)) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:      state.RoomID,
		inbox:   make(chan Msg, 64),
		state:   state,
		clients: make(map[string]chan types.ServerMessage),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With(zap.String("room", state.RoomID)),
		store:   store,
		onEmpty: onEmpty,
	}
	r.touch()
	return r
}

func (r *Room) ID() string          { return r.id }
func (r *Room) Inbox() chan<- Msg   { return r.inbox }
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// LastActivity is read by the registry janitor from outside the actor.
func (r *Room) LastActivity() time.Time {
	return time.Unix(0, r.lastActivity.Load())
}

func (r *Room) touch() {
	r.lastActivity.Store(time.Now().UnixNano())
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg)
			case Quit:
				r.handleQuit(msg.Identity)
			case FromClient:
				r.handleCommand(msg.Cmd)
			case timerTick:
				r.handleTick(msg.gen)
			case advanceDue:
				r.handleAdvance(msg.gen)
			case saveDue:
				r.savePending = false
				r.persistAsync()
			case GetState:
				msg.Reply <- View{NumClients: len(r.clients), State: r.state.Clone()}
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	r.touch()
	if msg.Rejoin {
		if _, ok := r.state.Teams[msg.Identity]; !ok {
			r.unicast(msg.Outbox, types.ServerMessage{
				Type:  "errorMessage",
				Error: "no team for this session in room " + r.id,
			})
			return
		}
	}
	team := r.state.Teams[msg.Identity]
	created := false
	if team == nil {
		team, created = r.state.AddTeam(msg.Identity, msg.TeamName)
	}
	r.clients[msg.ConnID] = msg.Outbox

	joinType := "joinedRoom"
	if msg.Created {
		joinType = "roomCreated"
	}
	reply := types.ServerMessage{Type: joinType}
	if team != nil {
		reply.TeamID = team.ID
		reply.TeamName = team.Name
	}
	// Past LOBBY a new identity gets no team and watches as a spectator.
	r.unicast(msg.Outbox, reply)
	// Full replay so a reconnecting client lands exactly where connected
	// teammates already are.
	r.unicast(msg.Outbox, types.ServerMessage{Type: "roomState", State: r.view()})
	if created {
		r.broadcastTeams()
		r.markDirty()
	}
}

func (r *Room) handleLeave(msg Leave) {
	ch, ok := r.clients[msg.ConnID]
	if !ok {
		return
	}
	delete(r.clients, msg.ConnID)
	if !msg.Rebind {
		close(ch)
	}
}

func (r *Room) handleQuit(identity string) {
	r.touch()
	events, empty := r.state.RemoveTeam(identity)
	if empty {
		r.log.Info("last team left, destroying room")
		go r.onEmpty(r.id)
		return
	}
	r.handleEvents(events)
	r.markDirty()
}

func (r *Room) handleCommand(cmd engine.Command) {
	r.touch()
	events, err := r.state.Apply(cmd)
	if err != nil {
		// Rejected commands change nothing and broadcast nothing.
		r.log.Debug("command rejected",
			zap.String("cmd", string(cmd.Type)),
			zap.String("team", cmd.TeamID),
			zap.Error(err))
		return
	}
	r.markDirty()
	r.handleEvents(events)
}

func (r *Room) handleEvents(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtTeamsUpdated:
			r.broadcastTeams()
		case engine.EvtAuctionStarted:
			r.broadcast(types.ServerMessage{Type: "auctionStarted"})
		case engine.EvtNewItem:
			r.broadcast(types.ServerMessage{Type: "newItem", Player: ev.Player, Amount: ev.Amount})
			r.startCountdown()
		case engine.EvtBidUpdated:
			r.broadcast(types.ServerMessage{
				Type: "bidUpdated", TeamID: ev.TeamID, TeamName: ev.TeamName, Amount: ev.Amount,
			})
			r.startCountdown()
		case engine.EvtItemSold:
			r.broadcast(types.ServerMessage{
				Type: "itemSold", TeamID: ev.TeamID, TeamName: ev.TeamName,
				Amount: ev.Amount, Player: ev.Player, Eliminated: ev.Eliminated,
			})
			r.stopCountdown()
			r.scheduleAdvance()
		case engine.EvtItemUnsold:
			r.broadcast(types.ServerMessage{Type: "itemUnsold", Player: ev.Player})
			r.stopCountdown()
			r.scheduleAdvance()
		case engine.EvtSelectionStarted:
			r.stopCountdown()
			r.cancelAdvance()
			r.broadcast(types.ServerMessage{Type: "selectionPhaseStarted"})
		case engine.EvtGameOver:
			r.broadcast(types.ServerMessage{Type: "gameOverResults", Rankings: ev.Rankings})
		}
	}
}

func (r *Room) handleTick(gen uint64) {
	if gen != r.timerGen || r.state.Phase != engine.PhaseAuction || !r.state.Auction.Open {
		return
	}
	r.state.Auction.SecondsLeft--
	if r.state.Auction.SecondsLeft > 0 {
		r.broadcast(types.ServerMessage{Type: "timerTick", Seconds: r.state.Auction.SecondsLeft})
		r.tickTimer = time.AfterFunc(tickInterval, func() { r.post(timerTick{gen: gen}) })
		return
	}
	r.broadcast(types.ServerMessage{Type: "timerTick", Seconds: 0})
	events, err := r.state.Apply(engine.Command{Type: engine.CmdCloseRound})
	if err != nil {
		return
	}
	r.markDirty()
	r.handleEvents(events)
}

func (r *Room) handleAdvance(gen uint64) {
	if gen != r.advanceGen {
		return
	}
	events, err := r.state.Apply(engine.Command{Type: engine.CmdNextItem})
	if err != nil || len(events) == 0 {
		return
	}
	r.markDirty()
	r.handleEvents(events)
}

// startCountdown arms a fresh countdown for the current round, cancelling
// any prior one. The engine has already set SecondsLeft.
func (r *Room) startCountdown() {
	r.stopCountdown()
	gen := r.timerGen
	r.tickTimer = time.AfterFunc(tickInterval, func() { r.post(timerTick{gen: gen}) })
}

func (r *Room) stopCountdown() {
	if r.tickTimer != nil {
		r.tickTimer.Stop()
		r.tickTimer = nil
	}
	r.timerGen++
}

// scheduleAdvance defers opening the next item so clients can display the
// round's outcome; a newer schedule supersedes any pending one.
func (r *Room) scheduleAdvance() {
	r.cancelAdvance()
	gen := r.advanceGen
	pause := time.Duration(r.state.Rules.PauseSeconds) * time.Second
	r.advanceTimer = time.AfterFunc(pause, func() { r.post(advanceDue{gen: gen}) })
}

func (r *Room) cancelAdvance() {
	if r.advanceTimer != nil {
		r.advanceTimer.Stop()
		r.advanceTimer = nil
	}
	r.advanceGen++
}

func (r *Room) post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

// markDirty coalesces bursts of mutations into one debounced save.
func (r *Room) markDirty() {
	if r.savePending {
		return
	}
	r.savePending = true
	time.AfterFunc(saveDebounce, func() { r.post(saveDue{}) })
}

// persistAsync saves a deep copy off the actor goroutine; failure is logged
// and the in-memory room stays authoritative.
func (r *Room) persistAsync() {
	snap := r.snapshot()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := r.store.Save(ctx, snap); err != nil {
			r.log.Warn("snapshot save failed", zap.Error(err))
		}
	}()
}

func (r *Room) snapshot() *types.RoomSnapshot {
	return &types.RoomSnapshot{
		SchemaVersion: types.SnapshotSchemaVersion,
		SavedAt:       time.Now().UTC(),
		State:         *r.state.Clone(),
	}
}

func (r *Room) shutdown() {
	r.stopCountdown()
	r.cancelAdvance()
	if len(r.state.Teams) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := r.store.Save(ctx, r.snapshot()); err != nil {
			r.log.Warn("final snapshot save failed", zap.Error(err))
		}
		cancel()
	}
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcastTeams() {
	r.broadcast(types.ServerMessage{Type: "teamsUpdated", Teams: r.teamViews()})
}

func (r *Room) broadcast(msg types.ServerMessage) {
	msg.RoomID = r.id
	for id, ch := range r.clients {
		select {
		case ch <- msg:
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
		}
	}
}

func (r *Room) unicast(ch chan types.ServerMessage, msg types.ServerMessage) {
	msg.RoomID = r.id
	select {
	case ch <- msg:
	default:
	}
}

func (r *Room) teamViews() []types.TeamView {
	views := make([]types.TeamView, 0, len(r.state.Teams))
	for _, id := range r.state.Order {
		t := r.state.Teams[id]
		if t == nil {
			continue
		}
		views = append(views, types.TeamView{
			ID:              t.ID,
			Name:            t.Name,
			Purse:           t.Purse,
			Squad:           t.Squad,
			Eliminated:      t.Eliminated,
			FinishedBidding: t.FinishedBidding,
			Submitted:       t.Submitted,
			Score:           t.Score,
			IsHost:          t.ID == r.state.HostID,
		})
	}
	return views
}

func (r *Room) view() *types.RoomView {
	v := &types.RoomView{
		RoomID:        r.id,
		Phase:         r.state.Phase,
		HostID:        r.state.HostID,
		StartingPurse: r.state.StartingPurse,
		Teams:         r.teamViews(),
		PoolIndex:     r.state.Auction.Index,
		PoolSize:      len(r.state.Auction.Pool),
	}
	if r.state.Phase == engine.PhaseAuction && r.state.Auction.Open {
		v.CurrentPlayer = r.state.CurrentItem()
		v.CurrentBid = r.state.Auction.CurrentBid
		v.LeaderID = r.state.Auction.LeaderID
		v.SecondsLeft = r.state.Auction.SecondsLeft
	}
	if r.state.Phase == engine.PhaseResult {
		v.Rankings = r.state.Rankings()
	}
	return v
}
