package engine

import (
	"errors"
	"sort"

	"github.com/auction-arena/cricket-auction-backend/internal/catalog"
	"github.com/auction-arena/cricket-auction-backend/internal/scoring"
)

var ErrWrongPhase = errors.New("not allowed in current phase")
var ErrNotHost = errors.New("only the host may do that")
var ErrUnknownTeam = errors.New("no such team in room")
var ErrRoundClosed = errors.New("bidding round is closed")
var ErrBidTooLow = errors.New("bid below current bid plus increment")
var ErrInsufficientPurse = errors.New("bid exceeds remaining purse")
var ErrSquadFull = errors.New("squad is full")
var ErrOverseasLimit = errors.New("overseas squad limit reached")
var ErrEliminated = errors.New("team is eliminated")
var ErrFinishedBidding = errors.New("team has finished bidding")
var ErrSquadTooSmall = errors.New("squad below minimum playable size")
var ErrAlreadySubmitted = errors.New("lineup already submitted")
var ErrInvalidLineup = errors.New("invalid lineup")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseLobby     Phase = "LOBBY"
	PhaseAuction   Phase = "AUCTION"
	PhaseSelection Phase = "SELECTION"
	PhaseResult    Phase = "RESULT"
)

// SquadPlayer is a catalog player plus the price it sold for; owned by
// exactly one team from the moment its round closes.
type SquadPlayer struct {
	Player catalog.Player `json:"player"`
	Price  float64        `json:"price"`
}

// Lineup is the fielded subset of a squad, chosen during SELECTION.
type Lineup struct {
	PlayerIDs     []string `json:"player_ids"`
	CaptainID     string   `json:"captain_id"`
	ViceCaptainID string   `json:"vice_captain_id"`
}

// Team is one participant's persistent state within a room, keyed by the
// stable user identity so it survives reconnects.
type Team struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Purse           float64       `json:"purse"`
	Squad           []SquadPlayer `json:"squad"`
	Eliminated      bool          `json:"eliminated"`
	FinishedBidding bool          `json:"finished_bidding"`
	Submitted       bool          `json:"submitted"`
	Score           float64       `json:"score"`
	Lineup          *Lineup       `json:"lineup,omitempty"`
}

// Auction is the per-room bidding sub-state. Every field here is resumable;
// countdown and deferred-advance handles live on the room actor instead and
// are never persisted.
type Auction struct {
	Pool        []catalog.Player `json:"pool"`
	Index       int              `json:"index"`
	CurrentBid  float64          `json:"current_bid"`
	LeaderID    string           `json:"leader_id"`
	Skips       map[string]bool  `json:"skips"`
	Open        bool             `json:"open"`
	SecondsLeft int              `json:"seconds_left"`
}

// State is the full resumable state of one room. It is mutated exclusively
// by the owning room actor; Apply assumes that serialization.
type State struct {
	RoomID        string           `json:"room_id"`
	HostID        string           `json:"host_id"`
	StartingPurse float64          `json:"starting_purse"`
	Phase         Phase            `json:"phase"`
	Teams         map[string]*Team `json:"teams"`
	Order         []string         `json:"order"`
	Auction       Auction          `json:"auction"`
	Rules         Rules            `json:"rules"`
}

func NewState(roomID, hostID, hostName string, purse float64, pool []catalog.Player, rules Rules) *State {
	s := &State{
		RoomID:        roomID,
		HostID:        hostID,
		StartingPurse: RoundMoney(ClampPurse(purse)),
		Phase:         PhaseLobby,
		Teams:         make(map[string]*Team),
		Auction:       Auction{Pool: pool, Skips: make(map[string]bool)},
		Rules:         rules,
	}
	s.addTeam(hostID, hostName)
	return s
}

type CommandType string

const (
	CmdStartAuction  CommandType = "StartAuction"
	CmdPlaceBid      CommandType = "PlaceBid"
	CmdSkip          CommandType = "Skip"
	CmdFinishBidding CommandType = "FinishBidding"
	CmdSubmitLineup  CommandType = "SubmitLineup"

	// Internal commands posted by the room actor, never by clients.
	CmdCloseRound CommandType = "CloseRound"
	CmdNextItem   CommandType = "NextItem"
)

type Command struct {
	Type          CommandType
	TeamID        string
	Amount        float64
	PlayerIDs     []string
	CaptainID     string
	ViceCaptainID string
}

type EventType string

const (
	EvtTeamsUpdated     EventType = "TeamsUpdated"
	EvtAuctionStarted   EventType = "AuctionStarted"
	EvtNewItem          EventType = "NewItem"
	EvtBidUpdated       EventType = "BidUpdated"
	EvtItemSold         EventType = "ItemSold"
	EvtItemUnsold       EventType = "ItemUnsold"
	EvtSelectionStarted EventType = "SelectionStarted"
	EvtGameOver         EventType = "GameOver"
)

type Ranking struct {
	TeamID string  `json:"team_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type Event struct {
	Type       EventType
	TeamID     string
	TeamName   string
	Amount     float64
	Player     *catalog.Player
	Eliminated bool
	Rankings   []Ranking
}

// Apply validates cmd against the current state, mutates the state on
// acceptance, and returns the events the room should broadcast. A non-nil
// error means the command was rejected with no state change.
func (s *State) Apply(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdStartAuction:
		return s.startAuction(cmd.TeamID)
	case CmdPlaceBid:
		return s.placeBid(cmd.TeamID, cmd.Amount)
	case CmdSkip:
		return s.skip(cmd.TeamID)
	case CmdFinishBidding:
		return s.finishBidding(cmd.TeamID)
	case CmdSubmitLineup:
		return s.submitLineup(cmd.TeamID, cmd.PlayerIDs, cmd.CaptainID, cmd.ViceCaptainID)
	case CmdCloseRound:
		return s.closeRoundCmd()
	case CmdNextItem:
		return s.nextItem()
	default:
		return nil, ErrUnsupportedCommand
	}
}

// AddTeam creates a team for identity, or returns the existing one unchanged
// (the reconnect case). Creation is a LOBBY-only operation: an identity
// arriving later gets no team, since an empty squad could never produce a
// lineup and would stall the completion rule. The bool reports whether a
// team was created.
func (s *State) AddTeam(identity, name string) (*Team, bool) {
	if t, ok := s.Teams[identity]; ok {
		return t, false
	}
	if s.Phase != PhaseLobby {
		return nil, false
	}
	return s.addTeam(identity, name), true
}

func (s *State) addTeam(identity, name string) *Team {
	t := &Team{ID: identity, Name: name, Purse: s.StartingPurse}
	s.Teams[identity] = t
	s.Order = append(s.Order, identity)
	return t
}

// RemoveTeam deletes a team outright (explicit quit). If the host left, the
// longest-standing remaining team is promoted. The returned events cover any
// round closure the departure triggered; the bool reports whether the room
// is now empty and should be destroyed.
func (s *State) RemoveTeam(identity string) ([]Event, bool) {
	if _, ok := s.Teams[identity]; !ok {
		return nil, len(s.Teams) == 0
	}
	delete(s.Teams, identity)
	for i, id := range s.Order {
		if id == identity {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			break
		}
	}
	if len(s.Teams) == 0 {
		return nil, true
	}
	if s.HostID == identity {
		s.HostID = s.Order[0]
	}
	delete(s.Auction.Skips, identity)
	if s.Auction.LeaderID == identity {
		// The leader walked out; their bid stays as the floor but nobody
		// is committed to it anymore.
		s.Auction.LeaderID = ""
	}
	var events []Event
	if s.Phase == PhaseAuction && s.Auction.Open && s.skipQuorumReached() {
		events = append(events, s.closeRound()...)
	}
	events = append(events, Event{Type: EvtTeamsUpdated})
	events = append(events, s.maybeFinishSelection()...)
	return events, false
}

func (s *State) startAuction(identity string) ([]Event, error) {
	if s.Phase != PhaseLobby {
		return nil, ErrWrongPhase
	}
	if identity != s.HostID {
		return nil, ErrNotHost
	}
	s.Phase = PhaseAuction
	events := []Event{{Type: EvtAuctionStarted}}
	if len(s.Auction.Pool) == 0 {
		return append(events, s.startSelection()...), nil
	}
	events = append(events, s.openRound()...)
	return events, nil
}

func (s *State) placeBid(identity string, amount float64) ([]Event, error) {
	if s.Phase != PhaseAuction {
		return nil, ErrWrongPhase
	}
	if !s.Auction.Open {
		return nil, ErrRoundClosed
	}
	t, ok := s.Teams[identity]
	if !ok {
		return nil, ErrUnknownTeam
	}
	if t.Eliminated {
		return nil, ErrEliminated
	}
	if t.FinishedBidding {
		return nil, ErrFinishedBidding
	}
	if len(t.Squad) >= MaxSquadSize {
		return nil, ErrSquadFull
	}
	if amount+moneyEps < s.Auction.CurrentBid+MinIncrement {
		return nil, ErrBidTooLow
	}
	if amount > t.Purse+moneyEps {
		return nil, ErrInsufficientPurse
	}
	item := s.currentItem()
	if item.Overseas && t.overseasCount() >= MaxOverseasSquad {
		return nil, ErrOverseasLimit
	}

	s.Auction.CurrentBid = RoundMoney(amount)
	s.Auction.LeaderID = identity
	// A new bid resets the consensus to skip.
	s.Auction.Skips = make(map[string]bool)
	s.Auction.SecondsLeft = s.Rules.BidSeconds
	return []Event{{
		Type:     EvtBidUpdated,
		TeamID:   identity,
		TeamName: t.Name,
		Amount:   s.Auction.CurrentBid,
	}}, nil
}

func (s *State) skip(identity string) ([]Event, error) {
	if s.Phase != PhaseAuction {
		return nil, ErrWrongPhase
	}
	if !s.Auction.Open {
		return nil, ErrRoundClosed
	}
	t, ok := s.Teams[identity]
	if !ok {
		return nil, ErrUnknownTeam
	}
	if t.Eliminated {
		return nil, ErrEliminated
	}
	if t.FinishedBidding {
		return nil, ErrFinishedBidding
	}
	if identity == s.Auction.LeaderID {
		// The leader is committed to buying; their vote never counts.
		return nil, nil
	}
	s.Auction.Skips[identity] = true
	if s.skipQuorumReached() {
		return s.closeRound(), nil
	}
	return nil, nil
}

func (s *State) finishBidding(identity string) ([]Event, error) {
	if s.Phase != PhaseAuction {
		return nil, ErrWrongPhase
	}
	t, ok := s.Teams[identity]
	if !ok {
		return nil, ErrUnknownTeam
	}
	if t.Eliminated {
		return nil, ErrEliminated
	}
	if t.FinishedBidding {
		return nil, ErrFinishedBidding
	}
	if len(t.Squad) < MinPlayableSquad {
		return nil, ErrSquadTooSmall
	}
	t.FinishedBidding = true
	delete(s.Auction.Skips, identity)
	var events []Event
	// The active set just shrank, which can satisfy the skip quorum.
	if s.Auction.Open && identity != s.Auction.LeaderID && s.skipQuorumReached() {
		events = append(events, s.closeRound()...)
	}
	events = append(events, Event{Type: EvtTeamsUpdated})
	return events, nil
}

func (s *State) submitLineup(identity string, playerIDs []string, captainID, viceCaptainID string) ([]Event, error) {
	if s.Phase != PhaseSelection {
		return nil, ErrWrongPhase
	}
	t, ok := s.Teams[identity]
	if !ok {
		return nil, ErrUnknownTeam
	}
	if t.Eliminated {
		return nil, ErrEliminated
	}
	if t.Submitted {
		return nil, ErrAlreadySubmitted
	}
	picks, err := t.buildPicks(playerIDs, captainID, viceCaptainID)
	if err != nil {
		return nil, err
	}

	t.Lineup = &Lineup{PlayerIDs: playerIDs, CaptainID: captainID, ViceCaptainID: viceCaptainID}
	t.Score = scoring.Total(picks, captainID, viceCaptainID)
	t.Submitted = true

	events := []Event{{Type: EvtTeamsUpdated}}
	events = append(events, s.maybeFinishSelection()...)
	return events, nil
}

func (s *State) closeRoundCmd() ([]Event, error) {
	if s.Phase != PhaseAuction || !s.Auction.Open {
		return nil, ErrRoundClosed
	}
	return s.closeRound(), nil
}

// closeRound settles the current item; identical whether triggered by timer
// expiry or by skip quorum.
func (s *State) closeRound() []Event {
	s.Auction.Open = false
	item := s.currentItem()
	var events []Event
	if leader, ok := s.Teams[s.Auction.LeaderID]; ok {
		price := s.Auction.CurrentBid
		leader.Purse = RoundMoney(leader.Purse - price)
		leader.Squad = append(leader.Squad, SquadPlayer{Player: *item, Price: price})
		s.refreshElimination(leader)
		events = append(events, Event{
			Type:       EvtItemSold,
			TeamID:     leader.ID,
			TeamName:   leader.Name,
			Amount:     price,
			Player:     item,
			Eliminated: leader.Eliminated,
		})
	} else {
		events = append(events, Event{Type: EvtItemUnsold, Player: item})
	}
	s.Auction.Index++
	for _, t := range s.Teams {
		s.refreshElimination(t)
	}
	events = append(events, Event{Type: EvtTeamsUpdated})
	return events
}

// nextItem is the deferred inter-item advance. Firing after the phase moved
// on is a no-op; otherwise it opens the next round or ends the auction.
func (s *State) nextItem() ([]Event, error) {
	if s.Phase != PhaseAuction || s.Auction.Open {
		return nil, nil
	}
	if s.Auction.Index >= len(s.Auction.Pool) || s.activeBidders() == 0 {
		return s.startSelection(), nil
	}
	return s.openRound(), nil
}

func (s *State) openRound() []Event {
	item := s.currentItem()
	s.Auction.CurrentBid = item.BasePrice
	s.Auction.LeaderID = ""
	s.Auction.Skips = make(map[string]bool)
	s.Auction.Open = true
	s.Auction.SecondsLeft = s.Rules.BidSeconds
	return []Event{{Type: EvtNewItem, Player: item, Amount: item.BasePrice}}
}

func (s *State) startSelection() []Event {
	s.Phase = PhaseSelection
	events := []Event{{Type: EvtSelectionStarted}}
	// Every team may already be eliminated, in which case there is nothing
	// to select and the game ends immediately.
	events = append(events, s.maybeFinishSelection()...)
	return events
}

func (s *State) maybeFinishSelection() []Event {
	if s.Phase != PhaseSelection {
		return nil
	}
	for _, t := range s.Teams {
		// A team with nothing to field cannot submit and never blocks RESULT.
		if t.Eliminated || len(t.Squad) == 0 {
			continue
		}
		if !t.Submitted {
			return nil
		}
	}
	s.Phase = PhaseResult
	return []Event{{Type: EvtGameOver, Rankings: s.Rankings()}}
}

// Rankings lists the non-eliminated teams by descending score, ties broken
// by joining order.
func (s *State) Rankings() []Ranking {
	var ranked []Ranking
	for _, id := range s.Order {
		t := s.Teams[id]
		if t == nil || t.Eliminated {
			continue
		}
		ranked = append(ranked, Ranking{TeamID: t.ID, Name: t.Name, Score: t.Score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
