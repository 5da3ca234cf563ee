package types

import (
	"github.com/auction-arena/cricket-auction-backend/internal/catalog"
	"github.com/auction-arena/cricket-auction-backend/internal/engine"
)

// Client -> Server command envelope. Type is one of: createRoom, joinRoom,
// rejoinGame, leaveRoom, startAuction, placeBid, skip, finishBiddingForMe,
// submitLineup. The session identity rides on the connection (uid query
// param), not in the message body.
type ClientMessage struct {
	Type          string   `json:"type"`
	RoomID        string   `json:"room_id,omitempty"`
	TeamName      string   `json:"team_name,omitempty"`
	Purse         float64  `json:"purse,omitempty"`
	Amount        float64  `json:"amount,omitempty"`
	PlayerIDs     []string `json:"player_ids,omitempty"`
	CaptainID     string   `json:"captain_id,omitempty"`
	ViceCaptainID string   `json:"vice_captain_id,omitempty"`
}

// Server -> Client event envelope. Type is one of: roomCreated, joinedRoom,
// teamsUpdated, auctionStarted, newItem, bidUpdated, timerTick, itemSold,
// itemUnsold, selectionPhaseStarted, gameOverResults, errorMessage,
// roomState (full replay on join/rejoin).
type ServerMessage struct {
	Type       string           `json:"type"`
	RoomID     string           `json:"room_id,omitempty"`
	TeamID     string           `json:"team_id,omitempty"`
	TeamName   string           `json:"team_name,omitempty"`
	Amount     float64          `json:"amount,omitempty"`
	Seconds    int              `json:"seconds,omitempty"`
	Eliminated bool             `json:"eliminated,omitempty"`
	Player     *catalog.Player  `json:"player,omitempty"`
	Teams      []TeamView       `json:"teams,omitempty"`
	Rankings   []engine.Ranking `json:"rankings,omitempty"`
	State      *RoomView        `json:"state,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// TeamView is the broadcast-safe projection of a team.
type TeamView struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Purse           float64              `json:"purse"`
	Squad           []engine.SquadPlayer `json:"squad"`
	Eliminated      bool                 `json:"eliminated"`
	FinishedBidding bool                 `json:"finished_bidding"`
	Submitted       bool                 `json:"submitted"`
	Score           float64              `json:"score"`
	IsHost          bool                 `json:"is_host"`
}

// RoomView is the full state replay sent to a joining or rejoining client;
// it must match what connected teammates have already seen.
type RoomView struct {
	RoomID        string           `json:"room_id"`
	Phase         engine.Phase     `json:"phase"`
	HostID        string           `json:"host_id"`
	StartingPurse float64          `json:"starting_purse"`
	Teams         []TeamView       `json:"teams"`
	CurrentPlayer *catalog.Player  `json:"current_player,omitempty"`
	CurrentBid    float64          `json:"current_bid,omitempty"`
	LeaderID      string           `json:"leader_id,omitempty"`
	SecondsLeft   int              `json:"seconds_left,omitempty"`
	PoolIndex     int              `json:"pool_index"`
	PoolSize      int              `json:"pool_size"`
	Rankings      []engine.Ranking `json:"rankings,omitempty"`
}
