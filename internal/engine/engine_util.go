package engine

import (
	"github.com/auction-arena/cricket-auction-backend/internal/catalog"
	"github.com/auction-arena/cricket-auction-backend/internal/scoring"
)

func (s *State) currentItem() *catalog.Player {
	return &s.Auction.Pool[s.Auction.Index]
}

// CurrentItem returns the player under the hammer, or nil when the pool is
// exhausted or the auction has not started.
func (s *State) CurrentItem() *catalog.Player {
	if s.Phase != PhaseAuction || s.Auction.Index >= len(s.Auction.Pool) {
		return nil
	}
	return s.currentItem()
}

func (t *Team) overseasCount() int {
	n := 0
	for _, sp := range t.Squad {
		if sp.Player.Overseas {
			n++
		}
	}
	return n
}

// isActiveBidder reports whether a team can still buy: not eliminated, not
// voluntarily finished, and with squad space left.
func (t *Team) isActiveBidder() bool {
	return !t.Eliminated && !t.FinishedBidding && len(t.Squad) < MaxSquadSize
}

func (s *State) activeBidders() int {
	n := 0
	for _, t := range s.Teams {
		if t.isActiveBidder() {
			n++
		}
	}
	return n
}

// requiredSkips is the quorum to close a round early: every active bidder
// except the leader, who is presumed willing to buy.
func (s *State) requiredSkips() int {
	n := 0
	for id, t := range s.Teams {
		if t.isActiveBidder() && id != s.Auction.LeaderID {
			n++
		}
	}
	return n
}

func (s *State) skipQuorumReached() bool {
	return len(s.Auction.Skips) >= s.requiredSkips()
}

// refreshElimination permanently eliminates a team whose purse can no longer
// cover a minimum bid before its squad reached playable size. Never undone.
func (s *State) refreshElimination(t *Team) {
	if t.Eliminated {
		return
	}
	if t.Purse < MinIncrement-moneyEps && len(t.Squad) < MinPlayableSquad {
		t.Eliminated = true
		t.FinishedBidding = false
		delete(s.Auction.Skips, t.ID)
	}
}

// Clone deep-copies everything the actor mutates, so snapshots and test
// views can be read off-goroutine. The pool is read-only after room creation
// and is shared.
func (s *State) Clone() *State {
	c := *s
	c.Teams = make(map[string]*Team, len(s.Teams))
	for id, t := range s.Teams {
		tc := *t
		tc.Squad = append([]SquadPlayer(nil), t.Squad...)
		if t.Lineup != nil {
			lc := *t.Lineup
			lc.PlayerIDs = append([]string(nil), t.Lineup.PlayerIDs...)
			tc.Lineup = &lc
		}
		c.Teams[id] = &tc
	}
	c.Order = append([]string(nil), s.Order...)
	c.Auction.Skips = make(map[string]bool, len(s.Auction.Skips))
	for id := range s.Auction.Skips {
		c.Auction.Skips[id] = true
	}
	return &c
}

// buildPicks validates a submitted lineup against the team's squad and
// returns the scoring inputs.
func (t *Team) buildPicks(playerIDs []string, captainID, viceCaptainID string) ([]scoring.Pick, error) {
	want := LineupSize
	if len(t.Squad) < want {
		want = len(t.Squad)
	}
	if len(playerIDs) != want {
		return nil, ErrInvalidLineup
	}
	if captainID == viceCaptainID {
		return nil, ErrInvalidLineup
	}

	byID := make(map[string]SquadPlayer, len(t.Squad))
	for _, sp := range t.Squad {
		byID[sp.Player.ID] = sp
	}

	picks := make([]scoring.Pick, 0, len(playerIDs))
	seen := make(map[string]bool, len(playerIDs))
	overseas := 0
	var hasCaptain, hasVice bool
	for _, id := range playerIDs {
		sp, ok := byID[id]
		if !ok || seen[id] {
			return nil, ErrInvalidLineup
		}
		seen[id] = true
		if sp.Player.Overseas {
			overseas++
		}
		switch id {
		case captainID:
			hasCaptain = true
		case viceCaptainID:
			hasVice = true
		}
		picks = append(picks, scoring.Pick{
			ID:        id,
			Rating:    sp.Player.Rating,
			BasePrice: sp.Player.BasePrice,
			SalePrice: sp.Price,
			Overseas:  sp.Player.Overseas,
		})
	}
	if !hasCaptain || !hasVice {
		return nil, ErrInvalidLineup
	}
	if overseas > LineupOverseasMax {
		return nil, ErrInvalidLineup
	}
	return picks, nil
}
