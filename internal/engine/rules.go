package engine

import "math"

const (
	MaxSquadSize     = 25
	MaxOverseasSquad = 8
	MinPlayableSquad = 4

	LineupSize        = 11
	LineupOverseasMax = 4

	MinIncrement = 0.25

	DefaultPurse = 100.0
	MinPurse     = 50.0
	MaxPurse     = 120.0
)

// Rules carries the per-room tunables; tests shrink the timers.
type Rules struct {
	BidSeconds   int `json:"bid_seconds"`
	PauseSeconds int `json:"pause_seconds"`
}

func DefaultRules() Rules {
	return Rules{BidSeconds: 10, PauseSeconds: 3}
}

// ClampPurse bounds a requested starting purse, falling back to the default
// when the request is zero or negative.
func ClampPurse(requested float64) float64 {
	if requested <= 0 {
		return DefaultPurse
	}
	return math.Min(MaxPurse, math.Max(MinPurse, requested))
}

// RoundMoney keeps all purse arithmetic at two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// moneyEps absorbs float drift in comparisons on two-decimal amounts.
const moneyEps = 1e-9
