package scoring

import "math"

// Value-factor thresholds for the effective rating. The factor is the ratio
// of sale price to base price: a bargain boosts the rating, a heavy overpay
// penalizes it, anything in between leaves it unchanged.
const (
	bargainFactor = 1.5
	overpayFactor = 3.0

	bargainBoost   = 1.10
	overpayPenalty = 0.90

	captainMultiplier     = 2.0
	viceCaptainMultiplier = 1.5
	captainBonusShare     = 0.10
	viceCaptainBonusShare = 0.05
)

// Pick is one selected lineup member with its purchase history.
type Pick struct {
	ID        string
	Rating    float64
	BasePrice float64
	SalePrice float64
	Overseas  bool
}

// Effective adjusts a base rating by how good a deal the purchase was.
func Effective(rating, basePrice, salePrice float64) float64 {
	if basePrice <= 0 {
		return rating
	}
	factor := salePrice / basePrice
	switch {
	case factor <= bargainFactor:
		return rating * bargainBoost
	case factor <= overpayFactor:
		return rating
	default:
		return rating * overpayPenalty
	}
}

// Total computes a lineup's score: the captain scores double, the vice
// captain 1.5x, and every other pick earns its effective rating plus a
// leadership bonus derived from the captain pair. The caller has already
// validated that captainID and viceCaptainID are distinct members of picks.
func Total(picks []Pick, captainID, viceCaptainID string) float64 {
	var capEff, viceEff float64
	for _, p := range picks {
		switch p.ID {
		case captainID:
			capEff = Effective(p.Rating, p.BasePrice, p.SalePrice)
		case viceCaptainID:
			viceEff = Effective(p.Rating, p.BasePrice, p.SalePrice)
		}
	}

	bonus := captainBonusShare*capEff + viceCaptainBonusShare*viceEff
	total := captainMultiplier*capEff + viceCaptainMultiplier*viceEff
	for _, p := range picks {
		if p.ID == captainID || p.ID == viceCaptainID {
			continue
		}
		total += Effective(p.Rating, p.BasePrice, p.SalePrice) + bonus
	}
	return Round2(total)
}

// Round2 rounds to two decimal places, the resolution used for purses and
// scores throughout.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
