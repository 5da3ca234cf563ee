package catalog

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"sigs.k8s.io/yaml"
)

type Role string

const (
	RoleBatsman      Role = "BAT"
	RoleBowler       Role = "BOWL"
	RoleAllRounder   Role = "AR"
	RoleWicketKeeper Role = "WK"
)

// Player is one auctionable catalog entry. Immutable after Load; the sale
// price lives on the buyer's squad entry, never here.
type Player struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      Role    `json:"role"`
	Country   string  `json:"country,omitempty"`
	Overseas  bool    `json:"overseas"`
	Batting   int     `json:"batting"`
	Bowling   int     `json:"bowling"`
	Fielding  int     `json:"fielding"`
	Rating    float64 `json:"rating"`
	BasePrice float64 `json:"base_price"`
}

// Per-role weights over (batting, bowling, fielding).
var roleWeights = map[Role][3]float64{
	RoleBatsman:      {0.6, 0.1, 0.3},
	RoleBowler:       {0.1, 0.6, 0.3},
	RoleAllRounder:   {0.4, 0.4, 0.2},
	RoleWicketKeeper: {0.5, 0.1, 0.4},
}

type Catalog struct {
	players []Player
}

// Load reads and validates a catalog file. sigs.k8s.io/yaml accepts both
// YAML and plain JSON, so either works as CATALOG_PATH.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var players []Player
	if err := yaml.Unmarshal(data, &players); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("catalog %s is empty", path)
	}
	seen := make(map[string]bool, len(players))
	for i := range players {
		p := &players[i]
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%q): %w", i, p.Name, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		p.Rating = ComputeRating(p.Role, p.Batting, p.Bowling, p.Fielding)
	}
	return &Catalog{players: players}, nil
}

func validate(p *Player) error {
	if p.ID == "" {
		return fmt.Errorf("missing id")
	}
	if p.Name == "" {
		return fmt.Errorf("missing name")
	}
	if _, ok := roleWeights[p.Role]; !ok {
		return fmt.Errorf("unknown role %q", p.Role)
	}
	for _, s := range []int{p.Batting, p.Bowling, p.Fielding} {
		if s < 0 || s > 100 {
			return fmt.Errorf("skill score %d out of range [0,100]", s)
		}
	}
	if p.BasePrice <= 0 {
		return fmt.Errorf("base price must be positive, got %v", p.BasePrice)
	}
	return nil
}

// ComputeRating maps the three skill scores onto a single 0-100 rating using
// the player's role weights.
func ComputeRating(role Role, batting, bowling, fielding int) float64 {
	w := roleWeights[role]
	r := w[0]*float64(batting) + w[1]*float64(bowling) + w[2]*float64(fielding)
	return math.Round(r*100) / 100
}

// Fallback returns a single-placeholder catalog used when the real catalog
// cannot be loaded, so room creation still succeeds.
func Fallback() *Catalog {
	p := Player{
		ID:        "placeholder-1",
		Name:      "Placeholder Player",
		Role:      RoleAllRounder,
		Batting:   50,
		Bowling:   50,
		Fielding:  50,
		BasePrice: 0.2,
	}
	p.Rating = ComputeRating(p.Role, p.Batting, p.Bowling, p.Fielding)
	return &Catalog{players: []Player{p}}
}

func (c *Catalog) Len() int { return len(c.players) }

// ShuffledPool returns a freshly shuffled copy of the catalog for one room.
func (c *Catalog) ShuffledPool() []Player {
	pool := make([]Player, len(c.players))
	copy(pool, c.players)
	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}
