package market

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/player"
)

// Snapshot is the set of players open for bidding until the next rotation.
type Snapshot struct {
	ID          string
	PlayerIDs   []string
	PublishedAt time.Time
}

func (s Snapshot) Contains(playerID string) bool {
	return slices.Contains(s.PlayerIDs, playerID)
}

// Tier reserves up to Slots pool entries for players costing at least MinCost.
type Tier struct {
	MinCost int64 `yaml:"min_cost"`
	Slots   int   `yaml:"slots"`
}

type Rules struct {
	// PoolSize caps the published pool. Zero or less publishes every eligible player.
	PoolSize int    `yaml:"pool_size"`
	Tiers    []Tier `yaml:"tiers"`
}

func DefaultRules() Rules {
	return Rules{
		PoolSize: 12,
		Tiers: []Tier{
			{MinCost: 4000, Slots: 2},
			{MinCost: 2500, Slots: 4},
			{MinCost: 0, Slots: 4},
		},
	}
}

func (r Rules) Validate() error {
	for i, tier := range r.Tiers {
		if tier.MinCost < 0 {
			return fmt.Errorf("market tier %d min cost must be >= 0", i)
		}
		if tier.Slots < 0 {
			return fmt.Errorf("market tier %d slots must be >= 0", i)
		}
	}
	return nil
}

// Eligible returns catalog players nobody owns, most expensive first.
func Eligible(catalog []player.Player, owners map[string]string) []player.Player {
	out := make([]player.Player, 0, len(catalog))
	for _, p := range catalog {
		if _, owned := owners[p.ID]; owned {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BaseCost != out[j].BaseCost {
			return out[i].BaseCost > out[j].BaseCost
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BuildPool draws the next market from unowned players. Tiers are filled from
// the most expensive down with random picks, the pool is topped up by
// descending cost until PoolSize, and the result is shuffled.
func BuildPool(catalog []player.Player, owners map[string]string, rules Rules, rng *rand.Rand) []string {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	eligible := Eligible(catalog, owners)
	target := rules.PoolSize
	if target <= 0 || target > len(eligible) {
		target = len(eligible)
	}

	tiers := slices.Clone(rules.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinCost > tiers[j].MinCost })

	picked := make(map[string]struct{}, target)
	pool := make([]string, 0, target)

	for i, tier := range tiers {
		ceiling := int64(-1)
		if i > 0 {
			ceiling = tiers[i-1].MinCost
		}
		candidates := make([]string, 0)
		for _, p := range eligible {
			if p.BaseCost < tier.MinCost || (ceiling >= 0 && p.BaseCost >= ceiling) {
				continue
			}
			candidates = append(candidates, p.ID)
		}
		rng.Shuffle(len(candidates), func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })

		for _, id := range candidates[:min(tier.Slots, len(candidates))] {
			if len(pool) == target {
				break
			}
			picked[id] = struct{}{}
			pool = append(pool, id)
		}
	}

	for _, p := range eligible {
		if len(pool) == target {
			break
		}
		if _, ok := picked[p.ID]; ok {
			continue
		}
		picked[p.ID] = struct{}{}
		pool = append(pool, p.ID)
	}

	rng.Shuffle(len(pool), func(a, b int) { pool[a], pool[b] = pool[b], pool[a] })
	return pool
}
