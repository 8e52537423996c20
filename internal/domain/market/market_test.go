package market

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/riskibarqy/kart-league/internal/domain/player"
)

func catalog(n int) []player.Player {
	out := make([]player.Player, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, player.Player{
			ID:       fmt.Sprintf("p%02d", i),
			Name:     fmt.Sprintf("Racer %d", i),
			BaseCost: int64(500 * (i + 1)),
		})
	}
	return out
}

func TestBuildPool_ExcludesOwnedPlayers(t *testing.T) {
	players := catalog(20)
	owners := map[string]string{"p19": "a", "p18": "b", "p03": "a"}
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 2; round++ {
		pool := BuildPool(players, owners, DefaultRules(), rng)
		if len(pool) != DefaultRules().PoolSize {
			t.Fatalf("round %d: expected %d players, got %d", round, DefaultRules().PoolSize, len(pool))
		}
		seen := make(map[string]struct{}, len(pool))
		for _, id := range pool {
			if _, owned := owners[id]; owned {
				t.Fatalf("round %d: owned player %s published", round, id)
			}
			if _, dup := seen[id]; dup {
				t.Fatalf("round %d: duplicate %s", round, id)
			}
			seen[id] = struct{}{}
		}
	}
}

func TestBuildPool_RespectsTierSlots(t *testing.T) {
	players := catalog(10) // costs 500..5000
	rules := Rules{
		PoolSize: 3,
		Tiers:    []Tier{{MinCost: 0, Slots: 1}, {MinCost: 4000, Slots: 2}},
	}

	pool := BuildPool(players, nil, rules, rand.New(rand.NewPCG(7, 7)))
	if len(pool) != 3 {
		t.Fatalf("expected 3 players, got %v", pool)
	}
	index := player.Index(players)
	expensive := 0
	for _, id := range pool {
		if index[id].BaseCost >= 4000 {
			expensive++
		}
	}
	if expensive != 2 {
		t.Fatalf("expected 2 picks from the top tier, got %d in %v", expensive, pool)
	}
}

func TestBuildPool_TopsUpByDescendingCost(t *testing.T) {
	players := catalog(6)
	rules := Rules{PoolSize: 2}

	pool := BuildPool(players, nil, rules, rand.New(rand.NewPCG(3, 4)))
	got := map[string]bool{}
	for _, id := range pool {
		got[id] = true
	}
	if !got["p05"] || !got["p04"] || len(pool) != 2 {
		t.Fatalf("expected the two most expensive players, got %v", pool)
	}
}

func TestBuildPool_NonPositiveSizePublishesAllEligible(t *testing.T) {
	players := catalog(8)
	owners := map[string]string{"p00": "a"}

	pool := BuildPool(players, owners, Rules{PoolSize: 0, Tiers: DefaultRules().Tiers}, nil)
	if len(pool) != 7 {
		t.Fatalf("expected all 7 eligible players, got %d", len(pool))
	}
}

func TestBuildPool_EmptyWhenEverythingOwned(t *testing.T) {
	players := catalog(2)
	owners := map[string]string{"p00": "a", "p01": "b"}
	if pool := BuildPool(players, owners, DefaultRules(), nil); len(pool) != 0 {
		t.Fatalf("expected empty pool, got %v", pool)
	}
}

func TestSnapshot_Contains(t *testing.T) {
	s := Snapshot{PlayerIDs: []string{"a", "b"}}
	if !s.Contains("a") || s.Contains("c") {
		t.Fatalf("unexpected Contains result")
	}
}

func TestRules_Validate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
	if err := (Rules{Tiers: []Tier{{MinCost: -1}}}).Validate(); err == nil {
		t.Fatalf("expected negative min cost to fail")
	}
}
