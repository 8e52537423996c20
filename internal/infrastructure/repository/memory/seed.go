package memory

import (
	"github.com/riskibarqy/kart-league/internal/domain/player"
)

type seedRacer struct {
	name     string
	team     string
	mmr      int
	peakMMR  int
	rank     string
	baseCost int64
}

var seedRacers = []seedRacer{
	{name: "Velo", team: "Rainbow Road", mmr: 14850, peakMMR: 15320, rank: "Grandmaster", baseCost: 5200},
	{name: "Kinetic", team: "Rainbow Road", mmr: 14210, peakMMR: 14990, rank: "Grandmaster", baseCost: 4900},
	{name: "Shellshock", team: "Blue Shell", mmr: 13980, peakMMR: 14400, rank: "Master", baseCost: 4600},
	{name: "Drift", team: "Blue Shell", mmr: 13520, peakMMR: 13890, rank: "Master", baseCost: 4300},
	{name: "Mushroom Max", team: "Star Cup", mmr: 13100, peakMMR: 13750, rank: "Master", baseCost: 4100},
	{name: "Nitro", team: "Star Cup", mmr: 12640, peakMMR: 13020, rank: "Diamond", baseCost: 3700},
	{name: "Bananarama", team: "Special Cup", mmr: 12310, peakMMR: 12800, rank: "Diamond", baseCost: 3500},
	{name: "Lakitu", team: "Special Cup", mmr: 11890, peakMMR: 12410, rank: "Diamond", baseCost: 3200},
	{name: "Mini Turbo", team: "Lightning Cup", mmr: 11420, peakMMR: 11900, rank: "Diamond", baseCost: 3000},
	{name: "Chomp", team: "Lightning Cup", mmr: 10980, peakMMR: 11500, rank: "Platinum", baseCost: 2800},
	{name: "Skid", team: "Rainbow Road", mmr: 10550, peakMMR: 11020, rank: "Platinum", baseCost: 2600},
	{name: "Boo Rush", team: "Blue Shell", mmr: 10120, peakMMR: 10760, rank: "Platinum", baseCost: 2400},
	{name: "Thwomp", team: "Star Cup", mmr: 9740, peakMMR: 10200, rank: "Platinum", baseCost: 2200},
	{name: "Glider", team: "Special Cup", mmr: 9310, peakMMR: 9880, rank: "Gold", baseCost: 2000},
	{name: "Koopa Kid", team: "Lightning Cup", mmr: 8860, peakMMR: 9300, rank: "Gold", baseCost: 1800},
	{name: "Piranha", team: "Rainbow Road", mmr: 8420, peakMMR: 8990, rank: "Gold", baseCost: 1600},
	{name: "Red Shell", team: "Blue Shell", mmr: 7980, peakMMR: 8500, rank: "Gold", baseCost: 1400},
	{name: "Wario Wheelie", team: "Star Cup", mmr: 7530, peakMMR: 8010, rank: "Silver", baseCost: 1200},
	{name: "Spiny", team: "Special Cup", mmr: 7090, peakMMR: 7600, rank: "Silver", baseCost: 1100},
	{name: "Coin Runner", team: "Lightning Cup", mmr: 6640, peakMMR: 7150, rank: "Silver", baseCost: 1000},
	{name: "Velo", team: "Star Cup", mmr: 6200, peakMMR: 6700, rank: "Bronze", baseCost: 900},
	{name: "Bullet Bill", team: "Rainbow Road", mmr: 5760, peakMMR: 6300, rank: "Bronze", baseCost: 800},
	{name: "Fire Flower", team: "Blue Shell", mmr: 5310, peakMMR: 5800, rank: "Bronze", baseCost: 700},
	{name: "Golden Kart", team: "Special Cup", mmr: 4880, peakMMR: 5350, rank: "Iron", baseCost: 600},
}

// SeedPlayers returns the default catalog. Two racers share the name "Velo";
// their derived ids differ by peak rating and team.
func SeedPlayers() []player.Player {
	out := make([]player.Player, 0, len(seedRacers))
	for _, r := range seedRacers {
		out = append(out, player.Player{
			ID:       player.DeriveID(r.name, r.peakMMR, r.team),
			Name:     r.name,
			Team:     r.team,
			BaseCost: r.baseCost,
			MMR:      r.mmr,
			PeakMMR:  r.peakMMR,
			Rank:     r.rank,
		})
	}
	return out
}
