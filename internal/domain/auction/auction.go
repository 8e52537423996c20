package auction

import (
	"sort"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
)

// Bid is one user's pending bid on a player as seen by the aggregator.
type Bid struct {
	UserID   string
	Amount   int64
	PlacedAt time.Time
}

// Award is the winning bid for one player.
type Award struct {
	PlayerID string
	UserID   string
	Amount   int64
}

// Aggregate groups every pending bid by player. Accounts are scanned in
// ascending id order, so each list is ordered by user id.
func Aggregate(accounts []ledger.Account) map[string][]Bid {
	ordered := make([]ledger.Account, len(accounts))
	copy(ordered, accounts)
	ledger.SortByID(ordered)

	out := make(map[string][]Bid)
	for _, acc := range ordered {
		for playerID, bid := range acc.Bids {
			out[playerID] = append(out[playerID], Bid{
				UserID:   acc.ID,
				Amount:   bid.Amount,
				PlacedAt: bid.PlacedAt,
			})
		}
	}
	return out
}

// Resolve picks one winner per player: the highest amount, then the earliest
// placement, then the lowest user id. Awards are returned sorted by player id.
func Resolve(bids map[string][]Bid) []Award {
	awards := make([]Award, 0, len(bids))
	for playerID, list := range bids {
		if len(list) == 0 {
			continue
		}
		best := list[0]
		for _, candidate := range list[1:] {
			if beats(candidate, best) {
				best = candidate
			}
		}
		awards = append(awards, Award{PlayerID: playerID, UserID: best.UserID, Amount: best.Amount})
	}
	sort.Slice(awards, func(i, j int) bool { return awards[i].PlayerID < awards[j].PlayerID })
	return awards
}

func beats(a, b Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if !a.PlacedAt.Equal(b.PlacedAt) {
		// a bid without a timestamp never wins a tie against one that has it
		if a.PlacedAt.IsZero() || b.PlacedAt.IsZero() {
			return b.PlacedAt.IsZero()
		}
		return a.PlacedAt.Before(b.PlacedAt)
	}
	return a.UserID < b.UserID
}
