package usecase

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	"github.com/riskibarqy/kart-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type staticIDGenerator struct {
	prefix string
	n      int
}

func (g *staticIDGenerator) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n), nil
}

// testCatalog holds x, y, z and w for bidding plus r01..r10 to fill rosters.
func testCatalog() []player.Player {
	out := []player.Player{
		{ID: "x", Name: "Velo", Team: "Rainbow Road", BaseCost: 2000},
		{ID: "y", Name: "Drift", Team: "Blue Shell", BaseCost: 1500},
		{ID: "z", Name: "Nitro", Team: "Star Cup", BaseCost: 800},
		{ID: "w", Name: "Spiny", Team: "Special Cup", BaseCost: 300},
	}
	for i := 1; i <= 10; i++ {
		out = append(out, player.Player{
			ID:       fmt.Sprintf("r%02d", i),
			Name:     fmt.Sprintf("Reserve %d", i),
			Team:     "Lightning Cup",
			BaseCost: 500,
		})
	}
	return out
}

type testLeague struct {
	store   *memory.LedgerStore
	players *memory.PlayerRepository
	rules   ledger.Rules
	now     time.Time
}

func newTestLeague(accounts ...ledger.Account) *testLeague {
	return &testLeague{
		store:   memory.NewLedgerStore(accounts...),
		players: memory.NewPlayerRepository(testCatalog()),
		rules:   ledger.DefaultRules(),
		now:     testNow,
	}
}

func (l *testLeague) clock() time.Time { return l.now }

func (l *testLeague) bids() *BidService {
	s := NewBidService(l.store, l.players, l.rules, logging.NewNop())
	s.now = l.clock
	return s
}

func (l *testLeague) settlements() *SettlementService {
	s := NewSettlementService(l.store, l.rules, &staticIDGenerator{prefix: "run"}, logging.NewNop())
	s.now = l.clock
	return s
}

func (l *testLeague) markets(rules market.Rules) *MarketService {
	s := NewMarketService(l.store, l.players, rules, &staticIDGenerator{prefix: "mkt"}, logging.NewNop())
	s.now = l.clock
	return s
}

func (l *testLeague) rosters() *RosterService {
	s := NewRosterService(l.store, l.players, l.rules, logging.NewNop())
	s.now = l.clock
	return s
}

func (l *testLeague) ledgers() *LedgerService {
	s := NewLedgerService(l.store, l.players, l.rules, &staticIDGenerator{prefix: "usr"}, logging.NewNop())
	s.now = l.clock
	return s
}

func (l *testLeague) publish(t *testing.T, playerIDs ...string) {
	t.Helper()
	err := l.store.Within(context.Background(), func(ctx context.Context, tx ledger.Tx) error {
		return tx.SaveMarket(ctx, market.Snapshot{ID: "mkt-seed", PlayerIDs: playerIDs, PublishedAt: l.now})
	})
	if err != nil {
		t.Fatalf("publish market: %v", err)
	}
}

func (l *testLeague) account(t *testing.T, id string) ledger.Account {
	t.Helper()
	acc, ok, err := l.store.GetAccount(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("get account %s: ok=%v err=%v", id, ok, err)
	}
	return acc
}

func newAccount(id string, currency int64) ledger.Account {
	return ledger.NewAccount(id, "User "+id, currency, testNow)
}

// owning grants players bought at testNow for their listed price.
func owning(acc ledger.Account, prices map[string]int64) ledger.Account {
	for _, id := range slices.Sorted(maps.Keys(prices)) {
		acc.AddPlayer(ledger.OwnedPlayer{PlayerID: id, PurchasedAt: testNow, PurchasePrice: prices[id]})
	}
	return acc
}

func fullRoster(acc ledger.Account) ledger.Account {
	prices := make(map[string]int64, 10)
	for i := 1; i <= 10; i++ {
		prices[fmt.Sprintf("r%02d", i)] = 500
	}
	return owning(acc, prices)
}

func withBid(acc ledger.Account, playerID string, amount int64) ledger.Account {
	acc.Bids[playerID] = ledger.Bid{Amount: amount, PlacedAt: testNow.Add(-time.Hour)}
	return acc
}
