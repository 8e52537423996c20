package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kart-league/internal/domain/auction"
	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

func TestSettlementService_Settle_HighestBidderWins(t *testing.T) {
	league := newTestLeague(newAccount("a", 5000), newAccount("b", 5000))
	league.publish(t, "x")
	ctx := context.Background()

	bids := league.bids()
	if _, err := bids.PlaceBid(ctx, PlaceBidInput{UserID: "a", PlayerID: "x", Amount: 3000}); err != nil {
		t.Fatalf("a bid: %v", err)
	}
	if _, err := bids.PlaceBid(ctx, PlaceBidInput{UserID: "b", PlayerID: "x", Amount: 4000}); err != nil {
		t.Fatalf("b bid: %v", err)
	}

	league.now = testNow.Add(12 * time.Hour)
	outcome, err := league.settlements().Settle(ctx)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if outcome.RunID != "run-1" {
		t.Fatalf("unexpected run id: %s", outcome.RunID)
	}
	if len(outcome.Applied) != 1 || outcome.Applied[0] != (auction.Award{PlayerID: "x", UserID: "b", Amount: 4000}) {
		t.Fatalf("unexpected applied awards: %+v", outcome.Applied)
	}
	if outcome.ClearedBids != 2 {
		t.Fatalf("cleared=%d want=2", outcome.ClearedBids)
	}

	a := league.account(t, "a")
	b := league.account(t, "b")
	if a.Currency != 5000 || len(a.Players) != 0 || len(a.Bids) != 0 {
		t.Fatalf("unexpected loser state: %+v", a)
	}
	if b.Currency != 1000 || len(b.Bids) != 0 {
		t.Fatalf("unexpected winner state: currency=%d bids=%v", b.Currency, b.Bids)
	}
	entry, ok := b.Owned("x")
	if !ok || entry.PurchasePrice != 4000 || entry.ClauseInvestment != 0 || !entry.PurchasedAt.Equal(league.now) {
		t.Fatalf("unexpected owned entry: %+v", entry)
	}
	if len(b.Roster.Lineup) != 0 || len(b.Roster.Bench) != 1 || b.Roster.Bench[0] != "x" {
		t.Fatalf("winner should be benched: %+v", b.Roster)
	}

	runs, err := league.settlements().ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" || runs[0].ClearedBids != 2 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if applied, skipped := runs[0].Counts(); applied != 1 || skipped != 0 {
		t.Fatalf("run counts applied=%d skipped=%d", applied, skipped)
	}
}

func TestSettlementService_Settle_SkipsWinnerAtRosterCap(t *testing.T) {
	league := newTestLeague(
		withBid(fullRoster(newAccount("full", 5000)), "z", 900),
		withBid(withBid(newAccount("a", 5000), "z", 100), "y", 200),
	)
	ctx := context.Background()

	outcome, err := league.settlements().Settle(ctx)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(outcome.Skipped) != 1 || outcome.Skipped[0].PlayerID != "z" || outcome.Skipped[0].Reason != ledger.ReasonRosterFull {
		t.Fatalf("unexpected skipped: %+v", outcome.Skipped)
	}
	if !errors.Is(outcome.Skipped[0].Err, auction.ErrAwardSkipped) {
		t.Fatalf("skipped award should wrap ErrAwardSkipped: %v", outcome.Skipped[0].Err)
	}

	full := league.account(t, "full")
	a := league.account(t, "a")
	if full.Owns("z") || a.Owns("z") {
		t.Fatalf("z should stay unowned")
	}
	if full.Currency != 5000 || len(full.Bids) != 0 {
		t.Fatalf("skipped winner changed: currency=%d bids=%v", full.Currency, full.Bids)
	}
	if !a.Owns("y") || a.Currency != 4800 || len(a.Bids) != 0 {
		t.Fatalf("unexpected state for a: %+v", a)
	}

	runs, _ := league.store.ListSettlementRuns(ctx, 1)
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	var skippedRecord ledger.AwardRecord
	for _, rec := range runs[0].Awards {
		if rec.Status == ledger.AwardSkipped {
			skippedRecord = rec
		}
	}
	if skippedRecord.PlayerID != "z" || skippedRecord.Reason != ledger.ReasonRosterFull {
		t.Fatalf("skipped award not recorded: %+v", runs[0].Awards)
	}
}

func TestSettlementService_CommitSettlement(t *testing.T) {
	league := newTestLeague(newAccount("a", 5000), withBid(newAccount("b", 5000), "y", 10))
	ctx := context.Background()
	service := league.settlements()

	_, err := service.CommitSettlement(ctx, []auction.Award{
		{PlayerID: "x", UserID: "a", Amount: 100},
		{PlayerID: "x", UserID: "b", Amount: 200},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for duplicate player, got %v", err)
	}
	if len(league.account(t, "b").Bids) != 1 {
		t.Fatalf("rejected commit must not clear bids")
	}

	outcome, err := service.CommitSettlement(ctx, []auction.Award{{PlayerID: "x", UserID: "a", Amount: 1200}})
	if err != nil {
		t.Fatalf("commit settlement: %v", err)
	}
	if len(outcome.Applied) != 1 {
		t.Fatalf("expected applied award, got %+v", outcome)
	}
	if got := league.account(t, "a"); got.Currency != 3800 || !got.Owns("x") {
		t.Fatalf("unexpected winner: %+v", got)
	}
	if got := league.account(t, "b"); len(got.Bids) != 0 {
		t.Fatalf("commit should clear every bid, got %v", got.Bids)
	}
}

func TestSettlementService_StorageFailureAppliesNothing(t *testing.T) {
	base := memory.NewLedgerStore(
		withBid(newAccount("a", 5000), "x", 3000),
		withBid(newAccount("b", 5000), "x", 4000),
	)
	store := &failingStore{LedgerStore: base, failRun: true}
	service := NewSettlementService(store, ledger.DefaultRules(), &staticIDGenerator{prefix: "run"}, logging.NewNop())

	_, err := service.Settle(context.Background())
	if !crerr.Is(err, ledger.ErrStorageTransaction) {
		t.Fatalf("expected storage transaction failure, got %v", err)
	}

	accounts, _ := base.ListAccounts(context.Background())
	for _, acc := range accounts {
		if acc.Currency != 5000 || len(acc.Players) != 0 || len(acc.Bids) != 1 {
			t.Fatalf("failed settlement leaked into %s: %+v", acc.ID, acc)
		}
	}
	if runs, _ := base.ListSettlementRuns(context.Background(), 10); len(runs) != 0 {
		t.Fatalf("failed settlement recorded a run: %+v", runs)
	}
}

func TestSettlementService_SettleIsIdempotentOnceBidsClear(t *testing.T) {
	league := newTestLeague(withBid(newAccount("a", 5000), "x", 3000))
	service := league.settlements()
	ctx := context.Background()

	if _, err := service.Settle(ctx); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	before, _ := league.store.ListAccounts(ctx)
	outcome, err := service.Settle(ctx)
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if len(outcome.Applied) != 0 || outcome.ClearedBids != 0 {
		t.Fatalf("second settle should be empty: %+v", outcome)
	}
	after, _ := league.store.ListAccounts(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("empty settlement changed accounts")
	}
}

// failingStore fails the settlement run write inside an otherwise healthy unit of work.
type failingStore struct {
	*memory.LedgerStore
	failRun bool
}

func (s *failingStore) Within(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.LedgerStore.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return fn(ctx, failingTx{Tx: tx, failRun: s.failRun})
	})
}

type failingTx struct {
	ledger.Tx
	failRun bool
}

func (t failingTx) SaveSettlementRun(ctx context.Context, run ledger.SettlementRun) error {
	if t.failRun {
		return crerr.Mark(crerr.New("insert settlement run: connection reset"), ledger.ErrStorageTransaction)
	}
	return t.Tx.SaveSettlementRun(ctx, run)
}
