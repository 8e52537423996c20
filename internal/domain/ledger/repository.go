package ledger

import (
	"context"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/market"
)

// Tx is a consistent, locked view of the whole ledger. Writes made through it
// become visible together when the surrounding unit of work commits, or not at all.
type Tx interface {
	// ListAccounts returns every account ordered by id.
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, accountID string) (Account, bool, error)
	// SaveAccounts upserts full account state, including owned players, roster, bids and scores.
	SaveAccounts(ctx context.Context, accounts ...Account) error
	GetMarket(ctx context.Context) (market.Snapshot, bool, error)
	SaveMarket(ctx context.Context, snapshot market.Snapshot) error
	SaveSettlementRun(ctx context.Context, run SettlementRun) error
}

// UnitOfWork runs fn inside one atomic ledger transaction. Implementations may
// call fn more than once when the store asks for a retry, so fn must not keep
// side effects outside tx.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Reader serves non-transactional reads for dashboards and listings.
type Reader interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, accountID string) (Account, bool, error)
	GetMarket(ctx context.Context) (market.Snapshot, bool, error)
	ListSettlementRuns(ctx context.Context, limit int) ([]SettlementRun, error)
}

type Store interface {
	UnitOfWork
	Reader
}

type AwardStatus string

const (
	AwardApplied AwardStatus = "applied"
	AwardSkipped AwardStatus = "skipped"
)

// AwardRecord is one resolved auction as persisted with its settlement run.
type AwardRecord struct {
	PlayerID string
	UserID   string
	Amount   int64
	Status   AwardStatus
	Reason   Reason
}

// SettlementRun is the audit record of one committed settlement.
type SettlementRun struct {
	ID          string
	SettledAt   time.Time
	Awards      []AwardRecord
	ClearedBids int
}

func (r SettlementRun) Counts() (applied, skipped int) {
	for _, a := range r.Awards {
		if a.Status == AwardApplied {
			applied++
		} else {
			skipped++
		}
	}
	return applied, skipped
}
