package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
	"github.com/riskibarqy/kart-league/internal/platform/resilience"
)

const (
	defaultTxAttempts     = 8
	defaultInitialBackoff = 75 * time.Millisecond
	defaultMaxBackoff     = 1200 * time.Millisecond
)

type LedgerStoreOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Breaker        *resilience.CircuitBreaker
	Logger         *logging.Logger
}

// LedgerStore runs ledger units of work as SERIALIZABLE transactions and
// retries them from scratch when Postgres reports a serialization conflict.
type LedgerStore struct {
	db             *sqlx.DB
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	breaker        *resilience.CircuitBreaker
	logger         *logging.Logger
}

func NewLedgerStore(db *sqlx.DB, opts LedgerStoreOptions) *LedgerStore {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = defaultTxAttempts
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = max(defaultMaxBackoff, opts.InitialBackoff)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	return &LedgerStore{
		db:             db,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		breaker:        opts.Breaker,
		logger:         opts.Logger.Named("ledger_store"),
	}
}

func (s *LedgerStore) Within(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	err := s.breaker.Execute(func() error {
		return s.withRetry(ctx, fn)
	}, isStorageFailure)
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return crerr.Mark(crerr.Wrap(err, "ledger store unavailable"), ledger.ErrStorageTransaction)
	}
	return err
}

func (s *LedgerStore) withRetry(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	delay := s.initialBackoff
	for attempt := 1; ; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt >= s.maxAttempts {
			return crerr.Mark(
				crerr.Wrapf(err, "ledger transaction conflicted %d times", attempt),
				ledger.ErrStorageTransaction,
			)
		}

		s.logger.WarnContext(ctx, "ledger transaction conflict, retrying",
			"attempt", attempt,
			"delay", delay.String(),
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
		delay = min(delay*2, s.maxBackoff)
	}
}

func (s *LedgerStore) runOnce(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return storageFailure(err, "begin ledger tx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &sqlTx{queries: ledgerQueries{q: tx, lock: true}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageFailure(err, "commit ledger tx")
	}
	return nil
}

func (s *LedgerStore) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.reader().loadAccounts(ctx, nil)
}

func (s *LedgerStore) GetAccount(ctx context.Context, accountID string) (ledger.Account, bool, error) {
	return s.reader().getAccount(ctx, accountID)
}

func (s *LedgerStore) GetMarket(ctx context.Context) (market.Snapshot, bool, error) {
	return s.reader().getMarket(ctx)
}

func (s *LedgerStore) ListSettlementRuns(ctx context.Context, limit int) ([]ledger.SettlementRun, error) {
	return s.reader().listSettlementRuns(ctx, limit)
}

func (s *LedgerStore) reader() ledgerQueries {
	return ledgerQueries{q: s.db}
}

// sqlTx marks every SQL failure as a storage failure so callers can tell it
// apart from rule violations. Serialization conflicts keep their pq error in
// the chain and are retried by the store.
type sqlTx struct {
	queries ledgerQueries
}

func (t *sqlTx) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	out, err := t.queries.loadAccounts(ctx, nil)
	return out, storageFailure(err, "list accounts")
}

func (t *sqlTx) GetAccount(ctx context.Context, accountID string) (ledger.Account, bool, error) {
	out, ok, err := t.queries.getAccount(ctx, accountID)
	return out, ok, storageFailure(err, "get account")
}

func (t *sqlTx) SaveAccounts(ctx context.Context, accounts ...ledger.Account) error {
	return storageFailure(t.queries.saveAccounts(ctx, accounts), "save accounts")
}

func (t *sqlTx) GetMarket(ctx context.Context) (market.Snapshot, bool, error) {
	out, ok, err := t.queries.getMarket(ctx)
	return out, ok, storageFailure(err, "get market")
}

func (t *sqlTx) SaveMarket(ctx context.Context, snapshot market.Snapshot) error {
	return storageFailure(t.queries.saveMarket(ctx, snapshot), "save market")
}

func (t *sqlTx) SaveSettlementRun(ctx context.Context, run ledger.SettlementRun) error {
	return storageFailure(t.queries.saveSettlementRun(ctx, run), "save settlement run")
}

func storageFailure(err error, msg string) error {
	if err == nil {
		return nil
	}
	if crerr.Is(err, ledger.ErrStorageTransaction) {
		return err
	}
	if isUniqueViolation(err) {
		msg += ": ownership conflict"
	}
	return crerr.Mark(crerr.Wrap(err, msg), ledger.ErrStorageTransaction)
}

func isStorageFailure(err error) bool {
	return crerr.Is(err, ledger.ErrStorageTransaction)
}
