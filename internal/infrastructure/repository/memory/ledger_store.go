package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"sync"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
	"github.com/riskibarqy/kart-league/internal/domain/player"
)

type ledgerState struct {
	accounts  map[string]ledger.Account
	market    market.Snapshot
	hasMarket bool
	runs      []ledger.SettlementRun
}

func (s ledgerState) clone() ledgerState {
	out := ledgerState{
		accounts:  make(map[string]ledger.Account, len(s.accounts)),
		market:    cloneSnapshot(s.market),
		hasMarket: s.hasMarket,
		runs:      slices.Clone(s.runs),
	}
	for id, acc := range s.accounts {
		out.accounts[id] = acc.Clone()
	}
	return out
}

// LedgerStore keeps the whole ledger in memory. Units of work run one at a
// time against a private copy that replaces the shared state only on success.
type LedgerStore struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   ledgerState
}

func NewLedgerStore(accounts ...ledger.Account) *LedgerStore {
	state := ledgerState{accounts: make(map[string]ledger.Account, len(accounts))}
	for _, acc := range accounts {
		state.accounts[acc.ID] = acc.Clone()
	}
	return &LedgerStore{state: state}
}

func (s *LedgerStore) Within(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &memoryTx{state: &working}); err != nil {
		return err
	}

	// mirrors the unique ownership index of the SQL store
	if err := ledger.ValidateOwnership(sortedAccounts(working.accounts)); err != nil {
		return crerr.Mark(crerr.Wrap(err, "commit ledger"), ledger.ErrStorageTransaction)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = working
	s.mu.Unlock()
	return nil
}

func (s *LedgerStore) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedAccounts(s.state.accounts), nil
}

func (s *LedgerStore) GetAccount(_ context.Context, accountID string) (ledger.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.state.accounts[accountID]
	if !ok {
		return ledger.Account{}, false, nil
	}
	return acc.Clone(), true, nil
}

func (s *LedgerStore) GetMarket(_ context.Context) (market.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.state.market), s.state.hasMarket, nil
}

// ListSettlementRuns returns the newest runs first.
func (s *LedgerStore) ListSettlementRuns(_ context.Context, limit int) ([]ledger.SettlementRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ledger.SettlementRun, 0, len(s.state.runs))
	for i := len(s.state.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		run := s.state.runs[i]
		run.Awards = slices.Clone(run.Awards)
		out = append(out, run)
	}
	return out, nil
}

type memoryTx struct {
	state *ledgerState
}

func (t *memoryTx) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	return sortedAccounts(t.state.accounts), nil
}

func (t *memoryTx) GetAccount(_ context.Context, accountID string) (ledger.Account, bool, error) {
	acc, ok := t.state.accounts[accountID]
	if !ok {
		return ledger.Account{}, false, nil
	}
	return acc.Clone(), true, nil
}

func (t *memoryTx) SaveAccounts(_ context.Context, accounts ...ledger.Account) error {
	for _, acc := range accounts {
		if acc.ID == "" {
			return fmt.Errorf("save account: empty id")
		}
		t.state.accounts[acc.ID] = acc.Clone()
	}
	return nil
}

func (t *memoryTx) GetMarket(_ context.Context) (market.Snapshot, bool, error) {
	return cloneSnapshot(t.state.market), t.state.hasMarket, nil
}

func (t *memoryTx) SaveMarket(_ context.Context, snapshot market.Snapshot) error {
	t.state.market = cloneSnapshot(snapshot)
	t.state.hasMarket = true
	return nil
}

func (t *memoryTx) SaveSettlementRun(_ context.Context, run ledger.SettlementRun) error {
	run.Awards = slices.Clone(run.Awards)
	t.state.runs = append(t.state.runs, run)
	return nil
}

func sortedAccounts(accounts map[string]ledger.Account) []ledger.Account {
	out := make([]ledger.Account, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, acc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneSnapshot(s market.Snapshot) market.Snapshot {
	s.PlayerIDs = slices.Clone(s.PlayerIDs)
	return s
}

// LoadSeedFile reads a JSON array of account records and hydrates it against
// the catalog.
func LoadSeedFile(path string, catalog []player.Player, rules ledger.Rules) ([]ledger.Account, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ledger seed %s: %w", path, err)
	}
	records, err := ledger.DecodeRecords(raw)
	if err != nil {
		return nil, err
	}
	return ledger.HydrateAll(records, player.Index(catalog), rules)
}
