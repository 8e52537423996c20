package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/market"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	idgen "github.com/riskibarqy/kart-league/internal/platform/id"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

// MarketPlayer is a published player together with the running highest bid.
type MarketPlayer struct {
	Player     player.Player
	HighestBid int64
	BidCount   int
}

type MarketView struct {
	Snapshot market.Snapshot
	Players  []MarketPlayer
}

type RotationResult struct {
	Snapshot    market.Snapshot
	ClearedBids int
}

type MarketService struct {
	store   ledger.Store
	players player.Repository
	rules   market.Rules
	idGen   idgen.Generator
	logger  *logging.Logger
	now     func() time.Time
	newRand func() *rand.Rand
}

func NewMarketService(
	store ledger.Store,
	players player.Repository,
	rules market.Rules,
	idGen idgen.Generator,
	logger *logging.Logger,
) *MarketService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewUUIDGenerator("mkt")
	}

	return &MarketService{
		store:   store,
		players: players,
		rules:   rules,
		idGen:   idGen,
		logger:  logger.Named("market"),
		now:     time.Now,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// Rotate publishes a new pool drawn from unowned players and clears every
// pending bid in the same unit of work.
func (s *MarketService) Rotate(ctx context.Context) (RotationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MarketService.Rotate")
	defer span.End()

	catalog, err := s.players.List(ctx)
	if err != nil {
		return RotationResult{}, fmt.Errorf("list players: %w", err)
	}

	var result RotationResult
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		pool := market.BuildPool(catalog, ledger.OwnerIndex(accounts), s.rules, s.newRand())

		result, err = s.commitRotation(ctx, tx, accounts, pool)
		return err
	})
	if err != nil {
		return RotationResult{}, failSpan(span, fmt.Errorf("rotate market: %w", err))
	}

	s.logger.InfoContext(ctx, "market rotated",
		"market_id", result.Snapshot.ID,
		"players", len(result.Snapshot.PlayerIDs),
		"cleared_bids", result.ClearedBids,
	)
	return result, nil
}

// CommitRotation publishes an explicit pool. Every player must exist and be unowned.
func (s *MarketService) CommitRotation(ctx context.Context, pool []string) (RotationResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MarketService.CommitRotation")
	defer span.End()

	cleaned, err := cleanPlayerIDs(pool)
	if err != nil {
		return RotationResult{}, err
	}
	found, err := s.players.GetByIDs(ctx, cleaned)
	if err != nil {
		return RotationResult{}, fmt.Errorf("get players by ids: %w", err)
	}
	if len(found) != len(cleaned) {
		return RotationResult{}, fmt.Errorf("%w: some players are missing from the catalog", ErrInvalidInput)
	}

	var result RotationResult
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		owners := ledger.OwnerIndex(accounts)
		for _, id := range cleaned {
			if owner, owned := owners[id]; owned {
				return fmt.Errorf("%w: %s is owned by %s", ledger.ErrAlreadyOwned, id, owner)
			}
		}

		result, err = s.commitRotation(ctx, tx, accounts, cleaned)
		return err
	})
	if err != nil {
		return RotationResult{}, fmt.Errorf("commit rotation: %w", err)
	}
	return result, nil
}

// Current returns the published market with the running highest bid per player.
func (s *MarketService) Current(ctx context.Context) (MarketView, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.MarketService.Current")
	defer span.End()

	snapshot, ok, err := s.store.GetMarket(ctx)
	if err != nil {
		return MarketView{}, false, fmt.Errorf("get market: %w", err)
	}
	if !ok {
		return MarketView{}, false, nil
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return MarketView{}, false, fmt.Errorf("list accounts: %w", err)
	}
	players, err := s.players.GetByIDs(ctx, snapshot.PlayerIDs)
	if err != nil {
		return MarketView{}, false, fmt.Errorf("get market players: %w", err)
	}
	index := player.Index(players)

	view := MarketView{Snapshot: snapshot, Players: make([]MarketPlayer, 0, len(snapshot.PlayerIDs))}
	for _, id := range snapshot.PlayerIDs {
		p, ok := index[id]
		if !ok {
			continue
		}
		item := MarketPlayer{Player: p, HighestBid: ledger.HighestBid(accounts, id)}
		for _, acc := range accounts {
			if _, has := acc.Bids[id]; has {
				item.BidCount++
			}
		}
		view.Players = append(view.Players, item)
	}
	return view, true, nil
}

func (s *MarketService) commitRotation(ctx context.Context, tx ledger.Tx, accounts []ledger.Account, pool []string) (RotationResult, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return RotationResult{}, fmt.Errorf("generate market id: %w", err)
	}
	now := s.now().UTC()
	snapshot := market.Snapshot{ID: id, PlayerIDs: pool, PublishedAt: now}
	if err := tx.SaveMarket(ctx, snapshot); err != nil {
		return RotationResult{}, fmt.Errorf("save market: %w", err)
	}

	result := RotationResult{Snapshot: snapshot}
	changed := make([]ledger.Account, 0, len(accounts))
	for _, acc := range accounts {
		if n := acc.ClearBids(); n > 0 {
			result.ClearedBids += n
			acc.UpdatedAt = now
			changed = append(changed, acc)
		}
	}
	if len(changed) > 0 {
		if err := tx.SaveAccounts(ctx, changed...); err != nil {
			return RotationResult{}, fmt.Errorf("clear bids: %w", err)
		}
	}
	return result, nil
}

func cleanPlayerIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: player id must not be empty", ErrInvalidInput)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate player id %s", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
