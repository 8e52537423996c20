package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/kart-league/internal/domain/auction"
	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

type PlaceBidInput struct {
	UserID   string
	PlayerID string
	Amount   int64
}

type BidService struct {
	store   ledger.Store
	players player.Repository
	rules   ledger.Rules
	logger  *logging.Logger
	now     func() time.Time
}

func NewBidService(store ledger.Store, players player.Repository, rules ledger.Rules, logger *logging.Logger) *BidService {
	if logger == nil {
		logger = logging.Default()
	}

	return &BidService{
		store:   store,
		players: players,
		rules:   rules,
		logger:  logger.Named("bids"),
		now:     time.Now,
	}
}

// PlaceBid records or replaces the user's bid on a player in the current
// market. The highest bid on every player is public, so a new bid must beat it.
func (s *BidService) PlaceBid(ctx context.Context, input PlaceBidInput) (ledger.Bid, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BidService.PlaceBid",
		userAttr(input.UserID),
		playerAttr(input.PlayerID),
		attribute.Int64("league.bid_amount", input.Amount),
	)
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.PlayerID = strings.TrimSpace(input.PlayerID)
	if input.UserID == "" {
		return ledger.Bid{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if input.PlayerID == "" {
		return ledger.Bid{}, fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	if input.Amount <= 0 {
		return ledger.Bid{}, fmt.Errorf("%w: bid amount must be greater than zero", ErrInvalidInput)
	}
	if _, err := lookupPlayer(ctx, s.players, input.PlayerID); err != nil {
		return ledger.Bid{}, err
	}

	var placed ledger.Bid
	err := s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		acc, ok := findAccount(accounts, input.UserID)
		if !ok {
			return accountNotFound(input.UserID)
		}

		if owner, owned := ledger.OwnerIndex(accounts)[input.PlayerID]; owned {
			return fmt.Errorf("%w: %s is owned by %s", ledger.ErrAlreadyOwned, input.PlayerID, owner)
		}
		snapshot, ok, err := tx.GetMarket(ctx)
		if err != nil {
			return fmt.Errorf("get market: %w", err)
		}
		if !ok || !snapshot.Contains(input.PlayerID) {
			return fmt.Errorf("%w: %s", ledger.ErrNotInMarket, input.PlayerID)
		}
		if highest := ledger.HighestBid(accounts, input.PlayerID); input.Amount <= highest {
			return fmt.Errorf("%w: %d does not beat %d", ledger.ErrBidTooLow, input.Amount, highest)
		}
		if len(acc.Players) >= s.rules.MaxOwnedPlayers {
			return fmt.Errorf("%w: %d players owned", ledger.ErrRosterFull, len(acc.Players))
		}
		if committed := acc.CommittedExcluding(input.PlayerID); input.Amount > acc.Currency || committed > acc.Currency-input.Amount {
			return fmt.Errorf("%w: bidding %d with %d committed of %d", ledger.ErrInsufficientFunds, input.Amount, committed, acc.Currency)
		}

		now := s.now().UTC()
		placed = ledger.Bid{Amount: input.Amount, PlacedAt: now}
		acc.Bids[input.PlayerID] = placed
		acc.UpdatedAt = now
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		if ledger.IsRuleViolation(err) {
			s.logger.InfoContext(ctx, "bid rejected",
				"user_id", input.UserID,
				"player_id", input.PlayerID,
				"amount", input.Amount,
				"reason", string(ledger.ReasonOf(err)),
			)
		}
		return ledger.Bid{}, failSpan(span, fmt.Errorf("place bid: %w", err))
	}

	return placed, nil
}

// CancelBid withdraws the user's pending bid on a player.
func (s *BidService) CancelBid(ctx context.Context, userID, playerID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.BidService.CancelBid", userAttr(userID), playerAttr(playerID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	playerID = strings.TrimSpace(playerID)
	if userID == "" || playerID == "" {
		return fmt.Errorf("%w: user id and player id are required", ErrInvalidInput)
	}

	err := s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		acc, ok, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if !ok {
			return accountNotFound(userID)
		}
		if _, ok := acc.Bids[playerID]; !ok {
			return fmt.Errorf("%w: no bid on %s", ErrNotFound, playerID)
		}
		delete(acc.Bids, playerID)
		acc.UpdatedAt = s.now().UTC()
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return failSpan(span, fmt.Errorf("cancel bid: %w", err))
	}
	return nil
}

// Pending groups every pending bid by player, as settlement would see it.
func (s *BidService) Pending(ctx context.Context) (map[string][]auction.Bid, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BidService.Pending")
	defer span.End()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return auction.Aggregate(accounts), nil
}

func findAccount(accounts []ledger.Account, id string) (ledger.Account, bool) {
	for _, acc := range accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return ledger.Account{}, false
}

func lookupPlayer(ctx context.Context, players player.Repository, playerID string) (player.Player, error) {
	found, err := players.GetByIDs(ctx, []string{playerID})
	if err != nil {
		return player.Player{}, fmt.Errorf("get player: %w", err)
	}
	if len(found) == 0 {
		return player.Player{}, playerNotFound(playerID)
	}
	return found[0], nil
}

func loadAccount(ctx context.Context, tx ledger.Tx, userID string) (ledger.Account, error) {
	acc, ok, err := tx.GetAccount(ctx, userID)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("get account: %w", err)
	}
	if !ok {
		return ledger.Account{}, accountNotFound(userID)
	}
	return acc, nil
}
