package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

type SaleResult struct {
	PlayerID string
	Credited int64
	Currency int64
}

type BuyoutResult struct {
	PlayerID       string
	PreviousOwner  string
	Price          int64
	RefundedAmount int64
	Currency       int64
}

type RosterService struct {
	store   ledger.Store
	players player.Repository
	rules   ledger.Rules
	logger  *logging.Logger
	now     func() time.Time
}

func NewRosterService(store ledger.Store, players player.Repository, rules ledger.Rules, logger *logging.Logger) *RosterService {
	if logger == nil {
		logger = logging.Default()
	}

	return &RosterService{
		store:   store,
		players: players,
		rules:   rules,
		logger:  logger.Named("roster"),
		now:     time.Now,
	}
}

// Sell releases an owned player back to the pool and credits what was paid for it.
func (s *RosterService) Sell(ctx context.Context, userID, playerID string) (SaleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.Sell", userAttr(userID), playerAttr(playerID))
	defer span.End()

	userID, playerID, err := requireIDs(userID, playerID)
	if err != nil {
		return SaleResult{}, err
	}
	p, err := lookupPlayer(ctx, s.players, playerID)
	if err != nil {
		return SaleResult{}, err
	}

	var result SaleResult
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		acc, err := loadAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		removed, ok := acc.RemovePlayer(playerID)
		if !ok {
			return fmt.Errorf("%w: %s", ledger.ErrNotOwned, playerID)
		}

		credit := removed.PurchasePrice
		if credit <= 0 {
			credit = p.BaseCost
		}
		acc.Currency += credit
		acc.UpdatedAt = s.now().UTC()

		result = SaleResult{PlayerID: playerID, Credited: credit, Currency: acc.Currency}
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return SaleResult{}, failSpan(span, fmt.Errorf("sell player: %w", err))
	}

	s.logger.InfoContext(ctx, "player sold", "user_id", userID, "player_id", playerID, "credited", result.Credited)
	return result, nil
}

// Buyout transfers a player from its owner to buyerID once the protection
// window since the owner's purchase has passed.
func (s *RosterService) Buyout(ctx context.Context, buyerID, playerID string) (BuyoutResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.Buyout", userAttr(buyerID), playerAttr(playerID))
	defer span.End()

	buyerID, playerID, err := requireIDs(buyerID, playerID)
	if err != nil {
		return BuyoutResult{}, err
	}
	p, err := lookupPlayer(ctx, s.players, playerID)
	if err != nil {
		return BuyoutResult{}, err
	}

	var result BuyoutResult
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		buyer, ok := findAccount(accounts, buyerID)
		if !ok {
			return accountNotFound(buyerID)
		}
		ownerID, owned := ledger.OwnerIndex(accounts)[playerID]
		if !owned {
			return fmt.Errorf("%w: %s has no owner", ledger.ErrNotOwned, playerID)
		}
		if ownerID == buyerID {
			return fmt.Errorf("%w: %s already belongs to %s", ledger.ErrAlreadyOwned, playerID, buyerID)
		}
		owner, _ := findAccount(accounts, ownerID)
		entry, _ := owner.Owned(playerID)

		now := s.now().UTC()
		if held := now.Sub(entry.PurchasedAt); held < s.rules.BuyoutProtection {
			return fmt.Errorf("%w: held for %s, protected for %s", ledger.ErrBuyoutProtected, held.Truncate(time.Hour), s.rules.BuyoutProtection)
		}
		if len(buyer.Players) >= s.rules.MaxOwnedPlayers {
			return fmt.Errorf("%w: %d players owned", ledger.ErrRosterFull, len(buyer.Players))
		}
		price := entry.BuyoutPrice(p.BaseCost)
		if buyer.Currency < price {
			return fmt.Errorf("%w: price %d, balance %d", ledger.ErrInsufficientFunds, price, buyer.Currency)
		}

		refund := entry.Refund()
		owner.RemovePlayer(playerID)
		owner.Currency += refund
		owner.UpdatedAt = now

		buyer.Currency -= price
		buyer.AddPlayer(ledger.OwnedPlayer{PlayerID: playerID, PurchasedAt: now, PurchasePrice: price})
		buyer.UpdatedAt = now

		result = BuyoutResult{
			PlayerID:       playerID,
			PreviousOwner:  ownerID,
			Price:          price,
			RefundedAmount: refund,
			Currency:       buyer.Currency,
		}
		return tx.SaveAccounts(ctx, owner, buyer)
	})
	if err != nil {
		return BuyoutResult{}, failSpan(span, fmt.Errorf("buyout player: %w", err))
	}

	s.logger.InfoContext(ctx, "player bought out",
		"buyer_id", buyerID,
		"previous_owner", result.PreviousOwner,
		"player_id", playerID,
		"price", result.Price,
		"refund", result.RefundedAmount,
	)
	return result, nil
}

// Invest raises the buyout price of an owned player by amount.
func (s *RosterService) Invest(ctx context.Context, userID, playerID string, amount int64) (ledger.OwnedPlayer, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.Invest", userAttr(userID), playerAttr(playerID))
	defer span.End()

	userID, playerID, err := requireIDs(userID, playerID)
	if err != nil {
		return ledger.OwnedPlayer{}, err
	}
	if amount <= 0 {
		return ledger.OwnedPlayer{}, fmt.Errorf("%w: investment must be greater than zero", ErrInvalidInput)
	}

	var updated ledger.OwnedPlayer
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		acc, err := loadAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		idx := -1
		for i, p := range acc.Players {
			if p.PlayerID == playerID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ledger.ErrNotOwned, playerID)
		}
		if acc.Currency < amount {
			return fmt.Errorf("%w: investing %d of %d", ledger.ErrInsufficientFunds, amount, acc.Currency)
		}

		acc.Currency -= amount
		acc.Players[idx].ClauseInvestment += amount
		acc.UpdatedAt = s.now().UTC()
		updated = acc.Players[idx]
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return ledger.OwnedPlayer{}, failSpan(span, fmt.Errorf("invest in player: %w", err))
	}
	return updated, nil
}

// SetLineup replaces the scoring lineup; the rest of the owned players are benched.
func (s *RosterService) SetLineup(ctx context.Context, userID string, playerIDs []string) (ledger.Roster, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.SetLineup", userAttr(userID))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ledger.Roster{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	cleaned, err := cleanPlayerIDs(playerIDs)
	if err != nil {
		return ledger.Roster{}, err
	}

	var roster ledger.Roster
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		acc, err := loadAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := acc.SetLineup(cleaned, s.rules); err != nil {
			return err
		}
		acc.UpdatedAt = s.now().UTC()
		roster = acc.Roster
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return ledger.Roster{}, failSpan(span, fmt.Errorf("set lineup: %w", err))
	}
	return roster, nil
}

func requireIDs(userID, playerID string) (string, string, error) {
	userID = strings.TrimSpace(userID)
	playerID = strings.TrimSpace(playerID)
	if userID == "" {
		return "", "", fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if playerID == "" {
		return "", "", fmt.Errorf("%w: player id is required", ErrInvalidInput)
	}
	return userID, playerID, nil
}
