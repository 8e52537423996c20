package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/domain/player"
	idgen "github.com/riskibarqy/kart-league/internal/platform/id"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

type CreateAccountInput struct {
	ID       string
	Name     string
	Currency *int64
}

type AssignPlayerInput struct {
	UserID   string
	PlayerID string
	// Price is the recorded purchase price; zero means the catalog base cost.
	Price int64
}

// StarterAssignment seeds one account at league setup.
type StarterAssignment struct {
	UserID    string
	Name      string
	Currency  *int64
	PlayerIDs []string
	Lineup    []string
}

type RecordScoreInput struct {
	UserID   string
	PlayerID string
	WeekID   string
	Race1    int
	Race2    int
}

type LedgerService struct {
	store   ledger.Store
	players player.Repository
	rules   ledger.Rules
	idGen   idgen.Generator
	logger  *logging.Logger
	now     func() time.Time
}

func NewLedgerService(
	store ledger.Store,
	players player.Repository,
	rules ledger.Rules,
	idGen idgen.Generator,
	logger *logging.Logger,
) *LedgerService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewUUIDGenerator("usr")
	}

	return &LedgerService{
		store:   store,
		players: players,
		rules:   rules,
		idGen:   idGen,
		logger:  logger.Named("ledger"),
		now:     time.Now,
	}
}

func (s *LedgerService) CreateAccount(ctx context.Context, input CreateAccountInput) (ledger.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.CreateAccount", userAttr(input.ID))
	defer span.End()

	input.ID = strings.TrimSpace(input.ID)
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return ledger.Account{}, fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}
	currency := s.rules.StartingCurrency
	if input.Currency != nil {
		currency = *input.Currency
	}
	if currency < 0 {
		return ledger.Account{}, fmt.Errorf("%w: currency must be >= 0", ErrInvalidInput)
	}
	if input.ID == "" {
		id, err := s.idGen.NewID()
		if err != nil {
			return ledger.Account{}, fmt.Errorf("generate account id: %w", err)
		}
		input.ID = id
	}

	acc := ledger.NewAccount(input.ID, input.Name, currency, s.now().UTC())
	err := s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, exists, err := tx.GetAccount(ctx, acc.ID)
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: account %s already exists", ErrInvalidInput, acc.ID)
		}
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return ledger.Account{}, failSpan(span, fmt.Errorf("create account: %w", err))
	}

	s.logger.InfoContext(ctx, "account created", "user_id", acc.ID, "currency", acc.Currency)
	return acc, nil
}

// AdjustCurrency adds delta to the balance. A result below zero is rejected.
func (s *LedgerService) AdjustCurrency(ctx context.Context, userID string, delta int64, reason string) (ledger.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.AdjustCurrency", userAttr(userID), attribute.Int64("league.currency_delta", delta))
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ledger.Account{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if delta == 0 {
		return ledger.Account{}, fmt.Errorf("%w: delta must not be zero", ErrInvalidInput)
	}

	var updated ledger.Account
	err := s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		acc, err := loadAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if delta < 0 && acc.Currency+delta < 0 {
			return fmt.Errorf("%w: balance %d, delta %d", ledger.ErrInsufficientFunds, acc.Currency, delta)
		}
		if delta > 0 && acc.Currency > math.MaxInt64-delta {
			return fmt.Errorf("%w: balance %d cannot absorb delta %d", ErrInvalidInput, acc.Currency, delta)
		}
		acc.Currency += delta
		acc.UpdatedAt = s.now().UTC()
		updated = acc
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return ledger.Account{}, failSpan(span, fmt.Errorf("adjust currency: %w", err))
	}

	s.logger.InfoContext(ctx, "currency adjusted",
		"user_id", userID,
		"delta", delta,
		"balance", updated.Currency,
		"reason", strings.TrimSpace(reason),
	)
	return updated, nil
}

// AssignPlayer grants an unowned player without charging the account.
func (s *LedgerService) AssignPlayer(ctx context.Context, input AssignPlayerInput) (ledger.OwnedPlayer, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.AssignPlayer", userAttr(input.UserID), playerAttr(input.PlayerID))
	defer span.End()

	userID, playerID, err := requireIDs(input.UserID, input.PlayerID)
	if err != nil {
		return ledger.OwnedPlayer{}, err
	}
	if input.Price < 0 {
		return ledger.OwnedPlayer{}, fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
	}
	p, err := lookupPlayer(ctx, s.players, playerID)
	if err != nil {
		return ledger.OwnedPlayer{}, err
	}

	var entry ledger.OwnedPlayer
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		acc, ok := findAccount(accounts, userID)
		if !ok {
			return accountNotFound(userID)
		}
		entry, err = s.grant(&acc, ledger.OwnerIndex(accounts), p, input.Price)
		if err != nil {
			return err
		}
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return ledger.OwnedPlayer{}, failSpan(span, fmt.Errorf("assign player: %w", err))
	}
	return entry, nil
}

// SetupLeague creates or tops up every starter account in one unit of work.
// Existing accounts keep their balance; missing ones start with the given or
// default currency.
func (s *LedgerService) SetupLeague(ctx context.Context, starters []StarterAssignment) ([]ledger.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.SetupLeague", attribute.Int("league.starters", len(starters)))
	defer span.End()

	if len(starters) == 0 {
		return nil, fmt.Errorf("%w: at least one starter assignment is required", ErrInvalidInput)
	}
	wanted := make([]string, 0)
	for i, st := range starters {
		starters[i].UserID = strings.TrimSpace(st.UserID)
		if starters[i].UserID == "" {
			return nil, fmt.Errorf("%w: starter %d has no user id", ErrInvalidInput, i)
		}
		cleaned, err := cleanPlayerIDs(st.PlayerIDs)
		if err != nil {
			return nil, err
		}
		starters[i].PlayerIDs = cleaned
		wanted = append(wanted, cleaned...)
	}
	found, err := s.players.GetByIDs(ctx, wanted)
	if err != nil {
		return nil, fmt.Errorf("get players by ids: %w", err)
	}
	catalog := player.Index(found)

	var saved []ledger.Account
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		owners := ledger.OwnerIndex(accounts)
		now := s.now().UTC()

		saved = make([]ledger.Account, 0, len(starters))
		seen := make(map[string]struct{}, len(starters))
		for _, st := range starters {
			if _, dup := seen[st.UserID]; dup {
				return fmt.Errorf("%w: user %s listed twice", ErrInvalidInput, st.UserID)
			}
			seen[st.UserID] = struct{}{}

			acc, ok := findAccount(accounts, st.UserID)
			if !ok {
				currency := s.rules.StartingCurrency
				if st.Currency != nil {
					currency = *st.Currency
				}
				name := strings.TrimSpace(st.Name)
				if name == "" {
					name = st.UserID
				}
				acc = ledger.NewAccount(st.UserID, name, currency, now)
			}
			for _, playerID := range st.PlayerIDs {
				p, ok := catalog[playerID]
				if !ok {
					return playerNotFound(playerID)
				}
				if _, err := s.grant(&acc, owners, p, 0); err != nil {
					return fmt.Errorf("starter %s: %w", st.UserID, err)
				}
				owners[playerID] = acc.ID
			}
			if len(st.Lineup) > 0 {
				if err := acc.SetLineup(st.Lineup, s.rules); err != nil {
					return fmt.Errorf("starter %s: %w", st.UserID, err)
				}
			}
			if err := acc.Validate(s.rules); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			saved = append(saved, acc)
		}
		return tx.SaveAccounts(ctx, saved...)
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("setup league: %w", err))
	}

	s.logger.InfoContext(ctx, "league setup committed", "accounts", len(saved))
	return saved, nil
}

// RecordWeeklyScore appends a week of race results for an owned player.
func (s *LedgerService) RecordWeeklyScore(ctx context.Context, input RecordScoreInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.RecordWeeklyScore", userAttr(input.UserID), playerAttr(input.PlayerID))
	defer span.End()

	userID, playerID, err := requireIDs(input.UserID, input.PlayerID)
	if err != nil {
		return err
	}
	weekID := strings.TrimSpace(input.WeekID)
	if weekID == "" {
		return fmt.Errorf("%w: week id is required", ErrInvalidInput)
	}
	if input.Race1 < 0 || input.Race2 < 0 {
		return fmt.Errorf("%w: race scores must be >= 0", ErrInvalidInput)
	}

	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		acc, err := loadAccount(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !acc.Owns(playerID) {
			return fmt.Errorf("%w: %s", ledger.ErrNotOwned, playerID)
		}
		if err := acc.RecordScore(playerID, weekID, ledger.RaceScore{Race1: input.Race1, Race2: input.Race2}); err != nil {
			return err
		}
		acc.UpdatedAt = s.now().UTC()
		return tx.SaveAccounts(ctx, acc)
	})
	if err != nil {
		return failSpan(span, fmt.Errorf("record weekly score: %w", err))
	}
	return nil
}

func (s *LedgerService) GetAccount(ctx context.Context, userID string) (ledger.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.GetAccount")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ledger.Account{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	acc, ok, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("get account: %w", err)
	}
	if !ok {
		return ledger.Account{}, accountNotFound(userID)
	}
	return acc, nil
}

func (s *LedgerService) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.ListAccounts")
	defer span.End()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// ImportRecords decodes persisted account records and upserts them. Imported
// accounts replace existing ones with the same id.
func (s *LedgerService) ImportRecords(ctx context.Context, data []byte) ([]ledger.Account, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.ImportRecords")
	defer span.End()

	records, err := ledger.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records to import", ErrInvalidInput)
	}
	catalog, err := s.players.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	imported, err := ledger.HydrateAll(records, player.Index(catalog), s.rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		merged := make([]ledger.Account, 0, len(existing)+len(imported))
		replaced := make(map[string]struct{}, len(imported))
		for _, acc := range imported {
			replaced[acc.ID] = struct{}{}
			merged = append(merged, acc)
		}
		for _, acc := range existing {
			if _, ok := replaced[acc.ID]; !ok {
				merged = append(merged, acc)
			}
		}
		if err := ledger.ValidateOwnership(merged); err != nil {
			return fmt.Errorf("%w: %v", ledger.ErrAlreadyOwned, err)
		}
		return tx.SaveAccounts(ctx, imported...)
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("import records: %w", err))
	}

	s.logger.InfoContext(ctx, "ledger records imported", "accounts", len(imported))
	return imported, nil
}

// ExportRecords encodes every account in the persisted record shape.
func (s *LedgerService) ExportRecords(ctx context.Context) ([]byte, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.LedgerService.ExportRecords")
	defer span.End()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	data, err := ledger.EncodeRecords(ledger.DehydrateAll(accounts))
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return data, nil
}

func (s *LedgerService) grant(acc *ledger.Account, owners map[string]string, p player.Player, price int64) (ledger.OwnedPlayer, error) {
	if owner, owned := owners[p.ID]; owned {
		return ledger.OwnedPlayer{}, fmt.Errorf("%w: %s is owned by %s", ledger.ErrAlreadyOwned, p.ID, owner)
	}
	if len(acc.Players) >= s.rules.MaxOwnedPlayers {
		return ledger.OwnedPlayer{}, fmt.Errorf("%w: %d players owned", ledger.ErrRosterFull, len(acc.Players))
	}
	if price <= 0 {
		price = p.BaseCost
	}
	now := s.now().UTC()
	entry := ledger.OwnedPlayer{PlayerID: p.ID, PurchasedAt: now, PurchasePrice: price}
	acc.AddPlayer(entry)
	acc.UpdatedAt = now
	return entry, nil
}
