package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/kart-league/internal/domain/auction"
	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	idgen "github.com/riskibarqy/kart-league/internal/platform/id"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

type SettlementService struct {
	store  ledger.Store
	rules  ledger.Rules
	idGen  idgen.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewSettlementService(store ledger.Store, rules ledger.Rules, idGen idgen.Generator, logger *logging.Logger) *SettlementService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewUUIDGenerator("run")
	}

	return &SettlementService{
		store:  store,
		rules:  rules,
		idGen:  idGen,
		logger: logger.Named("settlement"),
		now:    time.Now,
	}
}

// Settle reads every pending bid, resolves one winner per player and commits
// the result in a single unit of work. Bids committed after the snapshot read
// stay pending for the next cycle.
func (s *SettlementService) Settle(ctx context.Context) (auction.Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.Settle")
	defer span.End()

	var outcome auction.Outcome
	err := s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		awards := auction.Resolve(auction.Aggregate(accounts))

		outcome, err = s.commit(ctx, tx, accounts, awards)
		return err
	})
	if err != nil {
		return auction.Outcome{}, failSpan(span, fmt.Errorf("settle: %w", err))
	}
	span.SetAttributes(
		attribute.String("league.settlement_run_id", outcome.RunID),
		attribute.Int("league.awards_applied", len(outcome.Applied)),
		attribute.Int("league.awards_skipped", len(outcome.Skipped)),
	)

	s.logOutcome(ctx, outcome)
	return outcome, nil
}

// CommitSettlement applies an externally resolved winner list.
func (s *SettlementService) CommitSettlement(ctx context.Context, awards []auction.Award) (auction.Outcome, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.CommitSettlement")
	defer span.End()

	cleaned, err := cleanAwards(awards)
	if err != nil {
		return auction.Outcome{}, err
	}

	var outcome auction.Outcome
	err = s.store.Within(ctx, func(ctx context.Context, tx ledger.Tx) error {
		accounts, err := tx.ListAccounts(ctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		outcome, err = s.commit(ctx, tx, accounts, cleaned)
		return err
	})
	if err != nil {
		return auction.Outcome{}, failSpan(span, fmt.Errorf("commit settlement: %w", err))
	}

	s.logOutcome(ctx, outcome)
	return outcome, nil
}

func (s *SettlementService) ListRuns(ctx context.Context, limit int) ([]ledger.SettlementRun, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SettlementService.ListRuns")
	defer span.End()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.store.ListSettlementRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list settlement runs: %w", err)
	}
	return runs, nil
}

func (s *SettlementService) commit(ctx context.Context, tx ledger.Tx, accounts []ledger.Account, awards []auction.Award) (auction.Outcome, error) {
	outcome := auction.Settle(accounts, awards, s.rules, s.now().UTC())
	for _, acc := range outcome.Accounts {
		if err := acc.Validate(s.rules); err != nil {
			return auction.Outcome{}, fmt.Errorf("settlement produced invalid account: %w", err)
		}
	}
	if err := ledger.ValidateOwnership(outcome.Accounts); err != nil {
		return auction.Outcome{}, fmt.Errorf("settlement produced invalid ownership: %w", err)
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		return auction.Outcome{}, fmt.Errorf("generate settlement run id: %w", err)
	}
	outcome.RunID = runID

	if changed := outcome.Changed(accounts); len(changed) > 0 {
		if err := tx.SaveAccounts(ctx, changed...); err != nil {
			return auction.Outcome{}, fmt.Errorf("save settled accounts: %w", err)
		}
	}
	if err := tx.SaveSettlementRun(ctx, outcome.Run(runID)); err != nil {
		return auction.Outcome{}, fmt.Errorf("save settlement run: %w", err)
	}
	return outcome, nil
}

func (s *SettlementService) logOutcome(ctx context.Context, outcome auction.Outcome) {
	for _, skipped := range outcome.Skipped {
		s.logger.WarnContext(ctx, "award skipped",
			"run_id", outcome.RunID,
			"player_id", skipped.PlayerID,
			"user_id", skipped.UserID,
			"amount", skipped.Amount,
			"reason", string(skipped.Reason),
		)
	}
	s.logger.InfoContext(ctx, "settlement committed",
		"run_id", outcome.RunID,
		"applied", len(outcome.Applied),
		"skipped", len(outcome.Skipped),
		"cleared_bids", outcome.ClearedBids,
	)
}

func cleanAwards(awards []auction.Award) ([]auction.Award, error) {
	out := make([]auction.Award, 0, len(awards))
	seen := make(map[string]struct{}, len(awards))
	for _, a := range awards {
		a.PlayerID = strings.TrimSpace(a.PlayerID)
		a.UserID = strings.TrimSpace(a.UserID)
		if a.PlayerID == "" || a.UserID == "" {
			return nil, fmt.Errorf("%w: award player id and user id are required", ErrInvalidInput)
		}
		if a.Amount <= 0 {
			return nil, fmt.Errorf("%w: award amount for %s must be greater than zero", ErrInvalidInput, a.PlayerID)
		}
		if _, dup := seen[a.PlayerID]; dup {
			return nil, fmt.Errorf("%w: more than one award for %s", ErrInvalidInput, a.PlayerID)
		}
		seen[a.PlayerID] = struct{}{}
		out = append(out, a)
	}
	return out, nil
}
