package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/auction"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

type CycleConfig struct {
	// SettlementHourUTC is the hour of the day boundary, 0-23.
	SettlementHourUTC int
	JobTimeout        time.Duration
}

type CycleResult struct {
	Settlement auction.Outcome
	Rotation   RotationResult
}

// CycleService runs the day boundary: settle the open auctions, then publish
// a fresh market. Rotation is skipped when settlement fails so pending bids
// survive until the next attempt.
type CycleService struct {
	settlements *SettlementService
	market      *MarketService
	cfg         CycleConfig
	logger      *logging.Logger
	now         func() time.Time
}

func NewCycleService(settlements *SettlementService, market *MarketService, cfg CycleConfig, logger *logging.Logger) *CycleService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SettlementHourUTC < 0 || cfg.SettlementHourUTC > 23 {
		cfg.SettlementHourUTC = 0
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}

	return &CycleService{
		settlements: settlements,
		market:      market,
		cfg:         cfg,
		logger:      logger.Named("cycle"),
		now:         time.Now,
	}
}

func (s *CycleService) RunCycle(ctx context.Context) (CycleResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CycleService.RunCycle")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	started := s.now()
	var out CycleResult

	outcome, err := s.settlements.Settle(ctx)
	if err != nil {
		return out, fmt.Errorf("settle: %w", err)
	}
	out.Settlement = outcome

	rotation, err := s.market.Rotate(ctx)
	if err != nil {
		return out, fmt.Errorf("rotate market: %w", err)
	}
	out.Rotation = rotation

	s.logger.InfoContext(ctx, "day cycle completed",
		"run_id", outcome.RunID,
		"applied", len(outcome.Applied),
		"skipped", len(outcome.Skipped),
		"market_id", rotation.Snapshot.ID,
		"market_size", len(rotation.Snapshot.PlayerIDs),
		"duration_ms", s.now().Sub(started).Milliseconds(),
	)
	return out, nil
}

// NextRunAt returns the first day boundary strictly after now.
func (s *CycleService) NextRunAt(now time.Time) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.SettlementHourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is done, running one cycle at every day boundary.
// A failed cycle is logged and retried at the next boundary.
func (s *CycleService) Run(ctx context.Context) error {
	for {
		next := s.NextRunAt(s.now())
		s.logger.InfoContext(ctx, "next day cycle scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.ErrorContext(ctx, "day cycle failed", "error", err)
		}
	}
}
