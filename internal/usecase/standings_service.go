package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
	"github.com/riskibarqy/kart-league/internal/platform/logging"
)

const defaultStandingsWorkers = 8

type Standing struct {
	Rank       int
	UserID     string
	Name       string
	Points     int
	Currency   int64
	LineupSize int
}

type StandingsService struct {
	store   ledger.Reader
	workers int
	logger  *logging.Logger
}

func NewStandingsService(store ledger.Reader, workers int, logger *logging.Logger) *StandingsService {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = defaultStandingsWorkers
	}

	return &StandingsService{
		store:   store,
		workers: workers,
		logger:  logger.Named("standings"),
	}
}

// Compute ranks every account by lineup points, then currency, then id.
func (s *StandingsService) Compute(ctx context.Context) ([]Standing, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StandingsService.Compute")
	defer span.End()

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return []Standing{}, nil
	}

	pool, err := ants.NewPool(min(s.workers, len(accounts)))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	out := make([]Standing, len(accounts))
	var workers sync.WaitGroup
	for i, acc := range accounts {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			out[i] = Standing{
				UserID:     acc.ID,
				Name:       acc.Name,
				Points:     acc.LineupPoints(),
				Currency:   acc.Currency,
				LineupSize: len(acc.Roster.Lineup),
			}
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, fmt.Errorf("submit standings task: %w", err)
		}
	}
	workers.Wait()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Currency != out[j].Currency {
			return out[i].Currency > out[j].Currency
		}
		return out[i].UserID < out[j].UserID
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	s.logger.DebugContext(ctx, "standings computed", "accounts", len(out))
	return out, nil
}
