package usecase

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/kart-league/internal/domain/ledger"
)

// Overview is the league dashboard: catalog size, the open market, current
// standings and the most recent settlement.
type Overview struct {
	CatalogSize    int
	Market         *MarketView
	Standings      []Standing
	LastSettlement *ledger.SettlementRun
}

type OverviewService struct {
	players     *PlayerService
	market      *MarketService
	standings   *StandingsService
	settlements *SettlementService
}

func NewOverviewService(players *PlayerService, market *MarketService, standings *StandingsService, settlements *SettlementService) *OverviewService {
	return &OverviewService{
		players:     players,
		market:      market,
		standings:   standings,
		settlements: settlements,
	}
}

func (s *OverviewService) Get(ctx context.Context) (Overview, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.OverviewService.Get")
	defer span.End()

	var out Overview
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		players, err := s.players.List(ctx, PlayerFilter{})
		if err != nil {
			return err
		}
		out.CatalogSize = len(players)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		view, ok, err := s.market.Current(ctx)
		if err != nil {
			return err
		}
		if ok {
			out.Market = &view
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		standings, err := s.standings.Compute(ctx)
		if err != nil {
			return err
		}
		out.Standings = standings
		return nil
	})
	p.Go(func(ctx context.Context) error {
		runs, err := s.settlements.ListRuns(ctx, 1)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			out.LastSettlement = &runs[0]
		}
		return nil
	})

	if err := p.Wait(); err != nil {
		return Overview{}, fmt.Errorf("load overview: %w", err)
	}
	return out, nil
}
