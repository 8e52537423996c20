package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/riskibarqy/kart-league/internal/domain/player"
)

// PlayerFilter narrows a catalog listing. Zero values match everything.
type PlayerFilter struct {
	Team    string
	MaxCost int64
}

func (f PlayerFilter) matches(p player.Player) bool {
	if f.Team != "" && !strings.EqualFold(p.Team, f.Team) {
		return false
	}
	if f.MaxCost > 0 && p.BaseCost > f.MaxCost {
		return false
	}
	return true
}

// catalogRefresher is implemented by caching catalog repositories.
type catalogRefresher interface {
	Refresh(ctx context.Context)
}

type PlayerService struct {
	players player.Repository
}

func NewPlayerService(players player.Repository) *PlayerService {
	return &PlayerService{players: players}
}

func (s *PlayerService) List(ctx context.Context, filter PlayerFilter) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.List")
	defer span.End()

	if filter.MaxCost < 0 {
		return nil, fmt.Errorf("%w: max cost must be >= 0", ErrInvalidInput)
	}
	filter.Team = strings.TrimSpace(filter.Team)

	catalog, err := s.players.List(ctx)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("list players: %w", err))
	}
	return slices.DeleteFunc(slices.Clone(catalog), func(p player.Player) bool {
		return !filter.matches(p)
	}), nil
}

func (s *PlayerService) Get(ctx context.Context, playerID string) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.Get", playerAttr(playerID))
	defer span.End()

	return lookupPlayer(ctx, s.players, playerID)
}

// RefreshCatalog drops any cached catalog and returns the reloaded catalog size.
func (s *PlayerService) RefreshCatalog(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PlayerService.RefreshCatalog")
	defer span.End()

	if r, ok := s.players.(catalogRefresher); ok {
		r.Refresh(ctx)
	}
	catalog, err := s.players.List(ctx)
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("reload players: %w", err))
	}
	return len(catalog), nil
}
