package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/kart-league/internal/domain/player"
	qb "github.com/riskibarqy/kart-league/internal/platform/querybuilder"
)

// PlayerRepository reads the catalog from the players table. Soft-deleted
// rows are retired racers and never reach the league.
type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	return r.selectPlayers(ctx, "list")
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return []player.Player{}, nil
	}
	return r.selectPlayers(ctx, "get by ids", qb.In("public_id", stringSliceToAny(playerIDs)))
}

func (r *PlayerRepository) selectPlayers(ctx context.Context, op string, conditions ...qb.Condition) ([]player.Player, error) {
	query, args, err := qb.Select(playerSelectColumns...).From("players").
		Where(append(conditions, qb.IsNull("deleted_at"))...).
		OrderBy("public_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s players query: %w", op, err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s players: %w", op, err)
	}

	out := make([]player.Player, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
