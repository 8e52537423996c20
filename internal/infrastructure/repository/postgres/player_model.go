package postgres

import (
	"time"

	"github.com/riskibarqy/kart-league/internal/domain/player"
)

type playerTableModel struct {
	ID        int64      `db:"id"`
	PublicID  string     `db:"public_id"`
	Name      string     `db:"name"`
	Team      string     `db:"team"`
	BaseCost  int64      `db:"base_cost"`
	MMR       int        `db:"mmr"`
	PeakMMR   int        `db:"peak_mmr"`
	Rank      string     `db:"rank"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

var playerSelectColumns = []string{
	"id", "public_id", "name", "team", "base_cost",
	"mmr", "peak_mmr", "rank", "created_at", "updated_at", "deleted_at",
}

func (m playerTableModel) toDomain() player.Player {
	return player.Player{
		ID:       m.PublicID,
		Name:     m.Name,
		Team:     m.Team,
		BaseCost: m.BaseCost,
		MMR:      m.MMR,
		PeakMMR:  m.PeakMMR,
		Rank:     m.Rank,
	}
}
