package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/riskibarqy/kart-league/internal/domain/player"
)

// PlayerRepository serves a fixed catalog. It is never mutated after
// construction, so reads need no locking.
type PlayerRepository struct {
	players []player.Player
	index   map[string]player.Player
}

func NewPlayerRepository(players []player.Player) *PlayerRepository {
	sorted := slices.SortedFunc(slices.Values(players), func(a, b player.Player) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return &PlayerRepository{
		players: sorted,
		index:   player.Index(sorted),
	}
}

func (r *PlayerRepository) List(_ context.Context) ([]player.Player, error) {
	return slices.Clone(r.players), nil
}

// GetByIDs returns the known players in request order, skipping unknown and repeated ids.
func (r *PlayerRepository) GetByIDs(_ context.Context, playerIDs []string) ([]player.Player, error) {
	out := make([]player.Player, 0, len(playerIDs))
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.index[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
