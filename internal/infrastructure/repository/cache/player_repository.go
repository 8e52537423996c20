package cache

import (
	"context"

	"github.com/riskibarqy/kart-league/internal/domain/player"
	basecache "github.com/riskibarqy/kart-league/internal/platform/cache"
)

const (
	playerKeyPrefix = "player:"
	playerListKey   = playerKeyPrefix + "list"
)

// PlayerRepository caches the catalog. The catalog is static between
// deployments, so lookups by id are answered from the cached list.
type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	items, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]player.Player(nil), items.list...), nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	items, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]player.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := items.index[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Refresh drops the cached catalog so the next read goes to the underlying repository.
func (r *PlayerRepository) Refresh(ctx context.Context) {
	r.cache.Invalidate(ctx, playerKeyPrefix)
}

type cachedCatalog struct {
	list  []player.Player
	index map[string]player.Player
}

func (r *PlayerRepository) load(ctx context.Context) (cachedCatalog, error) {
	return basecache.Load(ctx, r.cache, playerListKey, func(ctx context.Context) (cachedCatalog, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return cachedCatalog{}, err
		}
		list := append([]player.Player(nil), items...)
		return cachedCatalog{list: list, index: player.Index(list)}, nil
	})
}
