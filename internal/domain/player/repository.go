package player

import "context"

// Repository describes read access to the player catalog.
type Repository interface {
	List(ctx context.Context) ([]Player, error)
	// GetByIDs skips unknown ids and makes no ordering promise.
	GetByIDs(ctx context.Context, playerIDs []string) ([]Player, error)
}
