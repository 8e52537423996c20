package usecase

import (
	"fmt"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrUnauthorized          = crerr.New("unauthorized")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
)

func accountNotFound(userID string) error {
	return fmt.Errorf("%w: account %s", ErrNotFound, userID)
}

func playerNotFound(playerID string) error {
	return fmt.Errorf("%w: player %s", ErrNotFound, playerID)
}
