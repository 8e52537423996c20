package session

import (
	"errors"
	"strings"
)

// Session identifies the account a request acts for. It is resolved once at
// the edge and then passed explicitly as a user id into every operation.
type Session struct {
	UserID string
}

var ErrMissingUser = errors.New("session user is required")

func New(userID string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, ErrMissingUser
	}
	return Session{UserID: userID}, nil
}
