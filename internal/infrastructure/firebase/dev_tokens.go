package firebase

import (
	"context"
	"errors"
	"strings"
)

const devTokenPrefix = "dev:"

var ErrInvalidDevToken = errors.New("invalid development token")

// DevVerifier accepts tokens of the form "dev:<uid>" or "dev:<uid>:<email>". It is only
// wired in development with the memory store.
type DevVerifier struct{}

func (DevVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return nil, ErrInvalidDevToken
	}
	parts := strings.SplitN(strings.TrimPrefix(token, devTokenPrefix), ":", 2)
	if parts[0] == "" {
		return nil, ErrInvalidDevToken
	}

	id := &Identity{UID: parts[0], Name: parts[0]}
	if len(parts) == 2 {
		id.Email = parts[1]
	}
	return id, nil
}

// DevToken builds a token DevVerifier accepts.
func DevToken(uid, email string) string {
	if email == "" {
		return devTokenPrefix + uid
	}
	return devTokenPrefix + uid + ":" + email
}
