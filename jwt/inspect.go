package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when a token carries no exp claim.
var ErrNoExpiry = errors.New("jwt: token has no expiry")

// Inspector reads registered claims from tokens without verifying them.
// Opaque (non-JWT) tokens simply fail to parse.
type Inspector struct {
	parser *jwt.Parser
	now    func() time.Time
}

// NewInspector returns an Inspector using the wall clock.
func NewInspector() *Inspector {
	return &Inspector{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// ExpiresAt returns the exp claim of token.
func (i *Inspector) ExpiresAt(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := i.parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether token expires within window from now. Tokens
// whose expiry cannot be read report false: they are left for the server to
// reject.
func (i *Inspector) ExpiresWithin(token string, window time.Duration) bool {
	if token == "" || window <= 0 {
		return false
	}
	exp, err := i.ExpiresAt(token)
	if err != nil {
		return false
	}
	return !i.now().Add(window).Before(exp)
}
