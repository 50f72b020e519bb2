package auth

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/Digital-Creators-Team/arcade-client/errors"
)

// TokenCredentials supplies a bearer token read from config or a token file.
// The token's exp claim is checked locally so an expired token is handed
// back to the player before any call is made; the signature is the remote
// service's business.
type TokenCredentials struct {
	mu        sync.Mutex
	token     string
	tokenFile string
	now       func() time.Time
	logger    zerolog.Logger
	onInvalid func()
}

// NewTokenCredentials creates credentials from a literal token or, when it is
// empty, from the contents of tokenFile
func NewTokenCredentials(token, tokenFile string, logger zerolog.Logger) *TokenCredentials {
	return &TokenCredentials{
		token:     strings.TrimSpace(token),
		tokenFile: tokenFile,
		now:       time.Now,
		logger:    logger.With().Str("component", "credentials").Logger(),
	}
}

// OnInvalidate registers a hook run after the token is dropped
func (c *TokenCredentials) OnInvalidate(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalid = fn
}

// Token returns the current bearer token
func (c *TokenCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token == "" && c.tokenFile != "" {
		data, err := os.ReadFile(c.tokenFile)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrUnauthorized, "no credentials available")
		}
		c.token = strings.TrimSpace(string(data))
	}
	if c.token == "" {
		return "", errors.New(errors.ErrUnauthorized, "no credentials available")
	}

	if exp, ok := expiry(c.token); ok && !c.now().Before(exp) {
		c.logger.Warn().Time("expired_at", exp).Msg("Bearer token expired")
		return "", errors.NewWithDebug(errors.ErrUnauthorized, "credentials expired", exp.Format(time.RFC3339))
	}
	return c.token, nil
}

// Invalidate drops the token after the service rejected it. A token file is
// re-read on the next call, so a refreshed file is picked up.
func (c *TokenCredentials) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	hook := c.onInvalid
	c.mu.Unlock()

	c.logger.Info().Msg("Credentials invalidated")
	if hook != nil {
		hook()
	}
	return nil
}

// expiry reads the exp claim without verifying the signature
func expiry(token string) (time.Time, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
