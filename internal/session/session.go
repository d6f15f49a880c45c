// Package session holds the authentication state of one admin request.
package session

import (
	"context"
	"time"

	"github.com/civicweb/cms/internal/config"
)

// State is everything the server knows about the caller's session. It is
// built once per request and never mutated afterwards.
type State struct {
	UID       string
	ExpiresAt time.Time
	Now       time.Time
	// Redirected is set when the client reports it already followed a
	// re-authentication redirect.
	Redirected bool
}

// Authenticated reports whether the state carries an identity whose token
// has not expired. A zero ExpiresAt never expires.
func (s State) Authenticated() bool {
	if s.UID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || s.Now.Before(s.ExpiresAt)
}

// Expired reports whether the caller presented a token that has run out.
func (s State) Expired() bool {
	return s.UID != "" && !s.ExpiresAt.IsZero() && !s.Now.Before(s.ExpiresAt)
}

// ShouldRedirect reports whether the client must be sent to log in again.
// A client that already followed a redirect is not redirected twice.
func ShouldRedirect(s State) bool {
	return !s.Authenticated() && !s.Redirected
}

func NewContext(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, config.CTX_KEY_SESSION, s)
}

func FromContext(ctx context.Context) (State, bool) {
	s, ok := ctx.Value(config.CTX_KEY_SESSION).(State)
	return s, ok
}
