// Package domain provides core storefront types, store contracts, and
// context helpers.
//
// Context helpers centralize request-scoped data access so handlers and
// services read the shopping session the same way.
package domain

import (
	"context"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	// sessionContextKey stores the resolved shopping session in context.
	sessionContextKey contextKey = iota
)

// Session identifies an anonymous shopper. IsNew is set when the identifier
// was minted for this request rather than supplied by the client.
type Session struct {
	ID    string
	IsNew bool
}

// NewContextWithSession returns a new context with the session attached.
func NewContextWithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext retrieves the session from context.
// The boolean is false when no session is present.
func SessionFromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionContextKey).(Session)
	return session, ok
}

// SessionIDFromContext retrieves the session ID from context.
// Returns an empty string if no session is present.
func SessionIDFromContext(ctx context.Context) string {
	session, _ := SessionFromContext(ctx)
	return session.ID
}

// RequireSessionID retrieves the session ID from context or returns
// ErrSessionRequired when the session middleware did not run.
func RequireSessionID(ctx context.Context) (string, error) {
	id := SessionIDFromContext(ctx)
	if id == "" {
		return "", ErrSessionRequired
	}
	return id, nil
}
