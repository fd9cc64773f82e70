// Package session resolves the shopping session a request belongs to.
//
// Sessions are anonymous: the client keeps an opaque UUID and sends it in the
// X-Session-Id header. A missing or malformed value is replaced with a fresh
// one, and the server echoes the effective ID on every response.
package session

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/shopfront/internal/domain"
)

// Header carries the session ID in both directions.
const Header = "X-Session-Id"

// canonical matches the 8-4-4-4-12 hex form only; uuid.Parse also accepts
// braces, URNs and the 32-digit form, which are not valid session IDs.
var canonical = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Resolver validates or mints session IDs.
type Resolver struct {
	newID func() string
}

// NewResolver creates a resolver minting random (v4) UUIDs.
func NewResolver() *Resolver {
	return &Resolver{newID: uuid.NewString}
}

// Resolve keeps a well-formed raw ID and mints a new one otherwise.
func (r *Resolver) Resolve(raw string) domain.Session {
	raw = strings.TrimSpace(raw)
	if Valid(raw) {
		return domain.Session{ID: raw}
	}
	return domain.Session{ID: r.newID(), IsNew: true}
}

// Valid reports whether id is a canonical UUID string.
func Valid(id string) bool {
	return canonical.MatchString(id)
}
