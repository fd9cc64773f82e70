// Package inventory decides whether a requested cart quantity fits the stock on hand.
//
// The guard is pure: it never touches storage and never errors. Callers read
// the SKU and the current cart line, ask the guard, and turn a rejection into
// a domain error with Decision.Err.
package inventory

import (
	"fmt"

	"github.com/dukerupert/shopfront/internal/domain"
)

// Decision is the outcome of an admissibility check.
type Decision struct {
	Allowed bool

	// Reason is a user-facing explanation when Allowed is false.
	Reason string

	// MaxAdditional is how many more units the shopper could request.
	// For CanSet it is the on-hand count.
	MaxAdditional int
}

// Err converts a rejection into an EINVENTORY domain error. Returns nil when allowed.
func (d Decision) Err(op string) error {
	if d.Allowed {
		return nil
	}
	return domain.InsufficientInventory(op, d.Reason)
}

// CanAdd reports whether requested more units may join the inCart units already held.
func CanAdd(onHand, requested, inCart int) Decision {
	if inCart+requested <= onHand {
		return Decision{Allowed: true, MaxAdditional: onHand - inCart}
	}

	remaining := max(0, onHand-inCart)
	if requested > onHand {
		return Decision{
			Reason:        fmt.Sprintf("Only %d items available in stock", onHand),
			MaxAdditional: remaining,
		}
	}
	return Decision{
		Reason:        fmt.Sprintf("Cannot add %d items. Only %d more available", requested, remaining),
		MaxAdditional: remaining,
	}
}

// CanSet reports whether a line may be set to exactly requested units.
func CanSet(onHand, requested int) Decision {
	if requested <= onHand {
		return Decision{Allowed: true, MaxAdditional: onHand}
	}
	return Decision{
		Reason:        fmt.Sprintf("Only %d items available in stock", onHand),
		MaxAdditional: onHand,
	}
}
