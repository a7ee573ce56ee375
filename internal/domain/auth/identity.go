package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// Scopes recognized by the API.
const (
	// ScopeCheckout allows placing, listing, and cancelling the key owner's orders.
	ScopeCheckout = "checkout"
	// ScopeFulfill allows staff operations: completing orders by claim code.
	ScopeFulfill = "fulfill"
)

// ErrUnknownKey is returned when no active API key matches the given hash.
var ErrUnknownKey = errors.New("api key not found")

// Identity holds the authenticated caller behind a validated API key.
type Identity struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// HasScope reports whether the identity carries the given scope.
func (i *Identity) HasScope(scope string) bool {
	for _, s := range i.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API key identities by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Identity, error)
}
