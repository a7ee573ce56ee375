package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Checkout only ever creates orders in
// StatusPending; later transitions belong to the fulfillment surface.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// CanTransitionTo reports whether moving from s to target is a legal
// lifecycle transition. Completed and cancelled are terminal.
func (s Status) CanTransitionTo(target Status) bool {
	if s != StatusPending {
		return false
	}
	return target == StatusCompleted || target == StatusCancelled
}

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned when a status change violates the
	// order lifecycle.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrStatusConflict is returned when a status update lost a race with a
	// concurrent transition.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Order is the persisted checkout aggregate. Total is the post-discount
// amount; Discount is the absolute amount subtracted from the subtotal.
type Order struct {
	ID        string
	UserID    string
	Status    Status
	ClaimCode string
	Total     decimal.Decimal
	Discount  decimal.Decimal
	Items     []Item
	CreatedAt time.Time
}

// Item is a single order line. It is created atomically with its Order and
// never mutated independently.
type Item struct {
	BookID    int64
	Quantity  int
	UnitPrice decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and all its items atomically.
	Create(ctx context.Context, o *Order) error
	// CountSuccessful returns the customer's count of non-cancelled orders.
	CountSuccessful(ctx context.Context, userID string) (int, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByClaimCode(ctx context.Context, code string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatus transitions an order from one status to another. It
	// returns ErrNotFound when the order does not exist and
	// ErrStatusConflict when the order is no longer in the expected status.
	UpdateStatus(ctx context.Context, id string, from, to Status) error
}
