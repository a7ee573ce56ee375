package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/readleaf/bookstore-api/internal/domain/discount"
	"github.com/readleaf/bookstore-api/internal/domain/token"
)

// Sentinel errors for checkout validation.
var (
	ErrMissingUser = errors.New("user required")
	ErrEmptyCart   = errors.New("cart items required")
)

// InvalidQuantityError indicates a cart line with a non-positive quantity.
type InvalidQuantityError struct {
	Line int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 on line %d", e.Line)
}

// InvalidPriceError indicates a cart line with a negative unit price.
type InvalidPriceError struct {
	Line int
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("unit price must not be negative on line %d", e.Line)
}

// InvalidTokenError indicates a cart line whose book token failed to decode.
// It unwraps to token.ErrInvalidToken.
type InvalidTokenError struct {
	Line int
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("corrupted or invalid book identifier on line %d", e.Line)
}

func (e *InvalidTokenError) Unwrap() error {
	return token.ErrInvalidToken
}

// CartLine is a caller-supplied checkout line. The unit price is declared by
// the caller and not re-derived from the catalog.
type CartLine struct {
	BookToken string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	UserID string
	Lines  []CartLine
}

// CheckoutResult holds the persisted order and the user-facing discount
// summary message.
type CheckoutResult struct {
	Order   *Order
	Message string
}

// Service encapsulates order placement and lifecycle business logic.
type Service struct {
	codec  *token.Codec
	orders Repository
	now    func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(codec *token.Codec, orders Repository) *Service {
	return &Service{
		codec:  codec,
		orders: orders,
		now:    time.Now,
	}
}

// Checkout validates the cart, decodes every book token, computes the stacked
// volume and loyalty discounts, and persists the order with all items in a
// single transaction. Any validation or decode failure aborts before any
// write; no partial order is ever created.
//
// The loyalty count is read before the order is written, so two concurrent
// checkouts by the same customer can both observe an eligible count. This
// race is accepted; closing it would need a per-customer lock around the
// read and the write.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.UserID == "" {
		return nil, ErrMissingUser
	}
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Single pass: decode tokens, accumulate subtotal and quantity.
	items := make([]Item, len(req.Lines))
	subtotal := decimal.Zero
	totalQuantity := 0
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{Line: i}
		}
		if line.UnitPrice.IsNegative() {
			return nil, &InvalidPriceError{Line: i}
		}

		bookID, err := s.codec.Decode(line.BookToken)
		if err != nil {
			return nil, &InvalidTokenError{Line: i}
		}

		items[i] = Item{
			BookID:    bookID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalQuantity += line.Quantity
	}

	prior, err := s.orders.CountSuccessful(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "count successful orders")
	}

	summary := discount.Evaluate(totalQuantity, prior)
	discountAmount := summary.Amount(subtotal)
	total := subtotal.Sub(discountAmount)

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Status:    StatusPending,
		ClaimCode: NewClaimCode(),
		Total:     total,
		Discount:  discountAmount,
		Items:     items,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return &CheckoutResult{Order: o, Message: summary.Message()}, nil
}

// ListForUser returns the customer's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Cancel transitions a pending order owned by userID to cancelled. Orders
// belonging to other customers are reported as not found.
func (s *Service) Cancel(ctx context.Context, userID, orderID string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if o.UserID != userID {
		return ErrNotFound
	}
	if !o.Status.CanTransitionTo(StatusCancelled) {
		return ErrInvalidTransition
	}
	return s.orders.UpdateStatus(ctx, o.ID, o.Status, StatusCancelled)
}

// CompleteByClaimCode transitions a pending order to completed when the
// customer presents its claim code at pickup.
func (s *Service) CompleteByClaimCode(ctx context.Context, code string) (*Order, error) {
	o, err := s.orders.GetByClaimCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(StatusCompleted) {
		return nil, ErrInvalidTransition
	}
	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, StatusCompleted); err != nil {
		return nil, err
	}
	o.Status = StatusCompleted
	return o, nil
}
