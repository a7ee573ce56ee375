package book

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested book does not exist.
var ErrNotFound = errors.New("book not found")

// Book represents a catalog item available for purchase. The numeric ID is
// internal; the API surface exchanges it as an opaque token.
type Book struct {
	ID        int64
	Title     string
	Author    string
	ISBN      string
	Price     decimal.Decimal
	CreatedAt time.Time
}

// Repository defines read operations for the book catalog.
type Repository interface {
	List(ctx context.Context) ([]Book, error)
	GetByID(ctx context.Context, id int64) (*Book, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Book, error)
}
