package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readleaf/bookstore-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, status, claim_code, total, discount, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertItemSQL = `INSERT INTO order_items (order_id, book_id, quantity, unit_price)
	VALUES ($1, $2, $3, $4)`

	countSuccessfulSQL = `SELECT count(*) FROM orders
	WHERE user_id = $1 AND status <> 'cancelled'`

	getOrderSQL = `SELECT id, user_id, status, claim_code, total, discount, created_at
	FROM orders WHERE id = $1`

	getOrderByClaimSQL = `SELECT id, user_id, status, claim_code, total, discount, created_at
	FROM orders WHERE claim_code = $1`

	listOrdersSQL = `SELECT id, user_id, status, claim_code, total, discount, created_at
	FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	getItemsSQL = `SELECT order_id, book_id, quantity, unit_price
	FROM order_items WHERE order_id = ANY($1)`

	updateStatusSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order row and all item rows in one transaction. The
// items are batched so the whole aggregate is a single round trip.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	batch := &pgx.Batch{}
	batch.Queue(insertOrderSQL,
		o.ID, o.UserID, string(o.Status), o.ClaimCode, o.Total, o.Discount, o.CreatedAt)
	for _, item := range o.Items {
		batch.Queue(insertItemSQL, o.ID, item.BookID, item.Quantity, item.UnitPrice)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// CountSuccessful returns the number of the customer's non-cancelled orders.
func (r *OrderRepository) CountSuccessful(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, countSuccessfulSQL, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting successful orders: %w", err)
	}
	return count, nil
}

// GetByID returns a single order with its items, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// GetByClaimCode returns the order carrying the given claim code.
func (r *OrderRepository) GetByClaimCode(ctx context.Context, code string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByClaimSQL, code)
}

func (r *OrderRepository) getOne(ctx context.Context, query, arg string) (*order.Order, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&o.ID, &o.UserID, &o.Status, &o.ClaimCode, &o.Total, &o.Discount, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}

	items, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return &o, nil
}

// ListByUser returns the customer's orders with items, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	var ids []string
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.ClaimCode, &o.Total, &o.Discount, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

// loadItems fetches the items for all given order ids in one query, grouped
// by order id.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]order.Item, error) {
	rows, err := r.pool.Query(ctx, getItemsSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]order.Item, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item order.Item
		if err := rows.Scan(&orderID, &item.BookID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading order items: %w", err)
	}
	return items, nil
}

// UpdateStatus performs a compare-and-set status transition. A zero row
// count means either the order is gone or another transition won the race;
// the follow-up existence check tells the two apart.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrStatusConflict
}
