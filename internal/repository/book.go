package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/readleaf/bookstore-api/internal/domain/book"
)

const (
	listBooksSQL = `SELECT id, title, author, isbn, price, created_at
	FROM books ORDER BY title`

	getBookSQL = `SELECT id, title, author, isbn, price, created_at
	FROM books WHERE id = $1`

	getBooksSQL = `SELECT id, title, author, isbn, price, created_at
	FROM books WHERE id = ANY($1)`
)

var _ book.Repository = (*BookRepository)(nil)

// BookRepository implements book.Repository backed by PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository returns a BookRepository that uses the given pool.
func NewBookRepository(pool *pgxpool.Pool) *BookRepository {
	return &BookRepository{pool: pool}
}

// List returns the full catalog ordered by title.
func (r *BookRepository) List(ctx context.Context) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, listBooksSQL)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// GetByID returns a single book, or book.ErrNotFound.
func (r *BookRepository) GetByID(ctx context.Context, id int64) (*book.Book, error) {
	var b book.Book
	err := r.pool.QueryRow(ctx, getBookSQL, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Price, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, book.ErrNotFound
		}
		return nil, fmt.Errorf("getting book %d: %w", id, err)
	}
	return &b, nil
}

// GetByIDs returns all books matching the given ids in a single query.
// Missing ids are simply absent from the result.
func (r *BookRepository) GetByIDs(ctx context.Context, ids []int64) ([]book.Book, error) {
	rows, err := r.pool.Query(ctx, getBooksSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

func scanBooks(rows pgx.Rows) ([]book.Book, error) {
	var books []book.Book
	for rows.Next() {
		var b book.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Price, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading books: %w", err)
	}
	return books, nil
}
