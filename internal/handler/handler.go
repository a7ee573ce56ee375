// Package handler exposes the bookstore API over HTTP. It owns the mapping
// between wire shapes and domain types; business logic lives in the domain
// packages.
package handler

import (
	"net/http"

	"github.com/readleaf/bookstore-api/internal/domain/auth"
	"github.com/readleaf/bookstore-api/internal/domain/book"
	"github.com/readleaf/bookstore-api/internal/domain/order"
	"github.com/readleaf/bookstore-api/internal/domain/token"
	"github.com/readleaf/bookstore-api/pkg/httpmiddleware"
)

// Handler serves the /api routes, delegating to the order service and the
// book repository.
type Handler struct {
	codec  *token.Codec
	books  book.Repository
	orders *order.Service
}

// New constructs a Handler with the required domain dependencies.
func New(codec *token.Codec, books book.Repository, orders *order.Service) *Handler {
	return &Handler{
		codec:  codec,
		books:  books,
		orders: orders,
	}
}

// Routes returns the /api route tree. Catalog reads are public; order
// operations require an authenticated API key with the matching scope.
func (h *Handler) Routes(sec *Security) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/books", h.listBooks)
	mux.HandleFunc("GET /api/books/{token}", h.getBook)

	checkout := func(fn http.HandlerFunc) http.Handler {
		return httpmiddleware.Wrap(fn, sec.Authenticate(), RequireScope(auth.ScopeCheckout))
	}
	fulfill := func(fn http.HandlerFunc) http.Handler {
		return httpmiddleware.Wrap(fn, sec.Authenticate(), RequireScope(auth.ScopeFulfill))
	}

	mux.Handle("POST /api/orders", checkout(h.placeOrder))
	mux.Handle("GET /api/orders", checkout(h.listOrders))
	mux.Handle("POST /api/orders/{id}/cancel", checkout(h.cancelOrder))
	mux.Handle("POST /api/orders/claim/{code}/complete", fulfill(h.completeOrder))

	return mux
}
