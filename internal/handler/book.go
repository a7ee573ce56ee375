package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/readleaf/bookstore-api/internal/domain/book"
)

// bookResponse is the wire shape for catalog entries. The numeric id never
// appears; Token stands in for it.
type bookResponse struct {
	Token  string          `json:"token"`
	Title  string          `json:"title"`
	Author string          `json:"author"`
	ISBN   string          `json:"isbn"`
	Price  decimal.Decimal `json:"price"`
}

func (h *Handler) toBookResponse(b book.Book) bookResponse {
	return bookResponse{
		Token:  h.codec.Encode(b.ID),
		Title:  b.Title,
		Author: b.Author,
		ISBN:   b.ISBN,
		Price:  b.Price,
	}
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := make([]bookResponse, len(books))
	for i, b := range books {
		resp[i] = h.toBookResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := h.codec.Decode(r.PathValue("token"))
	if err != nil {
		// A bad token is a malformed identifier, not a missing book.
		writeError(w, http.StatusBadRequest, "corrupted or invalid book identifier")
		return
	}

	b, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toBookResponse(*b))
}
