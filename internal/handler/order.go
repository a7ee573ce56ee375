package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/readleaf/bookstore-api/internal/domain/order"
	"github.com/readleaf/bookstore-api/internal/domain/token"
)

// orderRequest is the checkout payload. Book identifiers arrive as opaque
// tokens; quantity and unit price are declared by the caller.
type orderRequest struct {
	Items []orderRequestItem `json:"items"`
}

type orderRequestItem struct {
	BookToken string          `json:"bookToken"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type orderItemResponse struct {
	BookToken string          `json:"bookToken"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	Status    order.Status        `json:"status"`
	ClaimCode string              `json:"claimCode"`
	Total     decimal.Decimal     `json:"total"`
	Discount  decimal.Decimal     `json:"discount"`
	Items     []orderItemResponse `json:"items"`
	CreatedAt time.Time           `json:"createdAt"`
}

// checkoutResponse carries the created order and the discount summary line.
type checkoutResponse struct {
	Order   orderResponse `json:"order"`
	Message string        `json:"message"`
}

func (h *Handler) toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			BookToken: h.codec.Encode(item.BookID),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return orderResponse{
		ID:        o.ID,
		Status:    o.Status,
		ClaimCode: o.ClaimCode,
		Total:     o.Total,
		Discount:  o.Discount,
		Items:     items,
		CreatedAt: o.CreatedAt,
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	lines := make([]order.CartLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.CartLine{
			BookToken: item.BookToken,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	identity := IdentityFromContext(r.Context())
	result, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID: identity.UserID,
		Lines:  lines,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		Order:   h.toOrderResponse(*result.Order),
		Message: result.Message,
	})
}

// writeCheckoutError maps checkout failures onto HTTP statuses. Validation
// and identifier problems are both 400, but identifier problems keep their
// distinct message so tampering is distinguishable from a malformed request.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrMissingUser),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, token.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		writeError(w, http.StatusBadRequest, iqErr.Error())
		return
	}
	var ipErr *order.InvalidPriceError
	if errors.As(err, &ipErr) {
		writeError(w, http.StatusBadRequest, ipErr.Error())
		return
	}

	writeInternalError(w, r, err)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	orders, err := h.orders.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = h.toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())

	err := h.orders.Cancel(r.Context(), identity.UserID, r.PathValue("id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrStatusConflict):
		writeError(w, http.StatusConflict, "order can no longer be cancelled")
	default:
		writeInternalError(w, r, err)
	}
}

func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.CompleteByClaimCode(r.Context(), r.PathValue("code"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, h.toOrderResponse(*o))
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "no order with that claim code")
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, order.ErrStatusConflict):
		writeError(w, http.StatusConflict, "order is not pending")
	default:
		writeInternalError(w, r, err)
	}
}
