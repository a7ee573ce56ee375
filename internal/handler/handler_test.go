package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readleaf/bookstore-api/internal/domain/auth"
	"github.com/readleaf/bookstore-api/internal/domain/book"
	"github.com/readleaf/bookstore-api/internal/domain/order"
	"github.com/readleaf/bookstore-api/internal/domain/token"
)

const (
	testPepper    = "test-pepper"
	customerKey   = "customer-key"
	staffKey      = "staff-key"
	unscopedKey   = "unscoped-key"
	customerUser  = "u-customer"
	staffUserName = "Front desk"
)

// --- Fakes ---

type fakeBookRepo struct {
	books []book.Book
}

func (f *fakeBookRepo) List(_ context.Context) ([]book.Book, error) {
	return f.books, nil
}

func (f *fakeBookRepo) GetByID(_ context.Context, id int64) (*book.Book, error) {
	for i := range f.books {
		if f.books[i].ID == id {
			return &f.books[i], nil
		}
	}
	return nil, book.ErrNotFound
}

func (f *fakeBookRepo) GetByIDs(_ context.Context, ids []int64) ([]book.Book, error) {
	var out []book.Book
	for _, id := range ids {
		if b, err := f.GetByID(context.Background(), id); err == nil {
			out = append(out, *b)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	created    []*order.Order
	successful int
	byID       map[string]*order.Order
	byClaim    map[string]*order.Order
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	f.created = append(f.created, o)
	return nil
}

func (f *fakeOrderRepo) CountSuccessful(_ context.Context, _ string) (int, error) {
	return f.successful, nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := f.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) GetByClaimCode(_ context.Context, code string) (*order.Order, error) {
	o, ok := f.byClaim[code]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.created {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, _, to order.Status) error {
	if o, ok := f.byID[id]; ok {
		o.Status = to
	}
	return nil
}

type fakeAuthRepo struct {
	byHash map[string]*auth.Identity
}

func (f *fakeAuthRepo) FindByHash(_ context.Context, hash string) (*auth.Identity, error) {
	id, ok := f.byHash[hash]
	if !ok {
		return nil, auth.ErrUnknownKey
	}
	return id, nil
}

// --- Harness ---

func keyHash(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

type harness struct {
	codec     *token.Codec
	bookRepo  *fakeBookRepo
	orderRepo *fakeOrderRepo
	server    http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	key := make([]byte, token.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	codec, err := token.NewCodec(key)
	require.NoError(t, err)

	bookRepo := &fakeBookRepo{books: []book.Book{
		{ID: 1, Title: "The Go Programming Language", Author: "Donovan, Kernighan", ISBN: "9780134190440", Price: decimal.RequireFromString("39.99")},
		{ID: 2, Title: "Database Internals", Author: "Petrov", ISBN: "9781492040347", Price: decimal.RequireFromString("46.99")},
	}}
	orderRepo := &fakeOrderRepo{
		byID:    make(map[string]*order.Order),
		byClaim: make(map[string]*order.Order),
	}

	authRepo := &fakeAuthRepo{byHash: map[string]*auth.Identity{
		keyHash(customerKey): {
			ID: "k1", KeyHash: keyHash(customerKey), Name: "Customer",
			UserID: customerUser, Scopes: []string{auth.ScopeCheckout},
		},
		keyHash(staffKey): {
			ID: "k2", KeyHash: keyHash(staffKey), Name: staffUserName,
			UserID: "u-staff", Scopes: []string{auth.ScopeFulfill},
		},
		keyHash(unscopedKey): {
			ID: "k3", KeyHash: keyHash(unscopedKey), Name: "No scopes",
			UserID: "u-none", Scopes: nil,
		},
	}}

	h := New(codec, bookRepo, order.NewService(codec, orderRepo))
	sec := NewSecurity(authRepo, []byte(testPepper))

	return &harness{
		codec:     codec,
		bookRepo:  bookRepo,
		orderRepo: orderRepo,
		server:    h.Routes(sec),
	}
}

func (h *harness) do(t *testing.T, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- Catalog ---

func TestListBooks_TokensDecodeToIDs(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/books", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	books := decodeBody[[]bookResponse](t, rec)
	require.Len(t, books, 2)

	for i, b := range books {
		id, err := h.codec.Decode(b.Token)
		require.NoError(t, err)
		assert.Equal(t, h.bookRepo.books[i].ID, id)
	}
}

func TestGetBook(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/books/"+h.codec.Encode(2), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	b := decodeBody[bookResponse](t, rec)
	assert.Equal(t, "Database Internals", b.Title)
}

func TestGetBook_InvalidTokenIs400Not404(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/books/not-a-real-token", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "invalid book identifier")
}

func TestGetBook_UnknownIDIs404(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/books/"+h.codec.Encode(999), "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Checkout ---

func TestPlaceOrder(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", customerKey, orderRequest{
		Items: []orderRequestItem{
			{BookToken: h.codec.Encode(1), Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
			{BookToken: h.codec.Encode(2), Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[checkoutResponse](t, rec)
	assert.Equal(t, "You got a 5% discount for ordering 5 or more books.", resp.Message)
	assert.True(t, decimal.RequireFromString("47.50").Equal(resp.Order.Total))
	assert.True(t, decimal.RequireFromString("2.50").Equal(resp.Order.Discount))
	assert.Equal(t, order.StatusPending, resp.Order.Status)
	assert.Len(t, resp.Order.ClaimCode, order.ClaimCodeLength)

	require.Len(t, h.orderRepo.created, 1)
	assert.Equal(t, customerUser, h.orderRepo.created[0].UserID)
}

func TestPlaceOrder_CorruptedToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", customerKey, orderRequest{
		Items: []orderRequestItem{
			{BookToken: "AAAA-tampered", Quantity: 1, UnitPrice: decimal.NewFromInt(10)},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Message, "corrupted or invalid book identifier")
	assert.Empty(t, h.orderRepo.created)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", customerKey, orderRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder_MalformedBody(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{not json"))
	req.Header.Set(apiKeyHeader, customerKey)
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Auth ---

func TestPlaceOrder_NoKey(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", "", orderRequest{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_UnknownKey(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", "who-is-this", orderRequest{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrder_MissingScope(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", unscopedKey, orderRequest{})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCompleteOrder_RequiresFulfillScope(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders/claim/ABCD2345/complete", customerKey, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

// --- Lifecycle ---

func TestCancelOrder(t *testing.T) {
	h := newHarness(t)
	h.orderRepo.byID["o1"] = &order.Order{ID: "o1", UserID: customerUser, Status: order.StatusPending}

	rec := h.do(t, http.MethodPost, "/api/orders/o1/cancel", customerKey, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, order.StatusCancelled, h.orderRepo.byID["o1"].Status)
}

func TestCancelOrder_SomeoneElses(t *testing.T) {
	h := newHarness(t)
	h.orderRepo.byID["o1"] = &order.Order{ID: "o1", UserID: "other", Status: order.StatusPending}

	rec := h.do(t, http.MethodPost, "/api/orders/o1/cancel", customerKey, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrder_AlreadyCompleted(t *testing.T) {
	h := newHarness(t)
	h.orderRepo.byID["o1"] = &order.Order{ID: "o1", UserID: customerUser, Status: order.StatusCompleted}

	rec := h.do(t, http.MethodPost, "/api/orders/o1/cancel", customerKey, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompleteOrder(t *testing.T) {
	h := newHarness(t)
	h.orderRepo.byID["o1"] = &order.Order{ID: "o1", UserID: customerUser, Status: order.StatusPending, ClaimCode: "ABCD2345"}
	h.orderRepo.byClaim["ABCD2345"] = h.orderRepo.byID["o1"]

	rec := h.do(t, http.MethodPost, "/api/orders/claim/ABCD2345/complete", staffKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[orderResponse](t, rec)
	assert.Equal(t, order.StatusCompleted, resp.Status)
}

func TestListOrders(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/orders", customerKey, orderRequest{
		Items: []orderRequestItem{
			{BookToken: h.codec.Encode(1), Quantity: 1, UnitPrice: decimal.RequireFromString("39.99")},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/orders", customerKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	orders := decodeBody[[]orderResponse](t, rec)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)

	// Item tokens round-trip back to the book id.
	id, err := h.codec.Decode(orders[0].Items[0].BookToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
