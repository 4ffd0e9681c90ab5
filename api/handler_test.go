package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	printshop "goflare.io/printshop"
	"goflare.io/printshop/catalog"
	"goflare.io/printshop/checkout"
	"goflare.io/printshop/metrics"
	"goflare.io/printshop/models"
	"goflare.io/printshop/models/enum"
	"goflare.io/printshop/reconcile"
)

type fakeService struct {
	printshop.Service

	entries    []models.CatalogEntry
	listErr    error
	productErr error

	checkoutReq    checkout.Request
	checkoutResult models.CheckoutResult
	checkoutErr    error

	cart    *models.Cart
	cartErr error

	reconcileErr error
}

func (f *fakeService) ListProducts(context.Context) ([]models.CatalogEntry, error) {
	return f.entries, f.listErr
}

func (f *fakeService) GetProduct(_ context.Context, id string) (models.CatalogEntry, error) {
	if f.productErr != nil {
		return models.CatalogEntry{}, f.productErr
	}
	return models.NewDegradedEntry(id, "Tee", "", catalog.DefaultDescription), nil
}

func (f *fakeService) Checkout(_ context.Context, req checkout.Request) (models.CheckoutResult, error) {
	f.checkoutReq = req
	return f.checkoutResult, f.checkoutErr
}

func (f *fakeService) GetCart(context.Context, string) (*models.Cart, error) {
	return f.cart, f.cartErr
}

func (f *fakeService) AddCartItem(_ context.Context, _ string, item models.CartLineItem) (*models.Cart, error) {
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	f.cart.Add(item)
	return f.cart, nil
}

func (f *fakeService) UpdateCartItem(context.Context, string, string, string, int64) (*models.Cart, error) {
	return f.cart, f.cartErr
}

func (f *fakeService) ClearCart(context.Context, string) error {
	return f.cartErr
}

func (f *fakeService) VoidReconciliation(_ context.Context, id int64) (*models.Reconciliation, error) {
	if f.reconcileErr != nil {
		return nil, f.reconcileErr
	}
	return &models.Reconciliation{ID: id, Status: enum.ReconciliationStatusVoided}, nil
}

func (f *fakeService) ListReconciliations(context.Context, enum.ReconciliationStatus, int) ([]*models.Reconciliation, error) {
	return nil, f.reconcileErr
}

func newTestRouter(t *testing.T, svc *fakeService) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewRouter(NewHandler(svc, logger), metrics.New(prometheus.NewRegistry()), nil, logger)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

const checkoutBody = `{
	"items":[{"productId":"382588001","variantId":"4012","quantity":2,"price":"100.00","currency":"SEK","name":"Tee"}],
	"shipping":{"name":"Ada","address1":"Main 1","city":"Stockholm","state_code":"AB","country_code":"SE","zip":"11151"}
}`

func TestCheckoutHandler(t *testing.T) {
	svc := &fakeService{checkoutResult: models.CheckoutResult{
		Success: true, State: enum.CheckoutStateSucceeded, CheckoutID: "chk-1",
		OrderID: "777", PaymentReference: "pi_123", ClientSecret: "secret",
	}}
	h := newTestRouter(t, svc)

	rec := do(t, h, http.MethodPost, "/checkout", checkoutBody, map[string]string{
		HeaderSessionID:      "session-1",
		HeaderIdempotencyKey: "key-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var body CheckoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.OrderID != "777" || body.PaymentReference != "pi_123" || body.PaymentIntentClientSecret != "secret" {
		t.Errorf("unexpected body %+v", body)
	}

	got := svc.checkoutReq
	if got.SessionID != "session-1" || got.IdempotencyKey != "key-1" || len(got.Items) != 1 || got.Shipping.Zip != "11151" {
		t.Errorf("unexpected request %+v", got)
	}
	if !got.Items[0].UnitPrice.Equal(decimal.NewFromInt(100)) || got.Items[0].Quantity != 2 {
		t.Errorf("unexpected item %+v", got.Items[0])
	}
}

func TestCheckoutHandlerErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantClass      string
		wantPaymentRef string
	}{
		{
			name:       "validation",
			err:        checkout.NewValidationError(checkout.ReasonMixedCurrency, errors.New("SEK and EUR")),
			wantStatus: http.StatusBadRequest,
			wantClass:  checkout.ClassificationClient,
		},
		{
			name:       "duplicate",
			err:        checkout.NewValidationError(checkout.ReasonDuplicateSubmission, errors.New("dup")),
			wantStatus: http.StatusConflict,
			wantClass:  checkout.ClassificationClient,
		},
		{
			name:       "configuration",
			err:        &checkout.Error{Kind: checkout.KindConfiguration, State: enum.CheckoutStateFailed, Err: checkout.ErrMissingCredentials},
			wantStatus: http.StatusInternalServerError,
			wantClass:  checkout.ClassificationServer,
		},
		{
			name:       "payment",
			err:        &checkout.Error{Kind: checkout.KindPaymentAuthorization, State: enum.CheckoutStateFailed, Err: errors.New("declined")},
			wantStatus: http.StatusBadGateway,
			wantClass:  checkout.ClassificationServer,
		},
		{
			name: "partial",
			err: &checkout.Error{
				Kind: checkout.KindFulfillmentOrder, State: enum.CheckoutStatePartiallyFailed,
				PaymentReference: "pi_123", Err: errors.New("status 500"),
			},
			wantStatus:     http.StatusBadGateway,
			wantClass:      checkout.ClassificationServer,
			wantPaymentRef: "pi_123",
		},
		{
			name: "fulfillment unavailable",
			err: &checkout.Error{
				Kind: checkout.KindFulfillmentOrder, Reason: checkout.ReasonFulfillmentUnavailable,
				State: enum.CheckoutStateFailed, Err: checkout.ErrFulfillmentUnavailable,
			},
			wantStatus: http.StatusServiceUnavailable,
			wantClass:  checkout.ClassificationServer,
		},
		{
			name:       "unclassified",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantClass:  checkout.ClassificationServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{checkoutErr: tt.err, checkoutResult: models.CheckoutResult{CheckoutID: "chk-1"}}
			rec := do(t, newTestRouter(t, svc), http.MethodPost, "/checkout", checkoutBody, nil)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			body := decodeError(t, rec)
			if body.Classification != tt.wantClass || body.PaymentReference != tt.wantPaymentRef {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestCheckoutHandlerBadJSON(t *testing.T) {
	svc := &fakeService{}
	rec := do(t, newTestRouter(t, svc), http.MethodPost, "/checkout", `{"items":`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.checkoutReq.Items != nil {
		t.Error("service must not be called")
	}
}

func TestProductsHandler(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		svc := &fakeService{entries: []models.CatalogEntry{models.NewDegradedEntry("1", "Tee", "", "")}}
		rec := do(t, newTestRouter(t, svc), http.MethodGet, "/products", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var entries []models.CatalogEntry
		if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil || len(entries) != 1 {
			t.Errorf("unexpected body %s (%v)", rec.Body, err)
		}
	})

	t.Run("list failure", func(t *testing.T) {
		svc := &fakeService{listErr: errors.New("index unavailable")}
		if rec := do(t, newTestRouter(t, svc), http.MethodGet, "/products", "", nil); rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeService{productErr: fmt.Errorf("%w: 9", catalog.ErrNotFound)}
		if rec := do(t, newTestRouter(t, svc), http.MethodGet, "/products/9", "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("fetch error", func(t *testing.T) {
		svc := &fakeService{productErr: &catalog.FetchError{ProductID: "9", Err: errors.New("timeout")}}
		if rec := do(t, newTestRouter(t, svc), http.MethodGet, "/products/9", "", nil); rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})
}

func TestCartHandlers(t *testing.T) {
	session := map[string]string{HeaderSessionID: "s1"}

	t.Run("session required", func(t *testing.T) {
		rec := do(t, newTestRouter(t, &fakeService{cart: models.NewCart()}), http.MethodGet, "/cart", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("add item", func(t *testing.T) {
		svc := &fakeService{cart: models.NewCart()}
		rec := do(t, newTestRouter(t, svc), http.MethodPost, "/cart/items",
			`{"productId":"1","variantId":"11","quantity":2,"price":"249.00","currency":"SEK"}`, session)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		var body CartResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body.ItemCount != 2 || !body.TotalPrice.Equal(decimal.NewFromInt(498)) {
			t.Errorf("unexpected cart %+v", body)
		}
	})

	t.Run("invalid item", func(t *testing.T) {
		svc := &fakeService{cart: models.NewCart(), cartErr: fmt.Errorf("%w: quantity", printshop.ErrInvalidCartItem)}
		rec := do(t, newTestRouter(t, svc), http.MethodPost, "/cart/items", `{"productId":"1"}`, session)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing line", func(t *testing.T) {
		svc := &fakeService{cartErr: printshop.ErrCartItemMissing}
		rec := do(t, newTestRouter(t, svc), http.MethodPatch, "/cart/items", `{"productId":"1","variantId":"2","quantity":3}`, session)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("clear", func(t *testing.T) {
		rec := do(t, newTestRouter(t, &fakeService{}), http.MethodDelete, "/cart", "", session)
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})
}

func TestReconciliationHandlers(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{name: "voided", path: "/admin/reconciliations/1/void", wantStatus: http.StatusOK},
		{name: "not found", path: "/admin/reconciliations/1/void", err: reconcile.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "not open", path: "/admin/reconciliations/1/void", err: fmt.Errorf("%w: 1 is voided", reconcile.ErrNotOpen), wantStatus: http.StatusConflict},
		{name: "bad id", path: "/admin/reconciliations/abc/void", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{reconcileErr: tt.err}
			if rec := do(t, newTestRouter(t, svc), http.MethodPost, tt.path, "", nil); rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}

	t.Run("list empty", func(t *testing.T) {
		rec := do(t, newTestRouter(t, &fakeService{}), http.MethodGet, "/admin/reconciliations", "", nil)
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Errorf("expected empty array, got %d %s", rec.Code, rec.Body)
		}
	})

	t.Run("list invalid status", func(t *testing.T) {
		svc := &fakeService{reconcileErr: reconcile.ErrInvalidStatus}
		rec := do(t, newTestRouter(t, svc), http.MethodGet, "/admin/reconciliations?status=bogus", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}
