package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	printshop "goflare.io/printshop"
	"goflare.io/printshop/catalog"
	"goflare.io/printshop/checkout"
	"goflare.io/printshop/models"
	"goflare.io/printshop/models/enum"
	"goflare.io/printshop/reconcile"
)

const (
	HeaderSessionID      = "X-Session-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	maxBodyBytes = 1 << 20
)

// Handler serves the storefront HTTP entry points.
type Handler struct {
	svc    printshop.Service
	logger *zap.Logger
}

func NewHandler(svc printshop.Service, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// ListProducts returns the complete catalog snapshot.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		writeError(w, http.StatusBadGateway, ErrorResponse{
			Error:          "catalog_unavailable",
			Message:        err.Error(),
			Classification: checkout.ClassificationServer,
		})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entry, err := h.svc.GetProduct(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrorResponse{
			Error:          "product_not_found",
			Message:        err.Error(),
			Classification: checkout.ClassificationClient,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrorResponse{
			Error:          "catalog_unavailable",
			Message:        err.Error(),
			Classification: checkout.ClassificationServer,
		})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Checkout(r.Context(), checkout.Request{
		SessionID:      r.Header.Get(HeaderSessionID),
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		Items:          req.Items,
		Shipping:       req.Shipping,
	})
	if err != nil {
		writeCheckoutError(w, result, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{
		Success:                   result.Success,
		CheckoutID:                result.CheckoutID,
		OrderID:                   result.OrderID,
		PaymentReference:          result.PaymentReference,
		PaymentIntentClientSecret: result.ClientSecret,
	})
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	cartModel, err := h.svc.GetCart(r.Context(), sessionID)
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cartModel))
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var item models.CartLineItem
	if !decodeJSON(w, r, &item) {
		return
	}

	cartModel, err := h.svc.AddCartItem(r.Context(), sessionID, item)
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cartModel))
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cartModel, err := h.svc.UpdateCartItem(r.Context(), sessionID, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cartModel))
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	cartModel, err := h.svc.RemoveCartItem(r.Context(), sessionID, chi.URLParam(r, "productID"), chi.URLParam(r, "variantID"))
	if err != nil {
		writeCartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(cartModel))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := h.svc.ClearCart(r.Context(), sessionID); err != nil {
		writeInternal(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	status := enum.ReconciliationStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.svc.ListReconciliations(r.Context(), status, limit)
	if err != nil {
		writeReconcileError(w, err)
		return
	}
	if records == nil {
		records = []*models.Reconciliation{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) VoidReconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := reconciliationID(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.VoidReconciliation(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to void reconciliation", zap.Int64("id", id), zap.Error(err))
		writeReconcileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ResolveReconciliation(w http.ResponseWriter, r *http.Request) {
	id, ok := reconciliationID(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.ResolveReconciliation(r.Context(), id)
	if err != nil {
		writeReconcileError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func checkoutStatus(checkoutErr *checkout.Error) int {
	switch checkoutErr.Kind {
	case checkout.KindValidation:
		if checkoutErr.Reason == checkout.ReasonDuplicateSubmission {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case checkout.KindPaymentAuthorization, checkout.KindFulfillmentOrder:
		if checkoutErr.Reason == checkout.ReasonFulfillmentUnavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeCheckoutError(w http.ResponseWriter, result models.CheckoutResult, err error) {
	checkoutErr, ok := checkout.AsError(err)
	if !ok {
		writeInternal(w, err)
		return
	}

	code := "checkout_failed"
	switch checkoutErr.Kind {
	case checkout.KindValidation:
		code = "invalid_cart"
	case checkout.KindConfiguration:
		code = "server_configuration_error"
	case checkout.KindFulfillmentOrder:
		code = "checkout_partially_failed"
		if checkoutErr.State != enum.CheckoutStatePartiallyFailed {
			code = "fulfillment_unavailable"
		}
	}

	writeError(w, checkoutStatus(checkoutErr), ErrorResponse{
		Error:            code,
		Message:          checkoutErr.Error(),
		Classification:   checkoutErr.Kind.Classification(),
		Kind:             string(checkoutErr.Kind),
		Reason:           string(checkoutErr.Reason),
		State:            string(checkoutErr.State),
		CheckoutID:       result.CheckoutID,
		PaymentReference: checkoutErr.PaymentReference,
	})
}

func writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, printshop.ErrInvalidCartItem):
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid_cart_item", Message: err.Error(), Classification: checkout.ClassificationClient,
		})
	case errors.Is(err, printshop.ErrCartItemMissing):
		writeError(w, http.StatusNotFound, ErrorResponse{
			Error: "cart_item_not_found", Message: err.Error(), Classification: checkout.ClassificationClient,
		})
	default:
		writeInternal(w, err)
	}
}

func writeReconcileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconcile.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrorResponse{
			Error: "reconciliation_not_found", Message: err.Error(), Classification: checkout.ClassificationClient,
		})
	case errors.Is(err, reconcile.ErrNotOpen):
		writeError(w, http.StatusConflict, ErrorResponse{
			Error: "reconciliation_not_open", Message: err.Error(), Classification: checkout.ClassificationClient,
		})
	case errors.Is(err, reconcile.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid_status", Message: err.Error(), Classification: checkout.ClassificationClient,
		})
	default:
		writeInternal(w, err)
	}
}

func writeInternal(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, ErrorResponse{
		Error:          "internal_error",
		Message:        err.Error(),
		Classification: checkout.ClassificationServer,
	})
}

func requireSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:          "session_required",
			Message:        HeaderSessionID + " header is required",
			Classification: checkout.ClassificationClient,
		})
		return "", false
	}
	return sessionID, true
}

func reconciliationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:          "invalid_id",
			Classification: checkout.ClassificationClient,
		})
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{
			Error:          "invalid_json",
			Message:        err.Error(),
			Classification: checkout.ClassificationClient,
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
