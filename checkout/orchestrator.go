// Package checkout turns a submitted cart into a payment authorization and a
// fulfillment order, and reports the inconsistent state when only the
// payment succeeds.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goflare.io/printshop/cart"
	"goflare.io/printshop/gateway"
	"goflare.io/printshop/metrics"
	"goflare.io/printshop/models"
	"goflare.io/printshop/models/enum"
)

const (
	MetadataOrderType  = "order_type"
	MetadataCheckoutID = "checkout_id"
	OrderTypePrintful  = "printful_order"

	// reportTimeout bounds the partial-failure report, which must outlive
	// the caller's request.
	reportTimeout = 10 * time.Second
)

var (
	ErrMissingOrderID         = errors.New("fulfillment response has no order id")
	ErrFulfillmentUnavailable = errors.New("fulfillment provider is unavailable")
)

// CartClearer receives the clear-cart command after a successful checkout.
type CartClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// PartialFailureReporter receives checkouts whose payment was authorized but
// whose fulfillment order was not created.
type PartialFailureReporter interface {
	ReportPartialFailure(ctx context.Context, failure PartialFailure) error
}

type PartialFailure struct {
	CheckoutID       string
	SessionID        string
	PaymentReference string
	AmountMinorUnits int64
	Currency         string
	Reason           string
	OccurredAt       time.Time
}

// Request is an immutable snapshot of one checkout submission.
type Request struct {
	SessionID      string
	IdempotencyKey string
	Items          []models.CartLineItem
	Shipping       models.ShippingAddress
}

type Option func(*Orchestrator)

func WithCartClearer(c CartClearer) Option {
	return func(o *Orchestrator) {
		o.carts = c
	}
}

func WithReporter(r PartialFailureReporter) Option {
	return func(o *Orchestrator) {
		o.reporter = r
	}
}

// WithCallTimeout bounds each gateway call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.callTimeout = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

type Orchestrator struct {
	credentials Credentials
	payment     gateway.PaymentGateway
	fulfillment gateway.FulfillmentGateway
	carts       CartClearer
	reporter    PartialFailureReporter
	callTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewOrchestrator(
	credentials Credentials,
	payment gateway.PaymentGateway,
	fulfillment gateway.FulfillmentGateway,
	logger *zap.Logger,
	opts ...Option) *Orchestrator {
	o := &Orchestrator{
		credentials: credentials,
		payment:     payment,
		fulfillment: fulfillment,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Checkout runs validation, payment authorization and fulfillment order
// creation in that order, one attempt each. The returned result always
// reflects the terminal state; the error is a *Error unless the state is
// Succeeded.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (models.CheckoutResult, error) {
	checkoutID := uuid.NewString()
	logger := o.logger.With(zap.String("checkout_id", checkoutID))

	// 1. 驗證購物車，失敗時不呼叫任何外部服務
	logger.Debug("Checkout state", zap.Stringer("state", enum.CheckoutStateValidating))
	valid, err := cart.Validate(req.Items)
	if err != nil {
		return o.finish(logger, checkoutID, NewValidationError(validationReason(err), err))
	}

	if missing := req.Shipping.MissingFields(); len(missing) > 0 {
		err = fmt.Errorf("shipping address is missing %s", strings.Join(missing, ", "))
		return o.finish(logger, checkoutID, NewValidationError(ReasonMissingShipping, err))
	}

	orderReq, err := gateway.NewOrderRequest(valid.Items(), req.Shipping)
	if err != nil {
		return o.finish(logger, checkoutID, NewValidationError(validationReason(err), err))
	}

	if err = o.credentials.Check(); err != nil {
		return o.finish(logger, checkoutID, &Error{
			Kind:  KindConfiguration,
			State: enum.CheckoutStateFailed,
			Err:   err,
		})
	}

	// 出貨服務暫停時不授權付款，以免產生部分失敗
	if checker, ok := o.fulfillment.(gateway.AvailabilityChecker); ok && !checker.Available() {
		return o.finish(logger, checkoutID, &Error{
			Kind:   KindFulfillmentOrder,
			Reason: ReasonFulfillmentUnavailable,
			State:  enum.CheckoutStateFailed,
			Err:    ErrFulfillmentUnavailable,
		})
	}

	// 2. 建立付款授權
	amount, currency := cart.ComputeTotal(valid)
	logger.Info("Checkout state",
		zap.Stringer("state", enum.CheckoutStateAuthorizingPayment),
		zap.Int64("amount", amount),
		zap.String("currency", currency))

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = checkoutID
	}

	auth, err := o.authorize(ctx, gateway.PaymentRequest{
		AmountMinorUnits: amount,
		Currency:         currency,
		IdempotencyKey:   idempotencyKey,
		Metadata: map[string]string{
			MetadataOrderType:  OrderTypePrintful,
			MetadataCheckoutID: checkoutID,
		},
	})
	if err != nil {
		return o.finish(logger, checkoutID, &Error{
			Kind:  KindPaymentAuthorization,
			State: enum.CheckoutStateFailed,
			Err:   err,
		})
	}

	// 3. 建立出貨訂單；此後任何失敗都代表付款已授權
	logger.Info("Checkout state",
		zap.Stringer("state", enum.CheckoutStateCreatingFulfillmentOrder),
		zap.String("payment_reference", auth.Reference))

	confirmation, err := o.createOrder(ctx, orderReq)
	if err != nil {
		o.report(ctx, logger, PartialFailure{
			CheckoutID:       checkoutID,
			SessionID:        req.SessionID,
			PaymentReference: auth.Reference,
			AmountMinorUnits: amount,
			Currency:         currency,
			Reason:           err.Error(),
			OccurredAt:       o.now(),
		})
		return o.finish(logger, checkoutID, &Error{
			Kind:             KindFulfillmentOrder,
			State:            enum.CheckoutStatePartiallyFailed,
			PaymentReference: auth.Reference,
			Err:              err,
		})
	}

	// 4. 成功：發出清空購物車指令
	switch {
	case o.carts == nil:
	case req.SessionID == "":
		logger.Debug("Checkout has no session, cart not cleared")
	default:
		if err = o.carts.Clear(ctx, req.SessionID); err != nil {
			logger.Warn("Failed to clear cart after checkout", zap.String("session_id", req.SessionID), zap.Error(err))
		}
	}

	o.metrics.ObserveCheckout(enum.CheckoutStateSucceeded.String())
	logger.Info("Checkout succeeded",
		zap.String("order_id", confirmation.OrderID),
		zap.String("payment_reference", auth.Reference))

	return models.CheckoutResult{
		Success:          true,
		State:            enum.CheckoutStateSucceeded,
		CheckoutID:       checkoutID,
		OrderID:          confirmation.OrderID,
		PaymentReference: auth.Reference,
		ClientSecret:     auth.ClientSecret,
	}, nil
}

func (o *Orchestrator) authorize(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentAuthorization, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	auth, err := o.payment.Authorize(callCtx, req)
	if err != nil {
		return nil, err
	}
	if auth == nil || auth.Reference == "" {
		return nil, errors.New("payment provider returned no authorization reference")
	}
	return auth, nil
}

func (o *Orchestrator) createOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderConfirmation, error) {
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	confirmation, err := o.fulfillment.CreateOrder(callCtx, req)
	if err != nil {
		return nil, err
	}
	if confirmation == nil || confirmation.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	return confirmation, nil
}

func (o *Orchestrator) report(ctx context.Context, logger *zap.Logger, failure PartialFailure) {
	logger.Error("Payment authorized but fulfillment order failed",
		zap.String("payment_reference", failure.PaymentReference),
		zap.Int64("amount", failure.AmountMinorUnits),
		zap.String("currency", failure.Currency),
		zap.String("reason", failure.Reason))

	if o.reporter == nil {
		return
	}
	// 呼叫端可能已斷線或逾時，回報不能跟著取消
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	// 回報失敗時付款參考仍會回傳給呼叫者
	if err := o.reporter.ReportPartialFailure(reportCtx, failure); err != nil {
		logger.Error("Failed to report partial failure",
			zap.String("payment_reference", failure.PaymentReference),
			zap.Error(err))
	}
}

func (o *Orchestrator) finish(logger *zap.Logger, checkoutID string, checkoutErr *Error) (models.CheckoutResult, error) {
	o.metrics.ObserveCheckout(checkoutErr.State.String())

	fields := []zap.Field{
		zap.Stringer("state", checkoutErr.State),
		zap.String("kind", string(checkoutErr.Kind)),
		zap.Error(checkoutErr),
	}
	if checkoutErr.Kind == KindValidation {
		logger.Info("Checkout rejected", fields...)
	} else {
		logger.Error("Checkout failed", fields...)
	}

	return models.CheckoutResult{
		Success:          false,
		State:            checkoutErr.State,
		CheckoutID:       checkoutID,
		PaymentReference: checkoutErr.PaymentReference,
		FailureReason:    checkoutErr.Error(),
	}, checkoutErr
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.callTimeout)
}
