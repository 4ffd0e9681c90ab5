// Package payment implements the payment gateway on Stripe PaymentIntents.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"go.uber.org/zap"

	"goflare.io/printshop/gateway"
)

const cardPaymentMethod = "card"

var (
	_ gateway.PaymentGateway = (*Gateway)(nil)
	_ gateway.PaymentVoider  = (*Gateway)(nil)
)

type Options struct {
	SecretKey string
	// BaseURL overrides the Stripe API endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Gateway authorizes payments by creating PaymentIntents.
type Gateway struct {
	intents paymentintent.Client
	logger  *zap.Logger
}

// NewGateway builds a Stripe backend with network retries disabled: a
// repeated authorization is never issued on the caller's behalf.
func NewGateway(opts Options, logger *zap.Logger) *Gateway {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if opts.BaseURL != "" {
		cfg.URL = stripe.String(opts.BaseURL)
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	return &Gateway{
		intents: paymentintent.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
			Key: opts.SecretKey,
		},
		logger: logger,
	}
}

func (g *Gateway) Authorize(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentAuthorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinorUnits),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{cardPaymentMethod}),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		g.logStripeError("Failed to create PaymentIntent", err)
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	g.logger.Info("PaymentIntent created",
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", req.AmountMinorUnits),
		zap.String("currency", req.Currency))

	return &gateway.PaymentAuthorization{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// Void cancels an uncaptured PaymentIntent. An intent that is already
// cancelled counts as voided, so a void can be repeated after the ledger
// update that followed it was lost.
func (g *Gateway) Void(ctx context.Context, reference string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx

	if _, err := g.intents.Cancel(reference, params); err != nil {
		if g.alreadyCancelled(ctx, reference, err) {
			g.logger.Info("PaymentIntent already cancelled", zap.String("payment_intent_id", reference))
			return nil
		}
		g.logStripeError("Failed to cancel PaymentIntent", err)
		return fmt.Errorf("failed to cancel payment intent %s: %w", reference, err)
	}

	g.logger.Info("PaymentIntent cancelled", zap.String("payment_intent_id", reference))
	return nil
}

func (g *Gateway) alreadyCancelled(ctx context.Context, reference string, err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Code != stripe.ErrorCodePaymentIntentUnexpectedState {
		return false
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, getErr := g.intents.Get(reference, params)
	if getErr != nil {
		g.logStripeError("Failed to fetch PaymentIntent", getErr)
		return false
	}
	return intent.Status == stripe.PaymentIntentStatusCanceled
}

func (g *Gateway) logStripeError(msg string, err error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		g.logger.Error(msg,
			zap.String("type", string(stripeErr.Type)),
			zap.String("code", string(stripeErr.Code)),
			zap.Int("http_status", stripeErr.HTTPStatusCode),
			zap.String("request_id", stripeErr.RequestID),
			zap.Error(err))
		return
	}
	g.logger.Error(msg, zap.Error(err))
}
