package checkout

import (
	"errors"
	"fmt"
	"strings"

	"goflare.io/printshop/cart"
	"goflare.io/printshop/gateway"
	"goflare.io/printshop/models/enum"
)

// Kind classifies why a checkout did not succeed.
type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindConfiguration        Kind = "ConfigurationError"
	KindPaymentAuthorization Kind = "PaymentAuthorizationError"
	// KindFulfillmentOrder means payment was already authorized, unless the
	// reason is FulfillmentUnavailable.
	KindFulfillmentOrder Kind = "FulfillmentOrderError"
)

const (
	ClassificationClient = "client-error"
	ClassificationServer = "server-error"
)

func (k Kind) Classification() string {
	if k == KindValidation {
		return ClassificationClient
	}
	return ClassificationServer
}

// Reason narrows a failure.
type Reason string

const (
	ReasonEmptyCart           Reason = "EmptyCart"
	ReasonMixedCurrency       Reason = "MixedCurrency"
	ReasonInvalidQuantity     Reason = "InvalidQuantity"
	ReasonInvalidPrice        Reason = "InvalidPrice"
	ReasonInvalidVariant      Reason = "InvalidVariant"
	ReasonMissingShipping     Reason = "MissingShipping"
	ReasonDuplicateSubmission Reason = "DuplicateSubmission"

	ReasonFulfillmentUnavailable Reason = "FulfillmentUnavailable"
)

// Error is the failure of one checkout run.
type Error struct {
	Kind             Kind
	Reason           Reason
	State            enum.CheckoutState
	PaymentReference string
	Err              error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	if e.PaymentReference != "" {
		fmt.Fprintf(&b, " [payment %s]", e.PaymentReference)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a checkout *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var checkoutErr *Error
	if errors.As(err, &checkoutErr) {
		return checkoutErr, true
	}
	return nil, false
}

// NewValidationError builds a terminal client-side failure.
func NewValidationError(reason Reason, err error) *Error {
	return &Error{
		Kind:   KindValidation,
		Reason: reason,
		State:  enum.CheckoutStateFailed,
		Err:    err,
	}
}

func validationReason(err error) Reason {
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		return ReasonEmptyCart
	case errors.Is(err, cart.ErrMixedCurrency):
		return ReasonMixedCurrency
	case errors.Is(err, cart.ErrInvalidQuantity):
		return ReasonInvalidQuantity
	case errors.Is(err, cart.ErrInvalidPrice):
		return ReasonInvalidPrice
	case errors.Is(err, gateway.ErrInvalidVariant):
		return ReasonInvalidVariant
	}
	return ""
}
