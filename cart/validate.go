package cart

import (
	"errors"
	"fmt"
	"strings"

	"goflare.io/printshop/models"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMixedCurrency   = errors.New("cart mixes currencies")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
)

// NonEmptyCart is a validated snapshot: at least one line, one currency,
// positive quantities.
type NonEmptyCart struct {
	items    []models.CartLineItem
	currency string
}

func (c NonEmptyCart) Items() []models.CartLineItem {
	out := make([]models.CartLineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Currency is the shared currency code as declared by the line items.
func (c NonEmptyCart) Currency() string {
	return c.currency
}

// Validate checks a cart snapshot. Currency codes are compared case-insensitively.
func Validate(items []models.CartLineItem) (NonEmptyCart, error) {
	if len(items) == 0 {
		return NonEmptyCart{}, ErrEmptyCart
	}

	currency := items[0].Currency
	for _, item := range items[1:] {
		if !strings.EqualFold(item.Currency, currency) {
			return NonEmptyCart{}, fmt.Errorf("%w: %s and %s", ErrMixedCurrency, currency, item.Currency)
		}
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return NonEmptyCart{}, fmt.Errorf("%w: product %s variant %s has quantity %d",
				ErrInvalidQuantity, item.ProductID, item.VariantID, item.Quantity)
		}
		if item.UnitPrice.IsNegative() {
			return NonEmptyCart{}, fmt.Errorf("%w: product %s variant %s", ErrInvalidPrice, item.ProductID, item.VariantID)
		}
	}

	snapshot := make([]models.CartLineItem, len(items))
	copy(snapshot, items)

	return NonEmptyCart{items: snapshot, currency: currency}, nil
}
