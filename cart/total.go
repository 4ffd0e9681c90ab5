package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	"goflare.io/printshop/models"
)

var hundred = decimal.NewFromInt(100)

// MinorUnits converts one line to the payment provider's minor units:
// round(unitPrice * quantity * 100).
func MinorUnits(item models.CartLineItem) int64 {
	return item.Subtotal().Mul(hundred).Round(0).IntPart()
}

// ComputeTotal returns the charge amount in minor units, rounded per line,
// and the lower-cased currency code.
func ComputeTotal(c NonEmptyCart) (int64, string) {
	var amount int64
	for _, item := range c.items {
		amount += MinorUnits(item)
	}
	return amount, strings.ToLower(c.currency)
}
