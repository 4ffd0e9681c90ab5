package api

import (
	"github.com/shopspring/decimal"

	"goflare.io/printshop/models"
)

type CheckoutRequest struct {
	Items    []models.CartLineItem  `json:"items"`
	Shipping models.ShippingAddress `json:"shipping"`
}

type CheckoutResponse struct {
	Success                   bool   `json:"success"`
	CheckoutID                string `json:"checkoutId"`
	OrderID                   string `json:"orderId"`
	PaymentReference          string `json:"paymentReference"`
	PaymentIntentClientSecret string `json:"paymentIntentClientSecret,omitempty"`
}

type CartResponse struct {
	Items      []models.CartLineItem `json:"items"`
	ItemCount  int64                 `json:"itemCount"`
	TotalPrice decimal.Decimal       `json:"totalPrice"`
}

type UpdateCartItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId"`
	Quantity  int64  `json:"quantity"`
}

type ErrorResponse struct {
	Error            string `json:"error"`
	Message          string `json:"message,omitempty"`
	Classification   string `json:"classification"`
	Kind             string `json:"kind,omitempty"`
	Reason           string `json:"reason,omitempty"`
	State            string `json:"state,omitempty"`
	CheckoutID       string `json:"checkoutId,omitempty"`
	PaymentReference string `json:"paymentReference,omitempty"`
}

func newCartResponse(c *models.Cart) CartResponse {
	return CartResponse{
		Items:      c.Items(),
		ItemCount:  c.ItemCount(),
		TotalPrice: c.TotalPrice(),
	}
}
