package gateway

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"goflare.io/printshop/models"
)

var ErrInvalidVariant = errors.New("variant id is not a provider identifier")

// OrderRequest is the fulfillment provider's order shape.
type OrderRequest struct {
	Recipient OrderRecipient `json:"recipient"`
	Items     []OrderItem    `json:"items"`
}

type OrderRecipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}

type OrderItem struct {
	VariantID int64  `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
	Name      string `json:"name"`
}

// NewOrderRequest maps cart lines and a shipping address to the provider
// order shape. Variant ids must parse as provider-native integers.
func NewOrderRequest(items []models.CartLineItem, shipping models.ShippingAddress) (OrderRequest, error) {
	req := OrderRequest{
		Recipient: OrderRecipient{
			Name:        shipping.Name,
			Address1:    shipping.Address1,
			City:        shipping.City,
			StateCode:   shipping.StateCode,
			CountryCode: shipping.CountryCode,
			Zip:         shipping.Zip,
		},
		Items: make([]OrderItem, 0, len(items)),
	}

	for _, item := range items {
		variantID, err := strconv.ParseInt(strings.TrimSpace(item.VariantID), 10, 64)
		if err != nil {
			return OrderRequest{}, fmt.Errorf("%w: %q", ErrInvalidVariant, item.VariantID)
		}
		req.Items = append(req.Items, OrderItem{
			VariantID: variantID,
			Quantity:  item.Quantity,
			Name:      item.DisplayName,
		})
	}

	return req, nil
}
