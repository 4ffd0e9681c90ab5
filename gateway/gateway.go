// Package gateway defines the contracts checkout and catalog need from the
// payment and fulfillment providers, plus the request shapes sent to them.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a FulfillmentGateway when a product does not exist.
var ErrNotFound = errors.New("not found")

// PaymentGateway authorizes customer payment.
type PaymentGateway interface {
	Authorize(ctx context.Context, req PaymentRequest) (*PaymentAuthorization, error)
}

// PaymentVoider cancels an authorization that will not be fulfilled.
type PaymentVoider interface {
	Void(ctx context.Context, reference string) error
}

// FulfillmentGateway creates orders and exposes the provider catalog.
type FulfillmentGateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error)
	ListProducts(ctx context.Context) ([]RawProduct, error)
	GetProductDetail(ctx context.Context, id string) (*RawProductDetail, error)
}

// AvailabilityChecker is implemented by gateways that can tell, without a
// network call, that they would reject a request right now.
type AvailabilityChecker interface {
	Available() bool
}

type PaymentRequest struct {
	AmountMinorUnits int64
	Currency         string
	IdempotencyKey   string
	Metadata         map[string]string
}

type PaymentAuthorization struct {
	Reference    string
	ClientSecret string
}

type OrderConfirmation struct {
	OrderID string
}

// RawProduct is one row of the provider's product index.
type RawProduct struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ThumbnailURL   string `json:"thumbnail_url"`
	MainCategoryID int64  `json:"main_category_id"`
}

type RawProductDetail struct {
	Product  RawProduct   `json:"sync_product"`
	Variants []RawVariant `json:"sync_variants"`
}

type RawVariant struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	RetailPrice        decimal.Decimal `json:"retail_price"`
	Currency           string          `json:"currency"`
	Size               string          `json:"size"`
	Color              string          `json:"color"`
	ColorCode          string          `json:"color_code"`
	AvailabilityStatus string          `json:"availability_status"`
	Product            RawCatalogItem  `json:"product"`
}

// InStock reports whether the variant can be ordered. A missing status
// means the provider did not flag it.
func (v RawVariant) InStock() bool {
	switch v.AvailabilityStatus {
	case "", "active":
		return true
	}
	return false
}

// RawCatalogItem is the blank product a sync variant is printed on.
type RawCatalogItem struct {
	Type  string `json:"type"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Name  string `json:"name"`
	Image string `json:"image"`
}
