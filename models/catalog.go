package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for entries without a purchasable variant.
const DefaultCurrency = "SEK"

const unknownType = "Unknown"

// Variant 商品的可購買款式
type Variant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	ColorCode string `json:"colorCode,omitempty"`
	InStock   bool   `json:"inStock"`
}

// CatalogEntry 是正規化後可直接顯示的商品資料
type CatalogEntry struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ImageURLs   []string        `json:"imageUrls"`
	Type        string          `json:"type"`
	VariantID   string          `json:"variantId"`
	Variants    []Variant       `json:"variants"`
	IsAvailable bool            `json:"isAvailable"`
	Brand       string          `json:"brand,omitempty"`
	Model       string          `json:"model,omitempty"`
	Description string          `json:"description"`
}

// ProductImageURLs returns the front and back image paths of a product.
func ProductImageURLs(productID string) []string {
	return []string{
		fmt.Sprintf("/images/products/%s/front.png", productID),
		fmt.Sprintf("/images/products/%s/back.png", productID),
	}
}

// NewDegradedEntry builds the entry for a product with no purchasable variant:
// unavailable, zero price in the default currency, no variants, identity and
// images still populated.
func NewDegradedEntry(id, name, productType, description string) CatalogEntry {
	if productType == "" {
		productType = unknownType
	}
	return CatalogEntry{
		ID:          id,
		Name:        name,
		Price:       decimal.Zero,
		Currency:    DefaultCurrency,
		ImageURLs:   ProductImageURLs(id),
		Type:        productType,
		Variants:    []Variant{},
		IsAvailable: false,
		Description: description,
	}
}

// NewAvailableEntry builds the entry for a product with at least one variant.
// The first variant is the representative one for price and list display.
func NewAvailableEntry(id, name, productType, description string, price decimal.Decimal, currency string, variants []Variant) CatalogEntry {
	if len(variants) == 0 {
		return NewDegradedEntry(id, name, productType, description)
	}
	if productType == "" {
		productType = unknownType
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	return CatalogEntry{
		ID:          id,
		Name:        name,
		Price:       price,
		Currency:    currency,
		ImageURLs:   ProductImageURLs(id),
		Type:        productType,
		VariantID:   variants[0].ID,
		Variants:    variants,
		IsAvailable: true,
		Description: description,
	}
}
