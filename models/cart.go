package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CartLineItem 代表購物車中的單個商品項目
type CartLineItem struct {
	ProductID   string          `json:"productId"`
	VariantID   string          `json:"variantId"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	DisplayName string          `json:"name"`
	ImageURL    string          `json:"imageUrl"`
}

// Subtotal returns unitPrice * quantity.
func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

func (i CartLineItem) sameLine(productID, variantID string) bool {
	return i.ProductID == productID && i.VariantID == variantID
}

// Cart 代表購物車，以 (productId, variantId) 為唯一鍵
type Cart struct {
	items []CartLineItem
}

func NewCart(items ...CartLineItem) *Cart {
	c := new(Cart)
	for _, item := range items {
		c.Add(item)
	}
	return c
}

// Add appends the item, or merges its quantity into an existing line with the same key.
func (c *Cart) Add(item CartLineItem) {
	for i := range c.items {
		if c.items[i].sameLine(item.ProductID, item.VariantID) {
			c.items[i].Quantity += item.Quantity
			return
		}
	}
	c.items = append(c.items, item)
}

// UpdateQuantity sets the quantity of a line; a quantity <= 0 removes it.
// It reports whether the line exists.
func (c *Cart) UpdateQuantity(productID, variantID string, quantity int64) bool {
	for i := range c.items {
		if !c.items[i].sameLine(productID, variantID) {
			continue
		}
		if quantity <= 0 {
			c.Remove(productID, variantID)
		} else {
			c.items[i].Quantity = quantity
		}
		return true
	}
	return false
}

func (c *Cart) Remove(productID, variantID string) {
	kept := c.items[:0]
	for _, item := range c.items {
		if !item.sameLine(productID, variantID) {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []CartLineItem {
	out := make([]CartLineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) ItemCount() int64 {
	var total int64
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// MarshalJSON encodes the cart as a plain array of line items.
func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Items())
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var items []CartLineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	c.items = nil
	for _, item := range items {
		c.Add(item)
	}
	return nil
}
