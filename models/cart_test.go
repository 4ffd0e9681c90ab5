package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func lineItem(productID, variantID string, quantity int64, price string) CartLineItem {
	return CartLineItem{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString(price),
		Currency:  "SEK",
	}
}

func TestCartAddMergesSameLine(t *testing.T) {
	c := NewCart()
	c.Add(lineItem("p1", "v1", 1, "100.00"))
	c.Add(lineItem("p1", "v2", 1, "100.00"))
	c.Add(lineItem("p1", "v1", 2, "100.00"))

	if c.Len() != 2 {
		t.Fatalf("expected 2 lines, got %d", c.Len())
	}
	items := c.Items()
	if items[0].VariantID != "v1" || items[0].Quantity != 3 {
		t.Errorf("expected v1 x3 first, got %s x%d", items[0].VariantID, items[0].Quantity)
	}
	if c.ItemCount() != 4 {
		t.Errorf("expected item count 4, got %d", c.ItemCount())
	}
	if !c.TotalPrice().Equal(decimal.RequireFromString("400")) {
		t.Errorf("expected total 400, got %s", c.TotalPrice())
	}
}

func TestCartUpdateQuantity(t *testing.T) {
	t.Run("sets quantity", func(t *testing.T) {
		c := NewCart(lineItem("p1", "v1", 1, "10"))
		if !c.UpdateQuantity("p1", "v1", 5) {
			t.Fatal("expected line to exist")
		}
		if got := c.Items()[0].Quantity; got != 5 {
			t.Errorf("expected quantity 5, got %d", got)
		}
	})

	t.Run("zero removes line", func(t *testing.T) {
		c := NewCart(lineItem("p1", "v1", 1, "10"), lineItem("p2", "v1", 1, "10"))
		if !c.UpdateQuantity("p1", "v1", 0) {
			t.Fatal("expected line to exist")
		}
		if c.Len() != 1 || c.Items()[0].ProductID != "p2" {
			t.Errorf("expected only p2 left, got %+v", c.Items())
		}
	})

	t.Run("unknown line", func(t *testing.T) {
		c := NewCart(lineItem("p1", "v1", 1, "10"))
		if c.UpdateQuantity("p9", "v1", 2) {
			t.Error("expected unknown line to be reported")
		}
	})
}

func TestCartItemsIsCopy(t *testing.T) {
	c := NewCart(lineItem("p1", "v1", 1, "10"))
	items := c.Items()
	items[0].Quantity = 99

	if c.Items()[0].Quantity != 1 {
		t.Error("mutating Items() result changed the cart")
	}
}

func TestCartJSON(t *testing.T) {
	c := NewCart(lineItem("p1", "v1", 2, "249.50"))

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if data[0] != '[' {
		t.Errorf("expected a JSON array, got %s", data)
	}

	// 重複的項目在讀回時合併
	restored := NewCart()
	if err = json.Unmarshal([]byte(`[
		{"productId":"p1","variantId":"v1","quantity":1,"price":"10","currency":"SEK"},
		{"productId":"p1","variantId":"v1","quantity":2,"price":"10","currency":"SEK"}
	]`), restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Len() != 1 || restored.ItemCount() != 3 {
		t.Errorf("expected one merged line of 3, got %+v", restored.Items())
	}
}

func TestShippingAddressMissingFields(t *testing.T) {
	addr := ShippingAddress{Name: "Ada", Address1: "Main St 1", City: " ", CountryCode: "SE", Zip: "11122"}

	missing := addr.MissingFields()
	if len(missing) != 2 || missing[0] != "city" || missing[1] != "state_code" {
		t.Errorf("expected [city state_code], got %v", missing)
	}
}

func TestNewAvailableEntryWithoutVariantsDegrades(t *testing.T) {
	entry := NewAvailableEntry("42", "Tee", "T-SHIRT", "desc", decimal.NewFromInt(199), "EUR", nil)

	if entry.IsAvailable {
		t.Error("expected entry to be unavailable")
	}
	if !entry.Price.IsZero() || entry.Currency != DefaultCurrency {
		t.Errorf("expected 0 %s, got %s %s", DefaultCurrency, entry.Price, entry.Currency)
	}
	if entry.Variants == nil || len(entry.Variants) != 0 {
		t.Errorf("expected empty variant list, got %v", entry.Variants)
	}
	if entry.ImageURLs[0] != "/images/products/42/front.png" || entry.ImageURLs[1] != "/images/products/42/back.png" {
		t.Errorf("unexpected image urls %v", entry.ImageURLs)
	}
}
