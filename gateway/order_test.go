package gateway

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"goflare.io/printshop/models"
)

var shipping = models.ShippingAddress{
	Name:        "Ada Lovelace",
	Address1:    "Drottninggatan 1",
	City:        "Stockholm",
	StateCode:   "AB",
	CountryCode: "SE",
	Zip:         "11151",
}

func TestNewOrderRequest(t *testing.T) {
	items := []models.CartLineItem{
		{ProductID: "382588001", VariantID: "4012", Quantity: 2, UnitPrice: decimal.NewFromInt(249), Currency: "SEK", DisplayName: "Tee / M"},
		{ProductID: "382588002", VariantID: " 5020 ", Quantity: 1, UnitPrice: decimal.NewFromInt(499), Currency: "SEK", DisplayName: "Hoodie / L"},
	}

	req, err := NewOrderRequest(items, shipping)
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"recipient":{"name":"Ada Lovelace","address1":"Drottninggatan 1","city":"Stockholm","state_code":"AB","country_code":"SE","zip":"11151"},` +
		`"items":[{"variant_id":4012,"quantity":2,"name":"Tee / M"},{"variant_id":5020,"quantity":1,"name":"Hoodie / L"}]}`
	if string(data) != want {
		t.Errorf("unexpected body\n got: %s\nwant: %s", data, want)
	}
}

func TestNewOrderRequestInvalidVariant(t *testing.T) {
	items := []models.CartLineItem{{ProductID: "1", VariantID: "tee-m", Quantity: 1, Currency: "SEK"}}

	if _, err := NewOrderRequest(items, shipping); !errors.Is(err, ErrInvalidVariant) {
		t.Errorf("expected ErrInvalidVariant, got %v", err)
	}
}
