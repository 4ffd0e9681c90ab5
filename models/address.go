package models

import "strings"

// ShippingAddress 收件地址，深層驗證交由出貨供應商處理
type ShippingAddress struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
}

// MissingFields returns the json names of blank required fields.
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"address1", a.Address1},
		{"city", a.City},
		{"state_code", a.StateCode},
		{"country_code", a.CountryCode},
		{"zip", a.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
