package models

import (
	"time"

	"goflare.io/printshop/models/enum"
)

// Reconciliation 記錄一筆已授權付款但未建立出貨訂單的結帳
type Reconciliation struct {
	ID               int64                     `json:"id"`
	CheckoutID       string                    `json:"checkout_id"`
	SessionID        string                    `json:"session_id,omitempty"`
	PaymentReference string                    `json:"payment_reference"`
	AmountMinorUnits int64                     `json:"amount_minor_units"`
	Currency         string                    `json:"currency"`
	Reason           string                    `json:"reason"`
	Status           enum.ReconciliationStatus `json:"status"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func (r *Reconciliation) IsOpen() bool {
	return r.Status == enum.ReconciliationStatusOpen
}
