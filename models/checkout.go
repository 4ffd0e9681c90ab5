package models

import "goflare.io/printshop/models/enum"

// CheckoutResult 一次結帳流程的最終結果
type CheckoutResult struct {
	Success          bool               `json:"success"`
	State            enum.CheckoutState `json:"state"`
	CheckoutID       string             `json:"checkoutId"`
	OrderID          string             `json:"orderId,omitempty"`
	PaymentReference string             `json:"paymentReference,omitempty"`
	ClientSecret     string             `json:"paymentIntentClientSecret,omitempty"`
	FailureReason    string             `json:"failureReason,omitempty"`
}
