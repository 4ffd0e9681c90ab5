package enum

// CheckoutState 表示一次結帳流程的狀態
type CheckoutState string

const (
	CheckoutStateValidating               CheckoutState = "validating"
	CheckoutStateAuthorizingPayment       CheckoutState = "authorizing_payment"
	CheckoutStateCreatingFulfillmentOrder CheckoutState = "creating_fulfillment_order"
	CheckoutStateSucceeded                CheckoutState = "succeeded"        // 付款授權與訂單皆成功
	CheckoutStatePartiallyFailed          CheckoutState = "partially_failed" // 已授權付款，但訂單建立失敗
	CheckoutStateFailed                   CheckoutState = "failed"           // 未產生任何付款
)

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateSucceeded || s == CheckoutStatePartiallyFailed || s == CheckoutStateFailed
}

func (s CheckoutState) String() string {
	return string(s)
}
