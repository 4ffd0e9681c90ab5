package enum

// ReconciliationStatus 表示部分失敗結帳的對帳狀態
type ReconciliationStatus string

const (
	ReconciliationStatusOpen     ReconciliationStatus = "open"
	ReconciliationStatusVoided   ReconciliationStatus = "voided"
	ReconciliationStatusResolved ReconciliationStatus = "resolved"
)

func (s ReconciliationStatus) Valid() bool {
	switch s {
	case ReconciliationStatusOpen, ReconciliationStatusVoided, ReconciliationStatusResolved:
		return true
	}
	return false
}
