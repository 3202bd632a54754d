package domain

import "time"

type TransactionStatus string

const (
	StatusPending  TransactionStatus = "PENDING"
	StatusApproved TransactionStatus = "APPROVED"
	StatusDeclined TransactionStatus = "DECLINED"
	StatusError    TransactionStatus = "ERROR"
)

// IsTerminal reports whether a status can no longer change.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusDeclined, StatusError:
		return true
	}
	return false
}

// Transaction records one payment attempt. The reference is minted
// locally before any external call and doubles as the idempotency key
// presented to the gateway. Status moves from PENDING to exactly one
// terminal value and is never revisited.
type Transaction struct {
	ID                 string
	Reference          string
	Status             TransactionStatus
	AmountInCents      int
	Currency           string
	Quantity           int
	ProductID          string
	CustomerID         string
	DeliveryID         string
	WompiTransactionID string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
