package domain

import (
	"encoding/json"
	"time"
)

const (
	EventPaymentFinalized = "PaymentFinalized"

	TopicPaymentFinalized = "payment.finalized"
)

// Envelope is the versioned wrapper for every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// PaymentFinalizedPayload is published once per transaction, after its
// terminal status has been written.
type PaymentFinalizedPayload struct {
	TransactionID string `json:"transaction_id"`
	Reference     string `json:"reference"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	AmountInCents int    `json:"amount_in_cents"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	WompiStatus   string `json:"wompi_status,omitempty"`
}

// PartitionKey keeps all events for one transaction on one partition.
func PartitionKey(transactionID string) []byte { return []byte(transactionID) }
