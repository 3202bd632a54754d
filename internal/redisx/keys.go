package redisx

import "time"

const (
	// Terminal payment status cache: payment_status:{transaction_id} -> status.
	// Only terminal statuses are cached; PENDING is always read from the DB.
	KeyPaymentStatus = "payment_status:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
)
