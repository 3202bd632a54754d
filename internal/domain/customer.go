package domain

import "time"

// Customer is identified by a unique email and upserted on each
// checkout (name refreshed when it already exists).
type Customer struct {
	ID        string
	Email     string
	FullName  string
	CreatedAt time.Time
}

// Delivery is created once per checkout attempt and never mutated.
type Delivery struct {
	ID         string
	CustomerID string
	Address    string
	CreatedAt  time.Time
}
