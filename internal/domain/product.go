package domain

import "time"

// Product is a storefront item priced in integer minor currency units.
type Product struct {
	ID          string
	SKU         string
	Name        string
	Description string
	PriceCents  int
	Currency    string
	ImageURL    string
	Active      bool
	Stock       Stock
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stock tracks the available units for a product. UnitsAvailable never
// goes below zero; it is mutated only inside the payment commit
// transaction.
type Stock struct {
	ProductID      string
	UnitsAvailable int
}
