package domain

import "errors"

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrNoStockRow          = errors.New("product has no stock row")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrNotEnoughStock      = errors.New("not enough stock")
	ErrInsufficientStock   = errors.New("insufficient stock at commit")
	ErrFulfillmentConflict = errors.New("payment approved but stock could not be reserved")
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionFinalized signals a second terminal-status write.
	// This is a programming error, not a user-facing condition.
	ErrTransactionFinalized = errors.New("transaction already finalized")
	ErrInvalidID            = errors.New("invalid id")
)
