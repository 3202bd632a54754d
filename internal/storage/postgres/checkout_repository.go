package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckoutRepository persists the customer, delivery, transaction and
// stock writes of the payment flow.
type CheckoutRepository struct {
	pool *pgxpool.Pool
}

func NewCheckoutRepository(pool *pgxpool.Pool) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

func (r *CheckoutRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// UpsertCustomer creates the customer or refreshes the stored name when
// the email is already known.
func (r *CheckoutRepository) UpsertCustomer(ctx context.Context, email, fullName string) (domain.Customer, error) {
	const stmt = `
INSERT INTO customers (id, email, full_name)
VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name
RETURNING id, email, full_name, created_at`

	var c domain.Customer
	err := r.queryRow(ctx, stmt, newID(), email, fullName).
		Scan(&c.ID, &c.Email, &c.FullName, &c.CreatedAt)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("upsert customer: %w", err)
	}
	return c, nil
}

func (r *CheckoutRepository) CreateDelivery(ctx context.Context, d domain.Delivery) error {
	const stmt = `
INSERT INTO deliveries (id, customer_id, address, created_at)
VALUES ($1, $2, $3, $4)`

	if _, err := r.exec(ctx, stmt, d.ID, d.CustomerID, d.Address, d.CreatedAt); err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}
	return nil
}

// CreateTransaction inserts the payment attempt. Status is forced to
// PENDING regardless of what the caller set.
func (r *CheckoutRepository) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	const stmt = `
INSERT INTO transactions
	(id, reference, status, amount_in_cents, currency, quantity, product_id, customer_id, delivery_id, created_at, updated_at)
VALUES ($1, $2, 'PENDING', $3, $4, $5, $6, $7, $8, $9, $9)`

	_, err := r.exec(ctx, stmt,
		tx.ID,
		tx.Reference,
		tx.AmountInCents,
		tx.Currency,
		tx.Quantity,
		tx.ProductID,
		tx.CustomerID,
		tx.DeliveryID,
		tx.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create transaction: duplicate reference %s: %w", tx.Reference, err)
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// AttachWompiID records the gateway's transaction id once authorization
// has been requested, before polling begins.
func (r *CheckoutRepository) AttachWompiID(ctx context.Context, txID, wompiID string) error {
	const stmt = `
UPDATE transactions SET wompi_transaction_id = $2, updated_at = NOW()
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, txID, wompiID)
	if err != nil {
		return fmt.Errorf("attach wompi id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// SetTerminalStatus moves a PENDING transaction to its final status.
// A transaction that already left PENDING yields ErrTransactionFinalized.
func (r *CheckoutRepository) SetTerminalStatus(ctx context.Context, txID string, status domain.TransactionStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("set terminal status: %q is not terminal", status)
	}

	const stmt = `
UPDATE transactions SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = 'PENDING'`

	tag, err := r.exec(ctx, stmt, txID, status)
	if err != nil {
		return fmt.Errorf("set terminal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var existing string
		err := r.queryRow(ctx, `SELECT status FROM transactions WHERE id = $1`, txID).Scan(&existing)
		if err == pgx.ErrNoRows {
			return domain.ErrTransactionNotFound
		}
		if err != nil {
			return fmt.Errorf("set terminal status: %w", err)
		}
		return domain.ErrTransactionFinalized
	}
	return nil
}

// DecrementStock conditionally takes quantity units. The WHERE clause
// re-validates availability at commit time, so two racing checkouts can
// never both succeed past the last unit.
func (r *CheckoutRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	const stmt = `
UPDATE stocks SET units_available = units_available - $2
WHERE product_id = $1 AND units_available >= $2`

	tag, err := r.exec(ctx, stmt, productID, quantity)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInsufficientStock
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *CheckoutRepository) GetTransaction(ctx context.Context, txID string) (domain.Transaction, error) {
	const query = `
SELECT id, reference, status, amount_in_cents, currency, quantity,
       product_id, customer_id, delivery_id, COALESCE(wompi_transaction_id, ''),
       created_at, updated_at
FROM transactions
WHERE id = $1`

	tx, err := scanTransaction(r.queryRow(ctx, query, txID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Transaction{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListStalePending returns PENDING transactions created before the
// cutoff, oldest first, for the reconciliation sweep.
func (r *CheckoutRepository) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	const query = `
SELECT id, reference, status, amount_in_cents, currency, quantity,
       product_id, customer_id, delivery_id, COALESCE(wompi_transaction_id, ''),
       created_at, updated_at
FROM transactions
WHERE status = 'PENDING' AND created_at < $1
ORDER BY created_at`

	rows, err := r.query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale pending: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID, &tx.Reference, &tx.Status, &tx.AmountInCents, &tx.Currency, &tx.Quantity,
		&tx.ProductID, &tx.CustomerID, &tx.DeliveryID, &tx.WompiTransactionID,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	return tx, err
}

func (r *CheckoutRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *CheckoutRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *CheckoutRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
