package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/Emeeerrr/Shop-FS/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func seedTransaction(t *testing.T, ctx context.Context, repo *CheckoutRepository, pool *pgxpool.Pool, productID string) domain.Transaction {
	t.Helper()
	customerID, deliveryID := testutil.InsertCheckout(t, ctx, pool, uuid.NewString()+"@example.com")
	tx := domain.Transaction{
		ID:            uuid.NewString(),
		Reference:     "SHOPFS-" + uuid.NewString(),
		AmountInCents: 250000,
		Currency:      "COP",
		Quantity:      1,
		ProductID:     productID,
		CustomerID:    customerID,
		DeliveryID:    deliveryID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}

func TestCheckoutRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)

	repo := NewCheckoutRepository(pool)

	t.Run("create transaction always starts PENDING", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)

		tx := seedTransaction(t, ctx, repo, pool, productID)

		got, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("get transaction: %v", err)
		}
		if got.Status != domain.StatusPending {
			t.Fatalf("expected PENDING, got %s", got.Status)
		}
		if got.Reference != tx.Reference || got.AmountInCents != 250000 {
			t.Fatalf("unexpected row: %+v", got)
		}
	})

	t.Run("duplicate reference is rejected", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)

		tx := seedTransaction(t, ctx, repo, pool, productID)
		dup := tx
		dup.ID = uuid.NewString()
		if err := repo.CreateTransaction(ctx, dup); err == nil {
			t.Fatal("expected duplicate reference to fail")
		}
	})

	t.Run("attach wompi id", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)
		tx := seedTransaction(t, ctx, repo, pool, productID)

		if err := repo.AttachWompiID(ctx, tx.ID, "w-123"); err != nil {
			t.Fatalf("attach wompi id: %v", err)
		}
		got, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("get transaction: %v", err)
		}
		if got.WompiTransactionID != "w-123" {
			t.Fatalf("expected wompi id attached, got %q", got.WompiTransactionID)
		}

		if err := repo.AttachWompiID(ctx, uuid.NewString(), "w-456"); !errors.Is(err, domain.ErrTransactionNotFound) {
			t.Fatalf("expected ErrTransactionNotFound, got %v", err)
		}
	})

	t.Run("terminal status is written once", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)
		tx := seedTransaction(t, ctx, repo, pool, productID)

		if err := repo.SetTerminalStatus(ctx, tx.ID, domain.StatusDeclined); err != nil {
			t.Fatalf("set terminal status: %v", err)
		}
		err := repo.SetTerminalStatus(ctx, tx.ID, domain.StatusApproved)
		if !errors.Is(err, domain.ErrTransactionFinalized) {
			t.Fatalf("expected ErrTransactionFinalized, got %v", err)
		}

		got, _ := repo.GetTransaction(ctx, tx.ID)
		if got.Status != domain.StatusDeclined {
			t.Fatalf("terminal status must not flip, got %s", got.Status)
		}

		err = repo.SetTerminalStatus(ctx, uuid.NewString(), domain.StatusError)
		if !errors.Is(err, domain.ErrTransactionNotFound) {
			t.Fatalf("expected ErrTransactionNotFound, got %v", err)
		}
	})

	t.Run("PENDING is not a terminal status", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)
		tx := seedTransaction(t, ctx, repo, pool, productID)

		if err := repo.SetTerminalStatus(ctx, tx.ID, domain.StatusPending); err == nil {
			t.Fatal("expected rejecting PENDING as terminal status")
		}
	})

	t.Run("decrement stock re-validates availability", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 2)

		if err := repo.DecrementStock(ctx, productID, 2); err != nil {
			t.Fatalf("decrement stock: %v", err)
		}
		err := repo.DecrementStock(ctx, productID, 1)
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}

		var units int
		if err := pool.QueryRow(ctx, `SELECT units_available FROM stocks WHERE product_id = $1`, productID).Scan(&units); err != nil {
			t.Fatalf("read stock: %v", err)
		}
		if units != 0 {
			t.Fatalf("expected 0 units, got %d", units)
		}
	})

	t.Run("commit transaction is atomic", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)
		tx := seedTransaction(t, ctx, repo, pool, productID)

		// Finalize first so the status write inside the tx fails after
		// the stock write succeeded; the decrement must roll back.
		if err := repo.SetTerminalStatus(ctx, tx.ID, domain.StatusError); err != nil {
			t.Fatalf("set terminal status: %v", err)
		}

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.DecrementStock(txCtx, productID, 2); err != nil {
				return err
			}
			return repo.SetTerminalStatus(txCtx, tx.ID, domain.StatusApproved)
		})
		if !errors.Is(err, domain.ErrTransactionFinalized) {
			t.Fatalf("expected ErrTransactionFinalized, got %v", err)
		}

		var units int
		if err := pool.QueryRow(ctx, `SELECT units_available FROM stocks WHERE product_id = $1`, productID).Scan(&units); err != nil {
			t.Fatalf("read stock: %v", err)
		}
		if units != 5 {
			t.Fatalf("expected decrement rolled back to 5, got %d", units)
		}
	})

	t.Run("upsert customer refreshes the name", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		first, err := repo.UpsertCustomer(ctx, "ana@example.com", "Ana Gomez")
		if err != nil {
			t.Fatalf("upsert customer: %v", err)
		}
		second, err := repo.UpsertCustomer(ctx, "ana@example.com", "Ana Maria Gomez")
		if err != nil {
			t.Fatalf("upsert customer again: %v", err)
		}
		if second.ID != first.ID {
			t.Fatalf("expected the same customer row, got %s and %s", first.ID, second.ID)
		}
		if second.FullName != "Ana Maria Gomez" {
			t.Fatalf("expected refreshed name, got %q", second.FullName)
		}
	})

	t.Run("get transaction maps lookup errors", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)

		if _, err := repo.GetTransaction(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
		if _, err := repo.GetTransaction(ctx, uuid.NewString()); !errors.Is(err, domain.ErrTransactionNotFound) {
			t.Fatalf("expected ErrTransactionNotFound, got %v", err)
		}
	})

	t.Run("list stale pending honors the cutoff", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		productID := testutil.InsertProduct(t, ctx, pool, "SKU-001", 250000, 5)

		stale := seedTransaction(t, ctx, repo, pool, productID)
		if _, err := pool.Exec(ctx, `UPDATE transactions SET created_at = NOW() - INTERVAL '1 hour' WHERE id = $1`, stale.ID); err != nil {
			t.Fatalf("age transaction: %v", err)
		}
		seedTransaction(t, ctx, repo, pool, productID)
		finalized := seedTransaction(t, ctx, repo, pool, productID)
		if _, err := pool.Exec(ctx, `UPDATE transactions SET created_at = NOW() - INTERVAL '1 hour', status = 'DECLINED' WHERE id = $1`, finalized.ID); err != nil {
			t.Fatalf("age transaction: %v", err)
		}

		got, err := repo.ListStalePending(ctx, time.Now().Add(-15*time.Minute))
		if err != nil {
			t.Fatalf("list stale pending: %v", err)
		}
		if len(got) != 1 || got[0].ID != stale.ID {
			t.Fatalf("expected only the stale PENDING row, got %+v", got)
		}
	})
}
