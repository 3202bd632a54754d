package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/clock"
	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/Emeeerrr/Shop-FS/internal/wompi"
)

const defaultStaleAfter = 15 * time.Minute

// ReconcileService resolves PENDING transactions that the checkout flow
// abandoned, typically because the gateway call failed or the process
// died mid-poll. Rows with a gateway id are re-resolved against the
// gateway; rows without one can never complete and are finalized as
// ERROR.
type ReconcileService struct {
	checkout CheckoutRepository
	gateway  Gateway
	clock    clock.Clock
	logger   *log.Logger

	staleAfter time.Duration
}

func NewReconcileService(checkout CheckoutRepository, gateway Gateway, clk clock.Clock, logger *log.Logger, staleAfter time.Duration) *ReconcileService {
	if logger == nil {
		logger = log.Default()
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &ReconcileService{
		checkout:   checkout,
		gateway:    gateway,
		clock:      clk,
		logger:     logger,
		staleAfter: staleAfter,
	}
}

// SweepOnce resolves every stale PENDING transaction it can and returns
// how many were finalized. Gateway unavailability skips the row; it
// will be retried on the next sweep.
func (s *ReconcileService) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.staleAfter)
	stale, err := s.checkout.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, tx := range stale {
		done, err := s.reconcile(ctx, tx)
		if err != nil {
			s.logger.Printf("reconcile tx=%s: %v", tx.ID, err)
			continue
		}
		if done {
			resolved++
		}
	}
	return resolved, nil
}

func (s *ReconcileService) reconcile(ctx context.Context, tx domain.Transaction) (bool, error) {
	if tx.WompiTransactionID == "" {
		// Authorization was never requested (or never acknowledged);
		// there is nothing at the gateway to wait for.
		if err := s.finalizeOnce(ctx, tx.ID, domain.StatusError); err != nil {
			return false, err
		}
		return true, nil
	}

	wompiTx, err := s.gateway.GetTransaction(ctx, tx.WompiTransactionID)
	if err != nil {
		return false, err
	}
	if !wompi.IsFinalStatus(wompiTx.Status) {
		return false, nil
	}

	switch wompiTx.Status {
	case "APPROVED":
		err := s.checkout.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.checkout.DecrementStock(txCtx, tx.ProductID, tx.Quantity); err != nil {
				return err
			}
			return s.checkout.SetTerminalStatus(txCtx, tx.ID, domain.StatusApproved)
		})
		if errors.Is(err, domain.ErrInsufficientStock) {
			s.logger.Printf("fulfillment conflict during sweep: tx=%s product=%s qty=%d", tx.ID, tx.ProductID, tx.Quantity)
			if err := s.finalizeOnce(ctx, tx.ID, domain.StatusError); err != nil {
				return false, err
			}
			return true, nil
		}
		if err != nil {
			return false, err
		}
	case "DECLINED":
		if err := s.finalizeOnce(ctx, tx.ID, domain.StatusDeclined); err != nil {
			return false, err
		}
	default:
		if err := s.finalizeOnce(ctx, tx.ID, domain.StatusError); err != nil {
			return false, err
		}
	}
	return true, nil
}

// finalizeOnce tolerates a concurrent writer having already finalized
// the row; the sweep must never flip a terminal status.
func (s *ReconcileService) finalizeOnce(ctx context.Context, txID string, status domain.TransactionStatus) error {
	err := s.checkout.SetTerminalStatus(ctx, txID, status)
	if errors.Is(err, domain.ErrTransactionFinalized) {
		return nil
	}
	return err
}
