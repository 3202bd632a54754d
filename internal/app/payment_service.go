package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/clock"
	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/Emeeerrr/Shop-FS/internal/kafkax"
	"github.com/Emeeerrr/Shop-FS/internal/redisx"
	"github.com/Emeeerrr/Shop-FS/internal/wompi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type CheckoutRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	UpsertCustomer(ctx context.Context, email, fullName string) (domain.Customer, error)
	CreateDelivery(ctx context.Context, d domain.Delivery) error
	CreateTransaction(ctx context.Context, tx domain.Transaction) error
	AttachWompiID(ctx context.Context, txID, wompiID string) error
	SetTerminalStatus(ctx context.Context, txID string, status domain.TransactionStatus) error
	DecrementStock(ctx context.Context, productID string, quantity int) error
	GetTransaction(ctx context.Context, txID string) (domain.Transaction, error)
	ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error)
}

// Gateway is the slice of the Wompi client the orchestrator needs.
type Gateway interface {
	CreateTransaction(ctx context.Context, in wompi.CreateTransactionInput) (wompi.Transaction, error)
	GetTransaction(ctx context.Context, id string) (wompi.Transaction, error)
}

// EventPublisher matches kafkax.Producer.Publish.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

const (
	defaultPollAttempts = 12
	defaultPollInterval = time.Second
)

// PaymentService orchestrates a checkout: local PENDING record, gateway
// authorization, status polling, then a single atomic commit of stock
// and terminal status.
type PaymentService struct {
	products ProductRepository
	checkout CheckoutRepository
	gateway  Gateway
	clock    clock.Clock
	logger   *log.Logger

	// optional collaborators
	publisher EventPublisher
	redis     *redis.Client

	serviceName  string
	pollAttempts int
	pollInterval time.Duration
}

type PaymentServiceOption func(*PaymentService)

// WithPollAttempts overrides the number of extra status polls after the
// initial fetch.
func WithPollAttempts(n int) PaymentServiceOption {
	return func(s *PaymentService) {
		if n >= 0 {
			s.pollAttempts = n
		}
	}
}

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(d time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithPublisher enables publishing payment.finalized events.
func WithPublisher(p EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) { s.publisher = p }
}

// WithStatusCache enables the Redis read cache for status lookups.
func WithStatusCache(rdb *redis.Client) PaymentServiceOption {
	return func(s *PaymentService) { s.redis = rdb }
}

func NewPaymentService(
	products ProductRepository,
	checkout CheckoutRepository,
	gateway Gateway,
	clk clock.Clock,
	logger *log.Logger,
	serviceName string,
	opts ...PaymentServiceOption,
) *PaymentService {
	if logger == nil {
		logger = log.Default()
	}
	svc := &PaymentService{
		products:     products,
		checkout:     checkout,
		gateway:      gateway,
		clock:        clk,
		logger:       logger,
		serviceName:  serviceName,
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreatePaymentInput struct {
	ProductID string
	Quantity  int

	CustomerFullName string
	CustomerEmail    string

	DeliveryAddress string

	CardToken          string
	Installments       int
	AcceptanceToken    string
	AcceptPersonalAuth string
}

type CreatePaymentResult struct {
	TransactionID      string
	Reference          string
	WompiTransactionID string
	Status             domain.TransactionStatus
	WompiStatus        string
}

// CreatePayment runs the full checkout flow. Side effects are strictly
// ordered: the PENDING row exists before the gateway is called, the
// gateway id is attached before polling, and stock is only touched
// inside the same transaction that writes APPROVED.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (CreatePaymentResult, error) {
	if in.Quantity <= 0 {
		return CreatePaymentResult{}, domain.ErrInvalidQuantity
	}

	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return CreatePaymentResult{}, err
	}
	// Advisory check only; the commit step re-validates under a row lock.
	if in.Quantity > product.Stock.UnitsAvailable {
		return CreatePaymentResult{}, domain.ErrNotEnoughStock
	}

	now := s.clock.Now()

	customer, err := s.checkout.UpsertCustomer(ctx, in.CustomerEmail, in.CustomerFullName)
	if err != nil {
		return CreatePaymentResult{}, err
	}

	delivery := domain.Delivery{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		Address:    in.DeliveryAddress,
		CreatedAt:  now,
	}
	if err := s.checkout.CreateDelivery(ctx, delivery); err != nil {
		return CreatePaymentResult{}, err
	}

	reference := "SHOPFS-" + uuid.NewString()
	amountInCents := product.PriceCents * in.Quantity

	tx := domain.Transaction{
		ID:            uuid.NewString(),
		Reference:     reference,
		Status:        domain.StatusPending,
		AmountInCents: amountInCents,
		Currency:      product.Currency,
		Quantity:      in.Quantity,
		ProductID:     product.ID,
		CustomerID:    customer.ID,
		DeliveryID:    delivery.ID,
		CreatedAt:     now,
	}
	// The PENDING row is the audit trail: it must exist before any
	// external call, even if the process dies mid-flight.
	if err := s.checkout.CreateTransaction(ctx, tx); err != nil {
		return CreatePaymentResult{}, err
	}

	wompiTx, err := s.gateway.CreateTransaction(ctx, wompi.CreateTransactionInput{
		Reference:          reference,
		AmountInCents:      amountInCents,
		Currency:           product.Currency,
		CustomerEmail:      customer.Email,
		CardToken:          in.CardToken,
		Installments:       in.Installments,
		AcceptanceToken:    in.AcceptanceToken,
		AcceptPersonalAuth: in.AcceptPersonalAuth,
	})
	if err != nil {
		// The row stays PENDING; the reconciliation sweep picks it up.
		return CreatePaymentResult{}, err
	}

	if err := s.checkout.AttachWompiID(ctx, tx.ID, wompiTx.ID); err != nil {
		return CreatePaymentResult{}, err
	}

	wompiStatus := s.pollForFinalStatus(ctx, wompiTx.ID, wompiTx.Status)
	final := mapWompiStatus(wompiStatus)

	if final == domain.StatusApproved {
		err := s.checkout.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.checkout.DecrementStock(txCtx, product.ID, in.Quantity); err != nil {
				return err
			}
			return s.checkout.SetTerminalStatus(txCtx, tx.ID, domain.StatusApproved)
		})
		if errors.Is(err, domain.ErrInsufficientStock) {
			// Money was authorized but the stock re-validation failed.
			// Finalize the row as ERROR and surface the conflict; no
			// automatic refund is attempted.
			s.logger.Printf("fulfillment conflict: tx=%s product=%s qty=%d", tx.ID, product.ID, in.Quantity)
			if serr := s.checkout.SetTerminalStatus(ctx, tx.ID, domain.StatusError); serr != nil {
				s.logger.Printf("finalize after conflict failed: tx=%s: %v", tx.ID, serr)
			}
			s.finalize(ctx, tx, domain.StatusError, wompiStatus)
			return CreatePaymentResult{}, domain.ErrFulfillmentConflict
		}
		if err != nil {
			return CreatePaymentResult{}, fmt.Errorf("commit approved payment: %w", err)
		}
	} else {
		if err := s.checkout.SetTerminalStatus(ctx, tx.ID, final); err != nil {
			return CreatePaymentResult{}, fmt.Errorf("finalize payment: %w", err)
		}
	}

	s.finalize(ctx, tx, final, wompiStatus)

	return CreatePaymentResult{
		TransactionID:      tx.ID,
		Reference:          reference,
		WompiTransactionID: wompiTx.ID,
		Status:             final,
		WompiStatus:        wompiStatus,
	}, nil
}

// pollForFinalStatus re-fetches the gateway status at a fixed interval,
// bounded by pollAttempts. Transient fetch errors consume an attempt.
// The last observed status is returned whether or not it is final.
func (s *PaymentService) pollForFinalStatus(ctx context.Context, wompiID, initial string) string {
	status := initial
	for i := 0; i < s.pollAttempts && !wompi.IsFinalStatus(status); i++ {
		if err := s.clock.Sleep(ctx, s.pollInterval); err != nil {
			break
		}
		current, err := s.gateway.GetTransaction(ctx, wompiID)
		if err != nil {
			s.logger.Printf("poll wompi tx %s: %v", wompiID, err)
			continue
		}
		status = current.Status
	}
	return status
}

// mapWompiStatus resolves the gateway outcome to a local terminal
// status. Anything not explicitly approved or declined, including an
// exhausted poll budget, fails safe to ERROR so stock is never
// committed on an ambiguous outcome.
func mapWompiStatus(wompiStatus string) domain.TransactionStatus {
	switch wompiStatus {
	case "APPROVED":
		return domain.StatusApproved
	case "DECLINED":
		return domain.StatusDeclined
	default:
		return domain.StatusError
	}
}

// finalize publishes the terminal event and refreshes the status cache.
// Both are best effort; the database row is the source of truth.
func (s *PaymentService) finalize(ctx context.Context, tx domain.Transaction, status domain.TransactionStatus, wompiStatus string) {
	if s.redis != nil {
		key := fmt.Sprintf(redisx.KeyPaymentStatus, tx.ID)
		if err := s.redis.Set(ctx, key, string(status), redisx.TTLStatusCache).Err(); err != nil {
			s.logger.Printf("cache payment status: %v", err)
		}
	}

	if s.publisher == nil {
		return
	}
	ev := domain.Envelope{
		EventID:       uuid.NewString(),
		EventType:     domain.EventPaymentFinalized,
		EventVersion:  1,
		OccurredAt:    s.clock.Now(),
		Producer:      s.serviceName,
		CorrelationID: tx.ID,
		Payload: kafkax.MustMarshal(domain.PaymentFinalizedPayload{
			TransactionID: tx.ID,
			Reference:     tx.Reference,
			ProductID:     tx.ProductID,
			Quantity:      tx.Quantity,
			AmountInCents: tx.AmountInCents,
			Currency:      tx.Currency,
			Status:        string(status),
			WompiStatus:   wompiStatus,
		}),
	}
	s.publisher.Publish(domain.PartitionKey(tx.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(domain.EventPaymentFinalized)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// GetPayment returns the transaction for a status lookup, consulting
// the Redis cache first when available.
func (s *PaymentService) GetPayment(ctx context.Context, txID string) (domain.Transaction, error) {
	tx, err := s.checkout.GetTransaction(ctx, txID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if s.redis != nil && tx.Status.IsTerminal() {
		key := fmt.Sprintf(redisx.KeyPaymentStatus, tx.ID)
		if err := s.redis.Set(ctx, key, string(tx.Status), redisx.TTLStatusCache).Err(); err != nil {
			s.logger.Printf("cache payment status: %v", err)
		}
	}
	return tx, nil
}

// PaymentStatus answers the cheap "is it done yet" poll from the
// storefront without a database round trip when the cache is warm.
func (s *PaymentService) PaymentStatus(ctx context.Context, txID string) (domain.TransactionStatus, error) {
	if s.redis != nil {
		key := fmt.Sprintf(redisx.KeyPaymentStatus, txID)
		if v, err := s.redis.Get(ctx, key).Result(); err == nil && v != "" {
			return domain.TransactionStatus(v), nil
		}
	}
	tx, err := s.GetPayment(ctx, txID)
	if err != nil {
		return "", err
	}
	return tx.Status, nil
}
