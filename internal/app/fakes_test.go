package app

import (
	"context"
	"sync"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/Emeeerrr/Shop-FS/internal/wompi"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type fakeProductRepo struct {
	products map[string]domain.Product
}

func newFakeProductRepo(products ...domain.Product) *fakeProductRepo {
	m := make(map[string]domain.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeProductRepo{products: m}
}

func (r *fakeProductRepo) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out, nil
}

// fakeCheckoutRepo keeps everything in maps and mimics the transaction
// semantics of the real repository: WithTx snapshots state and restores
// it when fn fails, and terminal statuses can only be written once.
type fakeCheckoutRepo struct {
	mu           sync.Mutex
	customers    map[string]domain.Customer // by email
	deliveries   map[string]domain.Delivery
	transactions map[string]domain.Transaction
	stock        map[string]int // units by product id
}

func newFakeCheckoutRepo(stock map[string]int) *fakeCheckoutRepo {
	if stock == nil {
		stock = map[string]int{}
	}
	return &fakeCheckoutRepo{
		customers:    map[string]domain.Customer{},
		deliveries:   map[string]domain.Delivery{},
		transactions: map[string]domain.Transaction{},
		stock:        stock,
	}
}

func (r *fakeCheckoutRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	txSnap := make(map[string]domain.Transaction, len(r.transactions))
	for k, v := range r.transactions {
		txSnap[k] = v
	}
	stockSnap := make(map[string]int, len(r.stock))
	for k, v := range r.stock {
		stockSnap[k] = v
	}
	r.mu.Unlock()

	if err := fn(ctx); err != nil {
		r.mu.Lock()
		r.transactions = txSnap
		r.stock = stockSnap
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *fakeCheckoutRepo) UpsertCustomer(ctx context.Context, email, fullName string) (domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.customers[email]; ok {
		c.FullName = fullName
		r.customers[email] = c
		return c, nil
	}
	c := domain.Customer{ID: uuid.NewString(), Email: email, FullName: fullName}
	r.customers[email] = c
	return c, nil
}

func (r *fakeCheckoutRepo) CreateDelivery(ctx context.Context, d domain.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries[d.ID] = d
	return nil
}

func (r *fakeCheckoutRepo) CreateTransaction(ctx context.Context, tx domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.Status = domain.StatusPending
	r.transactions[tx.ID] = tx
	return nil
}

func (r *fakeCheckoutRepo) AttachWompiID(ctx context.Context, txID, wompiID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[txID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	tx.WompiTransactionID = wompiID
	r.transactions[txID] = tx
	return nil
}

func (r *fakeCheckoutRepo) SetTerminalStatus(ctx context.Context, txID string, status domain.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[txID]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	if tx.Status != domain.StatusPending {
		return domain.ErrTransactionFinalized
	}
	tx.Status = status
	r.transactions[txID] = tx
	return nil
}

func (r *fakeCheckoutRepo) DecrementStock(ctx context.Context, productID string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stock[productID] < quantity {
		return domain.ErrInsufficientStock
	}
	r.stock[productID] -= quantity
	return nil
}

func (r *fakeCheckoutRepo) GetTransaction(ctx context.Context, txID string) (domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[txID]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	return tx, nil
}

func (r *fakeCheckoutRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range r.transactions {
		if tx.Status == domain.StatusPending && tx.CreatedAt.Before(cutoff) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *fakeCheckoutRepo) transactionsByStatus(status domain.TransactionStatus) []domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, tx := range r.transactions {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	return out
}

// fakeGateway scripts the authorize result and a sequence of poll
// statuses; the last status repeats once the script runs out.
type fakeGateway struct {
	mu sync.Mutex

	createResult wompi.Transaction
	createErr    error
	lastCreate   wompi.CreateTransactionInput
	createCalls  int

	pollStatuses []string
	getErr       error
	getCalls     int
}

func (g *fakeGateway) CreateTransaction(ctx context.Context, in wompi.CreateTransactionInput) (wompi.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	g.lastCreate = in
	if g.createErr != nil {
		return wompi.Transaction{}, g.createErr
	}
	return g.createResult, nil
}

func (g *fakeGateway) GetTransaction(ctx context.Context, id string) (wompi.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		g.getCalls++
		return wompi.Transaction{}, g.getErr
	}
	idx := g.getCalls
	g.getCalls++
	if idx >= len(g.pollStatuses) {
		idx = len(g.pollStatuses) - 1
	}
	if idx < 0 {
		return wompi.Transaction{ID: id, Status: "PENDING"}, nil
	}
	return wompi.Transaction{ID: id, Status: g.pollStatuses[idx]}, nil
}

type publishedEvent struct {
	key     []byte
	value   []byte
	headers []kafkago.Header
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, value: value, headers: headers})
}
