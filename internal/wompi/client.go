package wompi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrGatewayUnavailable covers transport failures and 5xx responses.
var ErrGatewayUnavailable = errors.New("wompi unavailable")

// GatewayError is a 4xx rejection from Wompi. Status and Body are
// preserved verbatim so the API consumer can diagnose the rejection.
type GatewayError struct {
	Status int
	Body   json.RawMessage
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("wompi rejected request: status=%d", e.Status)
}

// Transaction is the gateway's view of a payment.
type Transaction struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Reference string          `json:"reference"`
	Raw       json.RawMessage `json:"-"`
}

// IsFinalStatus reports whether the gateway will no longer change the
// transaction.
func IsFinalStatus(s string) bool {
	switch s {
	case "APPROVED", "DECLINED", "ERROR", "VOIDED":
		return true
	}
	return false
}

type Config struct {
	BaseURL         string
	PublicKey       string
	PrivateKey      string
	IntegritySecret string
	HTTPClient      *http.Client
}

// Client talks to the Wompi card gateway. Transaction endpoints use the
// private key; the merchant endpoint is public.
type Client struct {
	baseURL         string
	publicKey       string
	privateKey      string
	integritySecret string
	httpClient      *http.Client
}

func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:         cfg.BaseURL,
		publicKey:       cfg.PublicKey,
		privateKey:      cfg.PrivateKey,
		integritySecret: cfg.IntegritySecret,
		httpClient:      hc,
	}
}

// Signature binds reference, amount and currency to the integrity
// secret so the gateway can verify the request was not tampered with.
// The secret itself is never sent, logged or returned.
func (c *Client) Signature(reference string, amountInCents int, currency string) string {
	raw := reference + strconv.Itoa(amountInCents) + currency + c.integritySecret
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type CreateTransactionInput struct {
	Reference          string
	AmountInCents      int
	Currency           string
	CustomerEmail      string
	CardToken          string
	Installments       int
	AcceptanceToken    string
	AcceptPersonalAuth string
}

type paymentMethod struct {
	Type         string `json:"type"`
	Token        string `json:"token"`
	Installments int    `json:"installments"`
}

type createTransactionBody struct {
	AmountInCents      int           `json:"amount_in_cents"`
	Currency           string        `json:"currency"`
	CustomerEmail      string        `json:"customer_email"`
	Reference          string        `json:"reference"`
	AcceptanceToken    string        `json:"acceptance_token"`
	AcceptPersonalAuth string        `json:"accept_personal_auth"`
	Signature          string        `json:"signature"`
	PaymentMethod      paymentMethod `json:"payment_method"`
}

// CreateTransaction requests an authorization. The caller must supply a
// reference never used before; Wompi treats it as an idempotency key.
func (c *Client) CreateTransaction(ctx context.Context, in CreateTransactionInput) (Transaction, error) {
	body := createTransactionBody{
		AmountInCents:      in.AmountInCents,
		Currency:           in.Currency,
		CustomerEmail:      in.CustomerEmail,
		Reference:          in.Reference,
		AcceptanceToken:    in.AcceptanceToken,
		AcceptPersonalAuth: in.AcceptPersonalAuth,
		Signature:          c.Signature(in.Reference, in.AmountInCents, in.Currency),
		PaymentMethod: paymentMethod{
			Type:         "CARD",
			Token:        in.CardToken,
			Installments: in.Installments,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Transaction{}, fmt.Errorf("marshal transaction body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions", bytes.NewReader(payload))
	if err != nil {
		return Transaction{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.privateKey)
	req.Header.Set("Content-Type", "application/json")

	return c.doTransaction(req)
}

// GetTransaction fetches the current authorization status. It is
// side-effect free and safe to call repeatedly.
func (c *Client) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/"+id, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.privateKey)

	return c.doTransaction(req)
}

func (c *Client) doTransaction(req *http.Request) (Transaction, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Transaction{}, &GatewayError{Status: resp.StatusCode, Body: json.RawMessage(raw)}
	default:
		return Transaction{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Transaction{}, fmt.Errorf("decode response: %w", err)
	}

	var tx Transaction
	if err := json.Unmarshal(envelope.Data, &tx); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	tx.Raw = envelope.Data
	return tx, nil
}
