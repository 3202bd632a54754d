package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/Emeeerrr/Shop-FS/internal/app"
	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/Emeeerrr/Shop-FS/internal/wompi"
	"github.com/go-chi/chi/v5"
)

// PaymentCreator is the minimal interface needed to run a checkout.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, in app.CreatePaymentInput) (app.CreatePaymentResult, error)
}

// PaymentGetter is the minimal interface needed to look up a payment.
type PaymentGetter interface {
	GetPayment(ctx context.Context, txID string) (domain.Transaction, error)
	PaymentStatus(ctx context.Context, txID string) (domain.TransactionStatus, error)
}

type customerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type deliveryRequest struct {
	AddressLine1 string `json:"addressLine1"`
}

type wompiRequest struct {
	CardToken          string `json:"cardToken"`
	Installments       int    `json:"installments"`
	AcceptanceToken    string `json:"acceptanceToken"`
	AcceptPersonalAuth string `json:"acceptPersonalAuth"`
}

type createPaymentRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Customer  customerRequest `json:"customer"`
	Delivery  deliveryRequest `json:"delivery"`
	Wompi     wompiRequest    `json:"wompi"`
}

type fieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validate returns every violated constraint instead of stopping at the
// first one, so the storefront can highlight all bad fields at once.
func (r createPaymentRequest) validate() []fieldViolation {
	var v []fieldViolation
	if r.ProductID == "" {
		v = append(v, fieldViolation{Field: "productId", Message: "required"})
	}
	if r.Quantity <= 0 {
		v = append(v, fieldViolation{Field: "quantity", Message: "must be at least 1"})
	}
	if r.Customer.FullName == "" {
		v = append(v, fieldViolation{Field: "customer.fullName", Message: "required"})
	}
	if r.Customer.Email == "" {
		v = append(v, fieldViolation{Field: "customer.email", Message: "required"})
	} else if _, err := mail.ParseAddress(r.Customer.Email); err != nil {
		v = append(v, fieldViolation{Field: "customer.email", Message: "must be a valid email"})
	}
	if r.Delivery.AddressLine1 == "" {
		v = append(v, fieldViolation{Field: "delivery.addressLine1", Message: "required"})
	}
	if r.Wompi.CardToken == "" {
		v = append(v, fieldViolation{Field: "wompi.cardToken", Message: "required"})
	}
	if r.Wompi.Installments < 1 {
		v = append(v, fieldViolation{Field: "wompi.installments", Message: "must be at least 1"})
	}
	if r.Wompi.AcceptanceToken == "" {
		v = append(v, fieldViolation{Field: "wompi.acceptanceToken", Message: "required"})
	}
	if r.Wompi.AcceptPersonalAuth == "" {
		v = append(v, fieldViolation{Field: "wompi.acceptPersonalAuth", Message: "required"})
	}
	return v
}

type createPaymentResponse struct {
	TransactionID      string `json:"transactionId"`
	Reference          string `json:"reference"`
	WompiTransactionID string `json:"wompiTransactionId"`
	Status             string `json:"status"`
	WompiStatus        string `json:"wompiStatus"`
}

type validationErrorResponse struct {
	Error      string           `json:"error"`
	Code       string           `json:"code"`
	Violations []fieldViolation `json:"violations"`
}

type gatewayRejectedResponse struct {
	Error       string          `json:"error"`
	Code        string          `json:"code"`
	WompiStatus int             `json:"wompiStatus"`
	WompiData   json.RawMessage `json:"wompiData"`
}

// HandleCreatePayment returns the handler for the checkout endpoint.
func HandleCreatePayment(svc PaymentCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPaymentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if violations := req.validate(); len(violations) > 0 {
			writeJSON(w, http.StatusBadRequest, validationErrorResponse{
				Error:      "validation failed",
				Code:       codeInvalidRequest,
				Violations: violations,
			})
			return
		}

		res, err := svc.CreatePayment(r.Context(), app.CreatePaymentInput{
			ProductID:          req.ProductID,
			Quantity:           req.Quantity,
			CustomerFullName:   req.Customer.FullName,
			CustomerEmail:      req.Customer.Email,
			DeliveryAddress:    req.Delivery.AddressLine1,
			CardToken:          req.Wompi.CardToken,
			Installments:       req.Wompi.Installments,
			AcceptanceToken:    req.Wompi.AcceptanceToken,
			AcceptPersonalAuth: req.Wompi.AcceptPersonalAuth,
		})
		if err != nil {
			writeCreatePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createPaymentResponse{
			TransactionID:      res.TransactionID,
			Reference:          res.Reference,
			WompiTransactionID: res.WompiTransactionID,
			Status:             string(res.Status),
			WompiStatus:        res.WompiStatus,
		})
	}
}

func writeCreatePaymentError(w http.ResponseWriter, err error) {
	var gwErr *wompi.GatewayError
	switch {
	case errors.As(err, &gwErr):
		// Surface the gateway's own status and body so the caller can
		// see why the card was rejected.
		writeJSON(w, http.StatusBadRequest, gatewayRejectedResponse{
			Error:       "wompi transaction failed",
			Code:        codeGatewayRejected,
			WompiStatus: gwErr.Status,
			WompiData:   gwErr.Body,
		})
	case errors.Is(err, wompi.ErrGatewayUnavailable):
		writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "payment gateway unavailable")
	case errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrNoStockRow):
		writeError(w, http.StatusBadRequest, codeNoStockRow, err.Error())
	case errors.Is(err, domain.ErrNotEnoughStock):
		writeError(w, http.StatusBadRequest, codeNotEnoughStock, err.Error())
	case errors.Is(err, domain.ErrFulfillmentConflict):
		writeError(w, http.StatusConflict, codeFulfillmentConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type getPaymentResponse struct {
	TransactionID      string    `json:"transactionId"`
	Reference          string    `json:"reference"`
	WompiTransactionID string    `json:"wompiTransactionId,omitempty"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// HandleGetPayment returns the handler for payment status lookups.
func HandleGetPayment(svc PaymentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txID := chi.URLParam(r, "id")
		if txID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "missing id")
			return
		}

		tx, err := svc.GetPayment(r.Context(), txID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTransactionNotFound):
				writeError(w, http.StatusNotFound, codeTransactionNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, getPaymentResponse{
			TransactionID:      tx.ID,
			Reference:          tx.Reference,
			WompiTransactionID: tx.WompiTransactionID,
			Status:             string(tx.Status),
			CreatedAt:          tx.CreatedAt,
			UpdatedAt:          tx.UpdatedAt,
		})
	}
}

type paymentStatusResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// HandlePaymentStatus answers the storefront's polling loop. Terminal
// statuses are served from the cache when it is warm.
func HandlePaymentStatus(svc PaymentGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txID := chi.URLParam(r, "id")
		if txID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "missing id")
			return
		}

		status, err := svc.PaymentStatus(r.Context(), txID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTransactionNotFound):
				writeError(w, http.StatusNotFound, codeTransactionNotFound, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, paymentStatusResponse{TransactionID: txID, Status: string(status)})
	}
}
