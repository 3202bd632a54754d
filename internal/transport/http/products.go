package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Emeeerrr/Shop-FS/internal/domain"
	"github.com/go-chi/chi/v5"
)

// ProductReader is the minimal interface needed for catalog reads.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

type productResponse struct {
	ID             string `json:"id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	PriceCents     int    `json:"priceCents"`
	Currency       string `json:"currency"`
	ImageURL       string `json:"imageUrl,omitempty"`
	UnitsAvailable int    `json:"unitsAvailable"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		PriceCents:     p.PriceCents,
		Currency:       p.Currency,
		ImageURL:       p.ImageURL,
		UnitsAvailable: p.Stock.UnitsAvailable,
	}
}

// HandleListProducts returns the storefront catalog handler.
func HandleListProducts(svc ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// HandleGetProduct returns the single-product handler.
func HandleGetProduct(svc ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "missing id")
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrProductNotFound):
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
			case errors.Is(err, domain.ErrNoStockRow):
				writeError(w, http.StatusNotFound, codeNoStockRow, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, toProductResponse(product))
	}
}
