package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterDeps collects the services the API exposes.
type RouterDeps struct {
	Payments interface {
		PaymentCreator
		PaymentGetter
	}
	Products ProductReader
	Consent  ConsentFetcher
}

// NewRouter wires the chi router. The checkout endpoint polls the
// gateway for up to ~12s, so the request timeout leaves headroom above
// that.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(MethodNotAllowedHandler())

	r.Get("/health", HealthHandler)
	r.Get("/products", HandleListProducts(deps.Products))
	r.Get("/products/{id}", HandleGetProduct(deps.Products))
	r.Get("/wompi/acceptance-tokens", HandleAcceptanceTokens(deps.Consent))
	r.Post("/payments", HandleCreatePayment(deps.Payments))
	r.Get("/payments/{id}", HandleGetPayment(deps.Payments))
	r.Get("/payments/{id}/status", HandlePaymentStatus(deps.Payments))

	return r
}
