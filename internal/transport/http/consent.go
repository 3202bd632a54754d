package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/Emeeerrr/Shop-FS/internal/wompi"
)

// ConsentFetcher fetches the gateway's presigned consent tokens.
type ConsentFetcher interface {
	AcceptanceTokens(ctx context.Context) (wompi.ConsentTokens, error)
}

// HandleAcceptanceTokens proxies the merchant consent tokens to the
// storefront. Tokens are short-lived, so the response is never cached.
func HandleAcceptanceTokens(gw ConsentFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens, err := gw.AcceptanceTokens(r.Context())
		if err != nil {
			var gwErr *wompi.GatewayError
			if errors.As(err, &gwErr) {
				writeError(w, http.StatusBadGateway, codeGatewayRejected, "wompi rejected merchant lookup")
				return
			}
			writeError(w, http.StatusBadGateway, codeGatewayUnavailable, "payment gateway unavailable")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, tokens)
	}
}
