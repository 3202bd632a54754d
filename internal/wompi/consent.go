package wompi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// PresignedToken is a short-lived proof that the customer accepted one
// of the gateway's legal terms.
type PresignedToken struct {
	AcceptanceToken string `json:"acceptance_token"`
	Permalink       string `json:"permalink"`
	Type            string `json:"type"`
}

// ConsentTokens are fetched fresh per checkout session and echoed back
// on the authorize call. They expire quickly, so callers must not cache
// them across sessions.
type ConsentTokens struct {
	Acceptance       PresignedToken `json:"acceptance"`
	PersonalDataAuth PresignedToken `json:"personalDataAuth"`
}

// AcceptanceTokens fetches the merchant's presigned consent tokens from
// the public endpoint (no private credential involved).
func (c *Client) AcceptanceTokens(ctx context.Context) (ConsentTokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/merchants/"+c.publicKey, nil)
	if err != nil {
		return ConsentTokens{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ConsentTokens{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ConsentTokens{}, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ConsentTokens{}, &GatewayError{Status: resp.StatusCode, Body: json.RawMessage(raw)}
	default:
		return ConsentTokens{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			PresignedAcceptance       PresignedToken `json:"presigned_acceptance"`
			PresignedPersonalDataAuth PresignedToken `json:"presigned_personal_data_auth"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ConsentTokens{}, fmt.Errorf("decode merchant: %w", err)
	}

	return ConsentTokens{
		Acceptance:       envelope.Data.PresignedAcceptance,
		PersonalDataAuth: envelope.Data.PresignedPersonalDataAuth,
	}, nil
}
