package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/security"
)

// facilitatorHTTPTimeout bounds the single server-to-facilitator round
// trip; the facilitator enforces its own verify/settle budget internally.
const facilitatorHTTPTimeout = 30 * time.Second

// Client calls a remote facilitator's single combined /verify-and-settle
// endpoint over HTTP, signing each request body with the shared HMAC
// secret. There is no separate remote verify call: the wire protocol
// verifies and settles in one round trip, so a server gate always ends up
// moving funds on a successful call.
type Client struct {
	BaseURL    string
	HMACSecret []byte
	HTTPClient *http.Client
}

// NewClient builds a Client with a default *http.Client.
func NewClient(baseURL string, hmacSecret []byte) *Client {
	return &Client{
		BaseURL:    baseURL,
		HMACSecret: hmacSecret,
		HTTPClient: &http.Client{},
	}
}

type verifyAndSettleRequest struct {
	PaymentPayload      x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements x402.PaymentRequirements `json:"paymentRequirements"`
}

// Settle posts {paymentPayload, paymentRequirements} to the remote
// facilitator's /verify-and-settle endpoint and returns its SettleResponse.
func (c *Client) Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, facilitatorHTTPTimeout)
	defer cancel()

	body, err := json.Marshal(verifyAndSettleRequest{PaymentPayload: payload, PaymentRequirements: requirements})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", x402.ErrFacilitatorUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify-and-settle", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", x402.ErrFacilitatorUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Facilitator-Auth", security.ComputeHMAC(c.HMACSecret, body))

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", x402.ErrFacilitatorUnavailable, err)
	}

	if httpResp.StatusCode == http.StatusUnauthorized {
		return nil, x402.ErrFacilitatorAuth
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: facilitator returned status %d", x402.ErrFacilitatorUnavailable, httpResp.StatusCode)
	}

	var resp x402.SettleResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", x402.ErrFacilitatorUnavailable, err)
	}
	return &resp, nil
}
