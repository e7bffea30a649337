// Package facilitator implements the facilitator side of the tempo-tip20
// scheme: signature/balance/allowance verification and on-chain
// transferFrom settlement, plus the HTTP surface the server gate talks to.
package facilitator

import (
	"context"

	x402 "github.com/compusophy-bot/tempo-x402"
)

// Interface is the full facilitator contract: verify a payment without
// moving funds, or verify-and-settle it. Facilitator implements both; a
// remote Client only implements Settle, since the wire protocol exposes a
// single combined endpoint (server.Settler is the narrower interface a gate
// actually depends on).
type Interface interface {
	// Verify checks a payment authorization's signature, time window, and
	// on-chain balance/allowance without spending the nonce or moving funds.
	Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error)

	// Settle verifies, re-checks the nonce under the payer's lock, and
	// executes transferFrom on success, consuming the nonce.
	Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error)
}
