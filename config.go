package x402

import (
	"fmt"
	"time"
)

// TimeoutConfig controls how long the server and facilitator wait on each
// leg of a payment before giving up.
type TimeoutConfig struct {
	// VerifyTimeout bounds a standalone Verify call's signature/balance/
	// allowance checks. The verify step inside Settle runs under
	// SettleTimeout instead.
	VerifyTimeout time.Duration

	// SettleTimeout bounds the full on-chain transferFrom round trip,
	// including receipt polling. Must be >= VerifyTimeout.
	SettleTimeout time.Duration

	// RequestTimeout is checked by Validate but not read elsewhere in this
	// module: facilitator.Client and server.Gate bound the server's call to
	// /verify-and-settle with their own fixed 30-second timeouts.
	RequestTimeout time.Duration
}

// DefaultTimeouts mirrors the budget the facilitator enforces when no
// override is configured.
var DefaultTimeouts = TimeoutConfig{
	VerifyTimeout:  5 * time.Second,
	SettleTimeout:  60 * time.Second,
	RequestTimeout: 120 * time.Second,
}

// Validate checks that the configured durations are usable. SettleTimeout
// must be at least VerifyTimeout since settlement always performs a verify
// first.
func (c TimeoutConfig) Validate() error {
	if c.VerifyTimeout <= 0 {
		return fmt.Errorf("verifyTimeout must be positive")
	}
	if c.SettleTimeout <= 0 {
		return fmt.Errorf("settleTimeout must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("requestTimeout must be positive")
	}
	if c.SettleTimeout < c.VerifyTimeout {
		return fmt.Errorf("settleTimeout must be >= verifyTimeout")
	}
	return nil
}
