// Package server implements the resource-server side of the tempo-tip20
// scheme: turning a route's human price into PaymentRequirements, emitting
// the 402 body, and gating handlers behind a verified-and-settled payment.
package server

import (
	"fmt"
	"math/big"
	"regexp"

	x402 "github.com/compusophy-bot/tempo-x402"
)

var pricePattern = regexp.MustCompile(`^\$(\d+)(?:\.(\d+))?$`)

// ParsePrice parses a human-readable USD-shaped price ("$0.001", "$1") into
// an integer token-unit amount at decimals precision, rounding the
// fractional remainder half to even. A bare number (no leading "$"),
// a missing amount ("$"), or a negative amount ("$-1") is rejected.
func ParsePrice(price string, decimals uint8) (string, error) {
	m := pricePattern.FindStringSubmatch(price)
	if m == nil {
		return "", fmt.Errorf("server: price %q must look like \"$X\" or \"$X.YY\"", price)
	}

	whole, frac := m[1], m[2]

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	amount := new(big.Int)
	amount.Mul(mustBigInt(whole), scale)

	if frac == "" {
		return amount.String(), nil
	}

	// Pad or truncate the fraction to decimals+1 digits: the extra digit is
	// the rounding digit used to decide half-to-even.
	rounded, err := scaleFraction(frac, decimals)
	if err != nil {
		return "", err
	}
	amount.Add(amount, rounded)
	return amount.String(), nil
}

// scaleFraction converts a fractional digit string into its contribution in
// token units at decimals precision, rounding half to even on the digit
// immediately past the target precision.
func scaleFraction(frac string, decimals uint8) (*big.Int, error) {
	extended := frac
	for len(extended) < int(decimals)+1 {
		extended += "0"
	}

	kept := extended[:decimals]
	roundingDigit := extended[decimals]
	remainderNonZero := false
	for _, r := range extended[decimals+1:] {
		if r != '0' {
			remainderNonZero = true
			break
		}
	}

	value := mustBigInt(kept)
	switch {
	case roundingDigit > '5', roundingDigit == '5' && remainderNonZero:
		value.Add(value, big.NewInt(1))
	case roundingDigit == '5':
		// Exactly half: round to even.
		if value.Bit(0) == 1 {
			value.Add(value, big.NewInt(1))
		}
	}
	return value, nil
}

func mustBigInt(digits string) *big.Int {
	if digits == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// RoutePaymentConfig is the route-level configuration the gate middleware
// turns into PaymentRequirements on each 402 response.
type RoutePaymentConfig struct {
	Price             string
	PayTo             string
	Description       string
	MimeType          string
	MaxTimeoutSeconds uint64
}

// defaultMaxTimeoutSeconds is used when a route does not set one.
const defaultMaxTimeoutSeconds = 300

// BuildPaymentRequiredBody assembles the 402 response body for cfg under
// chain, resolving price into an on-chain amount via ParsePrice.
func BuildPaymentRequiredBody(chain x402.ChainConfig, cfg RoutePaymentConfig) (*x402.PaymentRequiredBody, error) {
	amount, err := ParsePrice(cfg.Price, chain.TokenDecimals)
	if err != nil {
		return nil, err
	}
	if err := x402.ValidateAddress(cfg.PayTo); err != nil {
		return nil, fmt.Errorf("server: route payTo: %w", err)
	}

	maxTimeout := cfg.MaxTimeoutSeconds
	if maxTimeout == 0 {
		maxTimeout = defaultMaxTimeoutSeconds
	}

	return &x402.PaymentRequiredBody{
		X402Version: x402.X402Version,
		Accepts: []x402.PaymentRequirements{{
			Scheme:            chain.SchemeName,
			Network:           chain.Network,
			Price:             cfg.Price,
			Asset:             chain.DefaultToken,
			Amount:            amount,
			PayTo:             cfg.PayTo,
			MaxTimeoutSeconds: maxTimeout,
			Description:       cfg.Description,
			MimeType:          cfg.MimeType,
		}},
		Description: cfg.Description,
		MimeType:    cfg.MimeType,
	}, nil
}
