// Package encoding provides the transport encoding shared by the client,
// server, and facilitator: X-PAYMENT and X-PAYMENT-RESPONSE cross the wire
// as base64-encoded JSON, and the 402 response body as plain JSON.
package encoding

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	x402 "github.com/compusophy-bot/tempo-x402"
)

// EncodePayment converts a PaymentPayload to the base64-encoded JSON string
// carried in an X-PAYMENT header.
func EncodePayment(payment x402.PaymentPayload) (string, error) {
	paymentJSON, err := json.Marshal(payment)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment: %w", err)
	}
	return base64.StdEncoding.EncodeToString(paymentJSON), nil
}

// DecodePayment converts an X-PAYMENT header value back to a PaymentPayload.
func DecodePayment(encoded string) (x402.PaymentPayload, error) {
	var payment x402.PaymentPayload

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return payment, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &payment); err != nil {
		return payment, fmt.Errorf("failed to unmarshal payment: %w", err)
	}

	return payment, nil
}

// EncodeSettlement converts a SettleResponse to the base64-encoded JSON
// string carried in an X-PAYMENT-RESPONSE header.
func EncodeSettlement(settlement x402.SettleResponse) (string, error) {
	settlementJSON, err := json.Marshal(settlement)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement: %w", err)
	}
	return base64.StdEncoding.EncodeToString(settlementJSON), nil
}

// DecodeSettlement converts an X-PAYMENT-RESPONSE header value back to a
// SettleResponse.
func DecodeSettlement(encoded string) (x402.SettleResponse, error) {
	var settlement x402.SettleResponse

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return settlement, fmt.Errorf("failed to decode base64: %w", err)
	}

	if err := json.Unmarshal(decoded, &settlement); err != nil {
		return settlement, fmt.Errorf("failed to unmarshal settlement: %w", err)
	}

	return settlement, nil
}

// EncodeRequirements marshals a 402 response body to JSON, for transports
// that want the raw bytes rather than writing straight to an
// http.ResponseWriter.
func EncodeRequirements(body x402.PaymentRequiredBody) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment required body: %w", err)
	}
	return data, nil
}

// DecodeRequirements parses a 402 response body.
func DecodeRequirements(data []byte) (x402.PaymentRequiredBody, error) {
	var body x402.PaymentRequiredBody
	if err := json.Unmarshal(data, &body); err != nil {
		return body, fmt.Errorf("failed to unmarshal payment required body: %w", err)
	}
	return body, nil
}
