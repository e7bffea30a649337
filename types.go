package x402

import (
	"fmt"
	"regexp"
)

// X402Version is the protocol version this module speaks. It is carried in
// every PaymentPayload and PaymentRequiredBody.
const X402Version = 1

var (
	addressPattern   = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	signaturePattern = regexp.MustCompile(`^0x[a-fA-F0-9]+$`)
	noncePattern     = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// TempoPaymentData is the tempo-tip20 scheme payload: a signed
// PaymentAuthorization plus the signature that authorizes it.
type TempoPaymentData struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Token       string `json:"token"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
}

// Validate checks the wire-level shape of the payload. It does not verify
// the signature or touch chain state; that is the facilitator's job.
func (d *TempoPaymentData) Validate() error {
	if !addressPattern.MatchString(d.From) {
		return fmt.Errorf("from: invalid address")
	}
	if !addressPattern.MatchString(d.To) {
		return fmt.Errorf("to: invalid address")
	}
	if !addressPattern.MatchString(d.Token) {
		return fmt.Errorf("token: invalid address")
	}
	if err := validatePositiveDecimal(d.Value); err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if !noncePattern.MatchString(d.Nonce) {
		return fmt.Errorf("nonce: must be 0x-prefixed 32 bytes")
	}
	if !signaturePattern.MatchString(d.Signature) {
		return fmt.Errorf("signature: invalid format")
	}
	if err := validateUnixSeconds(d.ValidAfter); err != nil {
		return fmt.Errorf("validAfter: %w", err)
	}
	if err := validateUnixSeconds(d.ValidBefore); err != nil {
		return fmt.Errorf("validBefore: %w", err)
	}
	return nil
}

// PaymentPayload is the envelope sent by the client in the X-PAYMENT header
// and forwarded by the server to the facilitator.
type PaymentPayload struct {
	X402Version int              `json:"x402Version"`
	Payload     TempoPaymentData `json:"payload"`
}

// PaymentRequirements describes one acceptable way to pay for a resource.
type PaymentRequirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	Price             string `json:"price"`
	Asset             string `json:"asset"`
	Amount            string `json:"amount"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds uint64 `json:"maxTimeoutSeconds"`
	Description       string `json:"description,omitempty"`
	MimeType          string `json:"mimeType,omitempty"`
}

// PaymentRequiredBody is the JSON body returned with an HTTP 402 response.
type PaymentRequiredBody struct {
	X402Version int                   `json:"x402Version"`
	Accepts     []PaymentRequirements `json:"accepts"`
	Description string                `json:"description,omitempty"`
	MimeType    string                `json:"mimeType,omitempty"`
}

// VerifyResponse is the facilitator's answer to a verify-only check.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's answer to a settlement request.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Payer       string `json:"payer,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network"`
}

func validatePositiveDecimal(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("must be a base-10 integer string")
		}
	}
	if s == "0" {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateUnixSeconds(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("must be a base-10 integer string")
		}
	}
	return nil
}

// ValidateAddress validates an EVM address's wire format.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(address) {
		return fmt.Errorf("invalid EVM address format (must be 0x + 40 hex characters)")
	}
	return nil
}
