package x402

import (
	"errors"
	"fmt"
)

// Standard x402 sentinel errors. Prefer errors.Is against these over
// matching on PaymentError.Kind strings where both are available.
var (
	ErrPaymentRequired       = errors.New("payment required")
	ErrMalformedHeader       = errors.New("malformed payment header")
	ErrUnsupportedVersion    = errors.New("unsupported x402 version")
	ErrUnsupportedScheme     = errors.New("unsupported payment scheme")
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrExpiredAuthorization  = errors.New("expired authorization")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNonceReused           = errors.New("nonce already used")
	ErrRecipientMismatch     = errors.New("recipient mismatch")
	ErrAmountMismatch        = errors.New("amount mismatch")
	ErrFacilitatorUnavailable = errors.New("facilitator unavailable")
	ErrFacilitatorAuth       = errors.New("facilitator authentication failed")
	ErrSettlementFailed      = errors.New("settlement failed")
	ErrChainError            = errors.New("chain error")
	ErrTimeout               = errors.New("operation timed out")
	ErrInvalidKeystore       = errors.New("invalid keystore")
	ErrInvalidMnemonic       = errors.New("invalid mnemonic")
)

// ErrorKind classifies a PaymentError for machine-readable reporting
// (metrics labels, structured logs) without callers needing to string-match
// the human-readable Message.
type ErrorKind string

const (
	KindSignatureError        ErrorKind = "signature_error"
	KindInvalidPayment        ErrorKind = "invalid_payment"
	KindNonceReuse            ErrorKind = "nonce_reuse"
	KindInsufficientBalance   ErrorKind = "insufficient_balance"
	KindInsufficientAllowance ErrorKind = "insufficient_allowance"
	KindChainError            ErrorKind = "chain_error"
	KindHMACAuthFailure       ErrorKind = "hmac_auth_failure"
	KindSerializationError    ErrorKind = "serialization_error"
)

// PaymentError wraps a sentinel error with a machine-readable Kind, a
// human-readable message, and optional key/value details for logging.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Details map[string]string
}

func (e *PaymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PaymentError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches additional context to a PaymentError for logging.
// It returns the same error so it can be chained at the call site.
func (e *PaymentError) WithDetails(kv ...string) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Details[kv[i]] = kv[i+1]
	}
	return e
}

// NewPaymentError constructs a PaymentError of the given kind wrapping cause.
func NewPaymentError(kind ErrorKind, message string, cause error) *PaymentError {
	return &PaymentError{Kind: kind, Message: message, Cause: cause}
}
