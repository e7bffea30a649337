// Package security provides the shared constant-time comparison and
// HMAC helpers used to authenticate server-to-facilitator requests and to
// gate the facilitator's /metrics endpoint.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHMAC returns the hex-encoded HMAC-SHA256 of body under secret.
func ComputeHMAC(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC reports whether signature (hex-encoded) is a valid
// HMAC-SHA256 of body under secret. An invalid hex signature is replaced by
// a zero-filled value that is compared against the expected MAC rather
// than rejected early, so the timing
// does not distinguish "malformed signature" from "wrong signature".
func VerifyHMAC(secret, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		decoded = make([]byte, len(expected))
	}
	return hmac.Equal(decoded, expected)
}
