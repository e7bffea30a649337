package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"strings"
)

// ConstantTimeEqual compares a and b without leaking their length or
// content through timing. Both inputs are hashed to fixed-length SHA-256
// digests before the constant-time comparison, so two differently sized
// secrets compare no faster than two same-sized ones.
func ConstantTimeEqual(a, b []byte) bool {
	ha := sha256.Sum256(a)
	hb := sha256.Sum256(b)
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// CheckMetricsAuth implements the framework-agnostic bearer-token gate for
// the /metrics endpoint. authHeader is the raw Authorization header value
// (empty if absent). expectedToken is nil when no METRICS_TOKEN is
// configured. public mirrors X402_PUBLIC_METRICS.
//
// It returns (0, "") when access is allowed, or an HTTP status code and
// message to return to the caller otherwise: 401 when a token is
// configured but the request's bearer token doesn't match, 403 when no
// token is configured and the endpoint isn't public.
func CheckMetricsAuth(authHeader string, expectedToken []byte, public bool) (status int, message string) {
	if expectedToken != nil {
		const prefix = "Bearer "
		if strings.HasPrefix(authHeader, prefix) {
			token := strings.TrimPrefix(authHeader, prefix)
			if ConstantTimeEqual([]byte(token), expectedToken) {
				return 0, ""
			}
		}
		return 401, "Valid Bearer token required for /metrics"
	}
	if public {
		return 0, ""
	}
	return 403, "Set METRICS_TOKEN or X402_PUBLIC_METRICS=true to access /metrics"
}
