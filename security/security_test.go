package security

import "testing"

func TestHMACRoundtrip(t *testing.T) {
	secret := []byte("test-secret")
	body := []byte("request body content")
	sig := ComputeHMAC(secret, body)
	if !VerifyHMAC(secret, body, sig) {
		t.Fatal("VerifyHMAC rejected a signature it just computed")
	}
}

func TestHMACWrongSecret(t *testing.T) {
	body := []byte("request body content")
	sig := ComputeHMAC([]byte("secret-1"), body)
	if VerifyHMAC([]byte("secret-2"), body, sig) {
		t.Fatal("VerifyHMAC accepted a signature from a different secret")
	}
}

func TestHMACTamperedBody(t *testing.T) {
	secret := []byte("test-secret")
	sig := ComputeHMAC(secret, []byte("original"))
	if VerifyHMAC(secret, []byte("tampered"), sig) {
		t.Fatal("VerifyHMAC accepted a signature for a different body")
	}
}

func TestHMACInvalidHex(t *testing.T) {
	if VerifyHMAC([]byte("secret"), []byte("body"), "not-hex-zz") {
		t.Fatal("VerifyHMAC accepted a malformed hex signature")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal", "hello", "hello", true},
		{"different", "hello", "world", false},
		{"different length", "short", "much longer string", false},
		{"both empty", "", "", true},
		{"empty vs nonempty", "", "notempty", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConstantTimeEqual([]byte(tt.a), []byte(tt.b)); got != tt.want {
				t.Errorf("ConstantTimeEqual(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCheckMetricsAuth(t *testing.T) {
	token := []byte("shh")
	tests := []struct {
		name       string
		authHeader string
		token      []byte
		public     bool
		wantStatus int
	}{
		{"valid bearer", "Bearer shh", token, false, 0},
		{"wrong bearer", "Bearer nope", token, false, 401},
		{"missing header with token configured", "", token, false, 401},
		{"no token, public", "", nil, true, 0},
		{"no token, not public", "", nil, false, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := CheckMetricsAuth(tt.authHeader, tt.token, tt.public)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
		})
	}
}
