package facilitator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/security"
)

func TestClientSettleSignsAndDecodes(t *testing.T) {
	secret := []byte("shared-secret")
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotAuth = r.Header.Get("X-Facilitator-Auth")
		if !security.VerifyHMAC(secret, body, gotAuth) {
			t.Error("server-side HMAC verification failed")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(x402.SettleResponse{Success: true, Transaction: "0xabc", Network: "eip155:42431"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, secret)
	resp, err := c.Settle(context.Background(), x402.PaymentPayload{}, x402.PaymentRequirements{})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !resp.Success || resp.Transaction != "0xabc" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if gotAuth == "" {
		t.Fatal("expected X-Facilitator-Auth header to be sent")
	}
}

func TestClientSettleReturnsAuthErrorOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, []byte("secret"))
	_, err := c.Settle(context.Background(), x402.PaymentPayload{}, x402.PaymentRequirements{})
	if err == nil {
		t.Fatal("expected error on 401")
	}
}
