package encoding

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	x402 "github.com/compusophy-bot/tempo-x402"
)

func testPayload() x402.PaymentPayload {
	return x402.PaymentPayload{
		X402Version: x402.X402Version,
		Payload: x402.TempoPaymentData{
			From:        "0x1111111111111111111111111111111111111111",
			To:          "0x2222222222222222222222222222222222222222",
			Value:       "1000000",
			Token:       "0x20c0000000000000000000000000000000000000",
			ValidAfter:  "1700000000",
			ValidBefore: "1700000300",
			Nonce:       "0x1122334455667788990011223344556677889900112233445566778899aabbcc",
			Signature:   "0x" + strings.Repeat("ab", 65),
		},
	}
}

func TestEncodePayment(t *testing.T) {
	payment := testPayload()

	encoded, err := EncodePayment(payment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("encoded value is not valid base64: %v", err)
	}

	var got x402.PaymentPayload
	if err := json.Unmarshal(decoded, &got); err != nil {
		t.Fatalf("decoded value is not valid JSON: %v", err)
	}
	if got.X402Version != payment.X402Version {
		t.Errorf("version mismatch: got %d, want %d", got.X402Version, payment.X402Version)
	}
	if got.Payload.From != payment.Payload.From {
		t.Errorf("from mismatch: got %s, want %s", got.Payload.From, payment.Payload.From)
	}
}

func TestDecodePayment(t *testing.T) {
	payload := testPayload()
	valid, err := EncodePayment(payload)
	if err != nil {
		t.Fatalf("encode setup: %v", err)
	}

	tests := []struct {
		name    string
		encoded string
		wantErr bool
		errMsg  string
	}{
		{name: "valid encoded payment", encoded: valid, wantErr: false},
		{name: "invalid base64", encoded: "not-valid-base64!!!", wantErr: true, errMsg: "failed to decode base64"},
		{name: "invalid JSON", encoded: base64.StdEncoding.EncodeToString([]byte(`{invalid json`)), wantErr: true, errMsg: "failed to unmarshal payment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayment(tt.encoded)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error message should contain %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Payload.From != payload.Payload.From {
				t.Errorf("from mismatch: got %s, want %s", got.Payload.From, payload.Payload.From)
			}
		})
	}
}

func TestEncodeSettlement(t *testing.T) {
	tests := []struct {
		name       string
		settlement x402.SettleResponse
	}{
		{
			name:       "valid settlement",
			settlement: x402.SettleResponse{Success: true, Transaction: "0xtxhash", Payer: "0xpayer", Network: "eip155:42431"},
		},
		{
			name:       "failed settlement",
			settlement: x402.SettleResponse{Success: false, ErrorReason: "payment rejected", Network: "eip155:42431"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeSettlement(tt.settlement)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			decoded, err := base64.StdEncoding.DecodeString(encoded)
			if err != nil {
				t.Fatalf("encoded value is not valid base64: %v", err)
			}

			var settlement x402.SettleResponse
			if err := json.Unmarshal(decoded, &settlement); err != nil {
				t.Fatalf("decoded value is not valid JSON: %v", err)
			}
			if settlement.Success != tt.settlement.Success {
				t.Errorf("success mismatch: got %v, want %v", settlement.Success, tt.settlement.Success)
			}
			if settlement.Transaction != tt.settlement.Transaction {
				t.Errorf("transaction mismatch: got %s, want %s", settlement.Transaction, tt.settlement.Transaction)
			}
		})
	}
}

func TestDecodeSettlement(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		want    x402.SettleResponse
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid settlement",
			encoded: base64.StdEncoding.EncodeToString([]byte(`{"success":true,"transaction":"0xtxhash","payer":"0xpayer","network":"eip155:42431"}`)),
			want:    x402.SettleResponse{Success: true, Transaction: "0xtxhash", Payer: "0xpayer", Network: "eip155:42431"},
		},
		{name: "invalid base64", encoded: "not valid base64!!!", wantErr: true, errMsg: "failed to decode base64"},
		{name: "invalid JSON", encoded: base64.StdEncoding.EncodeToString([]byte(`{not valid json`)), wantErr: true, errMsg: "failed to unmarshal settlement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settlement, err := DecodeSettlement(tt.encoded)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error message should contain %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if settlement.Success != tt.want.Success {
				t.Errorf("success mismatch: got %v, want %v", settlement.Success, tt.want.Success)
			}
			if settlement.Transaction != tt.want.Transaction {
				t.Errorf("transaction mismatch: got %s, want %s", settlement.Transaction, tt.want.Transaction)
			}
		})
	}
}

func TestEncodeRequirements(t *testing.T) {
	body := x402.PaymentRequiredBody{
		X402Version: x402.X402Version,
		Description: "payment required",
		Accepts: []x402.PaymentRequirements{
			{
				Scheme:  "tempo-tip20",
				Network: "eip155:42431",
				Asset:   "0x20c0000000000000000000000000000000000000",
				PayTo:   "0x2222222222222222222222222222222222222222",
				Amount:  "1000000",
			},
		},
	}

	data, err := EncodeRequirements(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got x402.PaymentRequiredBody
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("encoded value is not valid JSON: %v", err)
	}
	if got.X402Version != body.X402Version {
		t.Errorf("version mismatch: got %d, want %d", got.X402Version, body.X402Version)
	}
	if len(got.Accepts) != len(body.Accepts) {
		t.Errorf("accepts length mismatch: got %d, want %d", len(got.Accepts), len(body.Accepts))
	}
}

func TestDecodeRequirements(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
		errMsg  string
	}{
		{name: "valid requirements", data: []byte(`{"x402Version":1,"accepts":[]}`)},
		{name: "invalid JSON", data: []byte(`{bad json`), wantErr: true, errMsg: "failed to unmarshal payment required body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := DecodeRequirements(tt.data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got nil")
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error message should contain %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body.X402Version != 1 {
				t.Errorf("version mismatch: got %d, want 1", body.X402Version)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Run("payment round trip", func(t *testing.T) {
		original := testPayload()

		encoded, err := EncodePayment(original)
		if err != nil {
			t.Fatalf("encode error: %v", err)
		}

		decoded, err := DecodePayment(encoded)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}

		if decoded.X402Version != original.X402Version {
			t.Errorf("version mismatch after round trip")
		}
		if decoded.Payload.From != original.Payload.From {
			t.Errorf("from mismatch after round trip")
		}
	})

	t.Run("settlement round trip", func(t *testing.T) {
		original := x402.SettleResponse{Success: true, Transaction: "0xtx", Payer: "0xpayer", Network: "eip155:42431"}

		encoded, err := EncodeSettlement(original)
		if err != nil {
			t.Fatalf("encode error: %v", err)
		}

		decoded, err := DecodeSettlement(encoded)
		if err != nil {
			t.Fatalf("decode error: %v", err)
		}

		if decoded.Success != original.Success {
			t.Errorf("success mismatch after round trip")
		}
		if decoded.Transaction != original.Transaction {
			t.Errorf("transaction mismatch after round trip")
		}
	})
}
