package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/encoding"
)

// contextKey avoids collisions with other packages' context keys.
type contextKey string

// PaymentContextKey is the context key under which the payer address of a
// settled payment is stored for downstream handlers.
const PaymentContextKey = contextKey("x402_payment")

// facilitatorCallTimeout bounds the gate's own server-to-facilitator round
// trip, independent of whatever timeout the facilitator enforces internally.
const facilitatorCallTimeout = 30 * time.Second

// Settler is the facilitator capability the gate needs: a single combined
// verify-and-settle call. Both facilitator.Facilitator (in-process) and
// facilitator.Client (remote HTTP) satisfy it.
type Settler interface {
	Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error)
}

// Gate wraps http.Handlers with payment gating for a single route.
type Gate struct {
	chain   x402.ChainConfig
	settler Settler
	route   RoutePaymentConfig
	logger  *slog.Logger
}

// GateOption customizes a Gate at construction time.
type GateOption func(*Gate)

// WithGateLogger overrides the default slog.Default() logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// NewGate builds a Gate for route, settling through s.
func NewGate(chain x402.ChainConfig, s Settler, route RoutePaymentConfig, opts ...GateOption) *Gate {
	g := &Gate{chain: chain, settler: s, route: route, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Wrap returns an http.Handler that gates next behind a settled payment
// matching the Gate's route configuration. Settlement happens before next
// runs: a handler invoked through Wrap always has an already-paid request.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := g.logger

		body, err := BuildPaymentRequiredBody(g.chain, g.route)
		if err != nil {
			logger.Error("invalid route payment config", "error", err)
			http.Error(w, "server misconfigured", http.StatusInternalServerError)
			return
		}
		requirements := body.Accepts[0]

		paymentHeader := r.Header.Get("X-PAYMENT")
		if paymentHeader == "" {
			logger.Info("no payment header provided", "path", r.URL.Path, "reason", x402.ErrPaymentRequired)
			sendPaymentRequired(w, body)
			return
		}

		payload, err := decodePaymentHeader(paymentHeader)
		if err != nil {
			logger.Warn("malformed payment header", "error", err)
			sendPaymentRequired(w, body)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), facilitatorCallTimeout)
		defer cancel()

		logger.Info("settling payment", "payer", payload.Payload.From)
		settleResp, err := g.settler.Settle(ctx, payload, requirements)
		if err != nil {
			if errors.Is(err, x402.ErrFacilitatorAuth) {
				logger.Error("facilitator auth misconfigured", "error", err)
				http.Error(w, "facilitator auth misconfigured", http.StatusInternalServerError)
				return
			}
			logger.Error("facilitator unreachable", "error", err)
			http.Error(w, "facilitator unreachable", http.StatusBadGateway)
			return
		}
		if !settleResp.Success {
			logger.Warn("settlement unsuccessful", "reason", settleResp.ErrorReason)
			failed := *body
			failed.Description = settleResp.ErrorReason
			sendPaymentRequired(w, &failed)
			return
		}

		logger.Info("payment settled", "payer", settleResp.Payer, "transaction", settleResp.Transaction)
		if err := addPaymentResponseHeader(w, settleResp); err != nil {
			logger.Warn("failed to add payment response header", "error", err)
		}
		// Legacy alias some clients still look for.
		if resp := w.Header().Get("X-PAYMENT-RESPONSE"); resp != "" {
			w.Header().Set("payment-response", resp)
		}

		ctx = context.WithValue(r.Context(), PaymentContextKey, settleResp.Payer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func decodePaymentHeader(headerValue string) (x402.PaymentPayload, error) {
	payload, err := encoding.DecodePayment(headerValue)
	if err != nil {
		return payload, errors.Join(x402.ErrMalformedHeader, err)
	}
	if payload.X402Version != x402.X402Version {
		return payload, x402.ErrUnsupportedVersion
	}
	if err := payload.Payload.Validate(); err != nil {
		return payload, errors.Join(x402.ErrMalformedHeader, err)
	}
	return payload, nil
}

func sendPaymentRequired(w http.ResponseWriter, body *x402.PaymentRequiredBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusPaymentRequired)
	_ = json.NewEncoder(w).Encode(body)
}

func addPaymentResponseHeader(w http.ResponseWriter, settlement *x402.SettleResponse) error {
	encoded, err := encoding.EncodeSettlement(*settlement)
	if err != nil {
		return err
	}
	w.Header().Set("X-PAYMENT-RESPONSE", encoded)
	return nil
}
