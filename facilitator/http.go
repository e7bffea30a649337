package facilitator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/security"
)

// BlockNumberer is the health check's chain probe. It is satisfied by
// ethclient.Client.
type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Server exposes a Facilitator over HTTP: POST /verify-and-settle (HMAC
// gated), GET /health (unauthenticated, probes the chain), and GET
// /metrics (bearer gated or public per configuration).
type Server struct {
	facilitator   *Facilitator
	hmacSecret    []byte
	blockNumberer BlockNumberer
	chainLabel    string
	metricsToken  []byte
	publicMetrics bool
	logger        *slog.Logger
}

// ServerOption customizes a Server at construction time.
type ServerOption func(*Server)

// WithMetricsAuth configures the /metrics bearer token and public flag.
func WithMetricsAuth(token []byte, public bool) ServerOption {
	return func(s *Server) { s.metricsToken = token; s.publicMetrics = public }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer builds a Server. hmacSecret must be non-empty: the facilitator
// will not start without a shared secret authenticating its callers.
func NewServer(f *Facilitator, hmacSecret []byte, blockNumberer BlockNumberer, chainLabel string, opts ...ServerOption) (*Server, error) {
	if len(hmacSecret) == 0 {
		return nil, fmt.Errorf("facilitator: hmac secret must not be empty")
	}
	s := &Server{
		facilitator:   f,
		hmacSecret:    hmacSecret,
		blockNumberer: blockNumberer,
		chainLabel:    chainLabel,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the chi.Router exposing this facilitator's HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/verify-and-settle", s.handleVerifyAndSettle)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	return r
}

type verifyAndSettleRequest struct {
	PaymentPayload      x402.PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements x402.PaymentRequirements `json:"paymentRequirements"`
}

func (s *Server) handleVerifyAndSettle(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.facilitator.metrics.ObserveHMACFailure("malformed")
		s.logger.Warn("verify-and-settle rejected", "kind", x402.KindSerializationError, "reason", "failed to read request body", "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("X-Facilitator-Auth")
	if sig == "" {
		s.facilitator.metrics.ObserveHMACFailure("missing")
		s.logger.Warn("verify-and-settle rejected", "kind", x402.KindHMACAuthFailure, "reason", "missing X-Facilitator-Auth header")
		http.Error(w, "missing X-Facilitator-Auth header", http.StatusUnauthorized)
		return
	}
	if !security.VerifyHMAC(s.hmacSecret, body, sig) {
		s.facilitator.metrics.ObserveHMACFailure("mismatch")
		s.logger.Warn("verify-and-settle rejected", "kind", x402.KindHMACAuthFailure, "reason", "X-Facilitator-Auth signature mismatch")
		http.Error(w, "invalid X-Facilitator-Auth signature", http.StatusUnauthorized)
		return
	}

	var req verifyAndSettleRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warn("verify-and-settle rejected", "kind", x402.KindSerializationError, "reason", "malformed JSON body", "error", err)
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}

	resp, err := s.facilitator.Settle(r.Context(), req.PaymentPayload, req.PaymentRequirements)
	if err != nil {
		s.logger.Error("settle failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	block, err := s.blockNumberer.BlockNumber(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.logger.Error("health check: RPC unreachable", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "degraded",
			"chain":  s.chainLabel,
			"error":  "RPC unreachable",
		})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":      "ok",
		"chain":       s.chainLabel,
		"latestBlock": fmt.Sprintf("%d", block),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	status, message := security.CheckMetricsAuth(r.Header.Get("Authorization"), s.metricsToken, s.publicMetrics)
	if status != 0 {
		http.Error(w, message, status)
		return
	}
	s.facilitator.Metrics().Handler().ServeHTTP(w, r)
}
