// Command server runs an example resource server that gates a single
// endpoint behind the tempo-tip20 payment scheme, settling through a
// remote facilitator.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/facilitator"
	"github.com/compusophy-bot/tempo-x402/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, reading environment directly")
	}

	logger := slog.Default()
	chain := x402.DefaultChainConfig()

	facilitatorURL := os.Getenv("FACILITATOR_URL")
	if facilitatorURL == "" {
		fmt.Fprintln(os.Stderr, "FACILITATOR_URL environment variable is required")
		os.Exit(1)
	}

	hmacSecret := os.Getenv("FACILITATOR_SHARED_SECRET")
	if hmacSecret == "" {
		fmt.Fprintln(os.Stderr, "FACILITATOR_SHARED_SECRET environment variable is required")
		os.Exit(1)
	}

	payTo := os.Getenv("EVM_ADDRESS")
	if payTo == "" {
		fmt.Fprintln(os.Stderr, "EVM_ADDRESS environment variable is required (where settled funds are paid)")
		os.Exit(1)
	}

	price := os.Getenv("RESOURCE_PRICE")
	if price == "" {
		price = "$0.01"
	}

	client := facilitator.NewClient(facilitatorURL, []byte(hmacSecret))

	route := server.RoutePaymentConfig{
		Price:       price,
		PayTo:       payTo,
		Description: "access to the protected resource",
		MimeType:    "application/json",
	}
	gate := server.NewGate(chain, client, route, server.WithGateLogger(logger))

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/protected", gate.Wrap(http.HandlerFunc(protectedHandler)))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8402"
	}

	logger.Info("starting resource server",
		"network", chain.Network,
		"payTo", payTo,
		"price", price,
		"facilitator", facilitatorURL,
		"port", port,
	)

	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Error("resource server exited", "error", err)
		os.Exit(1)
	}
}

func protectedHandler(w http.ResponseWriter, r *http.Request) {
	payer, _ := r.Context().Value(server.PaymentContextKey).(string)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"message":"payment accepted","payer":%q}`, payer)
}
