// Command facilitator runs the tempo-tip20 facilitator HTTP surface: it
// verifies and settles payment authorizations on behalf of resource servers
// that trust it with a shared HMAC secret.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/facilitator"
	"github.com/compusophy-bot/tempo-x402/tip20"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, reading environment directly")
	}

	logger := slog.Default()
	chain := x402.DefaultChainConfig()

	if rpcURL := os.Getenv("RPC_URL"); rpcURL != "" {
		chain.RPCURL = rpcURL
	}
	if token := os.Getenv("TEMPO_TOKEN"); token != "" {
		chain.DefaultToken = token
	}

	hmacSecret := os.Getenv("FACILITATOR_SHARED_SECRET")
	if hmacSecret == "" {
		fmt.Fprintln(os.Stderr, "FACILITATOR_SHARED_SECRET environment variable is required")
		os.Exit(1)
	}

	operatorKeyHex := os.Getenv("FACILITATOR_PRIVATE_KEY")
	if operatorKeyHex == "" {
		fmt.Fprintln(os.Stderr, "FACILITATOR_PRIVATE_KEY environment variable is required")
		os.Exit(1)
	}
	operatorKey, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKeyHex, "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid FACILITATOR_PRIVATE_KEY: %v\n", err)
		os.Exit(1)
	}

	client, err := ethclient.Dial(chain.RPCURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to dial RPC %q: %v\n", chain.RPCURL, err)
		os.Exit(1)
	}

	operator, err := bind.NewKeyedTransactorWithChainID(operatorKey, chain.ChainID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build transactor: %v\n", err)
		os.Exit(1)
	}

	adapter := tip20.NewAdapter(client, common.HexToAddress(chain.DefaultToken))
	f := facilitator.New(chain, adapter, operator, facilitator.WithFacilitatorLogger(logger))

	var metricsToken []byte
	if token := os.Getenv("METRICS_TOKEN"); token != "" {
		metricsToken = []byte(token)
	}
	publicMetrics := os.Getenv("X402_PUBLIC_METRICS") == "true"

	srv, err := facilitator.NewServer(f, []byte(hmacSecret), client, chain.Network,
		facilitator.WithMetricsAuth(metricsToken, publicMetrics),
		facilitator.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build facilitator server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	chainID, err := client.ChainID(ctx)
	cancel()
	if err != nil {
		logger.Warn("could not confirm chain ID at startup", "error", err)
	} else if chainID.Cmp(chain.ChainID) != 0 {
		logger.Warn("RPC chain ID does not match configured chain ID", "rpc", chainID, "configured", chain.ChainID)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4402"
	}

	logger.Info("starting facilitator",
		"network", chain.Network,
		"operator", operator.From.Hex(),
		"token", chain.DefaultToken,
		"port", port,
		"publicMetrics", publicMetrics,
	)

	if err := http.ListenAndServe(":"+port, srv.Router()); err != nil {
		logger.Error("facilitator server exited", "error", err)
		os.Exit(1)
	}
}
