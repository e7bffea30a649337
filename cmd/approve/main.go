// Command approve grants a facilitator spend authority over a payer's
// TIP-20 balance by calling approve(spender, amount) from the payer's own
// key. Every payer must run this once (or whenever their allowance is
// exhausted) before the facilitator can settle payments on their behalf.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/tip20"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file found, reading environment directly")
	}

	chain := x402.DefaultChainConfig()

	clientKeyHex := os.Getenv("EVM_PRIVATE_KEY")
	if clientKeyHex == "" {
		fmt.Fprintln(os.Stderr, "EVM_PRIVATE_KEY environment variable is required")
		os.Exit(1)
	}
	clientKey, err := crypto.HexToECDSA(strings.TrimPrefix(clientKeyHex, "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid EVM_PRIVATE_KEY: %v\n", err)
		os.Exit(1)
	}

	facilitatorAddrHex := os.Getenv("FACILITATOR_ADDRESS")
	if facilitatorAddrHex == "" {
		fmt.Fprintln(os.Stderr, "FACILITATOR_ADDRESS environment variable is required")
		os.Exit(1)
	}
	if err := x402.ValidateAddress(facilitatorAddrHex); err != nil {
		fmt.Fprintf(os.Stderr, "invalid FACILITATOR_ADDRESS: %v\n", err)
		os.Exit(1)
	}
	facilitatorAddr := common.HexToAddress(facilitatorAddrHex)

	if token := os.Getenv("TEMPO_TOKEN"); token != "" {
		chain.DefaultToken = token
	}
	if rpcURL := os.Getenv("RPC_URL"); rpcURL != "" {
		chain.RPCURL = rpcURL
	}

	rawAmount := os.Getenv("APPROVE_AMOUNT")
	if rawAmount == "" {
		fmt.Fprintln(os.Stderr, "APPROVE_AMOUNT is required.")
		fmt.Fprintln(os.Stderr, "Set it to the token amount to approve (e.g. 1000000000 for 1000 tokens at 6 decimals).")
		fmt.Fprintln(os.Stderr, `To grant unlimited approval (NOT recommended), set APPROVE_AMOUNT=MAX.`)
		os.Exit(1)
	}

	var approveAmount *big.Int
	if rawAmount == "MAX" {
		fmt.Fprintln(os.Stderr, "APPROVE_AMOUNT=MAX -- granting unlimited spend authority to the facilitator. This is NOT recommended for production.")
		approveAmount = maxUint256()
	} else {
		var ok bool
		approveAmount, ok = new(big.Int).SetString(rawAmount, 10)
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid APPROVE_AMOUNT %q: must be a base-10 integer or \"MAX\"\n", rawAmount)
			os.Exit(1)
		}
	}

	account := crypto.PubkeyToAddress(clientKey.PublicKey)

	fmt.Println("Approving facilitator for TIP-20 token...")
	fmt.Printf("  Client:      %s\n", account.Hex())
	fmt.Printf("  Facilitator: %s\n", facilitatorAddr.Hex())
	fmt.Printf("  Token:       %s\n", chain.DefaultToken)
	fmt.Printf("  Amount:      %s\n", approveAmount.String())

	client, err := ethclient.Dial(chain.RPCURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to dial RPC %q: %v\n", chain.RPCURL, err)
		os.Exit(1)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(clientKey, chain.ChainID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build transactor: %v\n", err)
		os.Exit(1)
	}

	adapter := tip20.NewAdapter(client, common.HexToAddress(chain.DefaultToken))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	current, err := adapter.Allowance(ctx, account, facilitatorAddr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read current allowance: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nCurrent allowance: %s\n", current.String())

	if current.Cmp(approveAmount) >= 0 {
		fmt.Println("Facilitator already has sufficient allowance -- nothing to do.")
		return
	}

	fmt.Println("Sending approval transaction...")
	receipt, err := adapter.Approve(context.Background(), opts, facilitatorAddr, approveAmount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "approval failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("  tx: %s\n", receipt.TxHash.Hex())
	fmt.Println("Approval confirmed.")
}

func maxUint256() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}
