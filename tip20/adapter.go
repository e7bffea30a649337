// Package tip20 wraps the four TIP-20 (ERC-20 compatible) contract methods
// the facilitator needs: balanceOf, allowance, transferFrom, and approve.
package tip20

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	x402 "github.com/compusophy-bot/tempo-x402"
)

const tip20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

var tip20ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(tip20ABIJSON))
	if err != nil {
		panic(fmt.Sprintf("tip20: invalid embedded ABI: %v", err))
	}
	tip20ABI = parsed
}

// sendTimeout bounds how long transferFrom's send() may take before the
// per-payer lock holding the caller gives up. approve has no send timeout
// in the reference implementation; it relies on the RPC client's own
// request timeout for that leg.
const sendTimeout = 30 * time.Second

// receiptTimeout bounds how long either call waits for its transaction to
// be mined.
const receiptTimeout = 60 * time.Second

// ChainClient is the minimal blockchain RPC surface the adapter needs,
// satisfied in production by an ethclient.Client dialed against
// ChainConfig.RPCURL.
type ChainClient interface {
	bind.ContractCaller
	bind.ContractTransactor
	bind.ContractFilterer
	bind.DeployBackend
}

// Adapter binds a TIP-20 token address to a ChainClient and exposes the
// four contract calls the facilitator needs, with the timeouts the
// reference facilitator enforces.
type Adapter struct {
	client ChainClient
	token  common.Address
	bound  *bind.BoundContract
}

// NewAdapter returns an Adapter for token on client.
func NewAdapter(client ChainClient, token common.Address) *Adapter {
	return &Adapter{
		client: client,
		token:  token,
		bound:  bind.NewBoundContract(token, tip20ABI, client, client, client),
	}
}

// BalanceOf returns owner's token balance.
func (a *Adapter) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	var out []interface{}
	err := a.bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", owner)
	if err != nil {
		return nil, x402.NewPaymentError(x402.KindChainError, "balanceOf failed", err)
	}
	return out[0].(*big.Int), nil
}

// Allowance returns the amount spender may transferFrom owner.
func (a *Adapter) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	var out []interface{}
	err := a.bound.Call(&bind.CallOpts{Context: ctx}, &out, "allowance", owner, spender)
	if err != nil {
		return nil, x402.NewPaymentError(x402.KindChainError, "allowance failed", err)
	}
	return out[0].(*big.Int), nil
}

// TransferFrom executes transferFrom(from, to, value), signed by opts, and
// waits for the transaction to be mined. This holds the per-payer lock in
// the caller, so a hang here blocks all settlement for that payer; that is
// why both the send and the receipt poll are individually timed out.
func (a *Adapter) TransferFrom(ctx context.Context, opts *bind.TransactOpts, from, to common.Address, value *big.Int) (*types.Receipt, error) {
	sendCtx, cancelSend := context.WithTimeout(ctx, sendTimeout)
	defer cancelSend()

	tx, err := a.bound.Transact(withContext(opts, sendCtx), "transferFrom", from, to, value)
	if err != nil {
		if sendCtx.Err() != nil {
			return nil, x402.NewPaymentError(x402.KindChainError, fmt.Sprintf("transferFrom send timed out after %s", sendTimeout), x402.ErrTimeout)
		}
		return nil, x402.NewPaymentError(x402.KindChainError, "transferFrom send failed", err)
	}

	receiptCtx, cancelReceipt := context.WithTimeout(ctx, receiptTimeout)
	defer cancelReceipt()

	receipt, err := bind.WaitMined(receiptCtx, a.client, tx)
	if err != nil {
		if receiptCtx.Err() != nil {
			return nil, x402.NewPaymentError(x402.KindChainError, fmt.Sprintf("transferFrom receipt timed out after %s", receiptTimeout), x402.ErrTimeout)
		}
		return nil, x402.NewPaymentError(x402.KindChainError, "transferFrom receipt failed", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, x402.NewPaymentError(x402.KindChainError, "transferFrom reverted", nil)
	}
	return receipt, nil
}

// Approve executes approve(spender, amount), signed by opts, and waits for
// the transaction to be mined. Used only by operator tooling (cmd/approve),
// never by the payment-verification hot path.
func (a *Adapter) Approve(ctx context.Context, opts *bind.TransactOpts, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	tx, err := a.bound.Transact(opts, "approve", spender, amount)
	if err != nil {
		return nil, x402.NewPaymentError(x402.KindChainError, "approve send failed", err)
	}

	receiptCtx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(receiptCtx, a.client, tx)
	if err != nil {
		if receiptCtx.Err() != nil {
			return nil, x402.NewPaymentError(x402.KindChainError, fmt.Sprintf("approve receipt timed out after %s", receiptTimeout), x402.ErrTimeout)
		}
		return nil, x402.NewPaymentError(x402.KindChainError, "approve receipt failed", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, x402.NewPaymentError(x402.KindChainError, "approve reverted", nil)
	}
	return receipt, nil
}

func withContext(opts *bind.TransactOpts, ctx context.Context) *bind.TransactOpts {
	cp := *opts
	cp.Context = ctx
	return &cp
}
