package facilitator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/eip712"
	"github.com/compusophy-bot/tempo-x402/nonce"
	"github.com/compusophy-bot/tempo-x402/tip20"
)

// clockSkewSlack is the extra leeway granted on both ends of the
// authorization's [validAfter, validBefore] window to absorb clock drift
// between client, server, and facilitator.
const clockSkewSlack = 60 * time.Second

// nonceRetention is how long a consumed nonce is kept in the store after
// its authorization's own validBefore has passed, purely to bound memory;
// the authorization itself is unusable once validBefore elapses regardless
// of whether its nonce is still tracked.
const nonceRetention = time.Hour

// Facilitator is the in-process implementation of Interface: it verifies
// PaymentAuthorization signatures and time windows, checks on-chain
// balance and allowance, and settles via transferFrom.
type Facilitator struct {
	chain    x402.ChainConfig
	adapter  *tip20.Adapter
	nonces   *nonce.Store
	locks    *payerLocks
	operator *bind.TransactOpts
	metrics  *Metrics
	timeouts x402.TimeoutConfig
	now      func() time.Time
	logger   *slog.Logger
}

// Option customizes a Facilitator at construction time.
type Option func(*Facilitator)

// WithTimeouts overrides the default verify/settle/request timeout budget.
func WithTimeouts(t x402.TimeoutConfig) Option {
	return func(f *Facilitator) { f.timeouts = t }
}

// WithMetrics attaches a metrics registry; if not supplied, a private one
// is created (and reachable only via Metrics()).
func WithMetrics(m *Metrics) Option {
	return func(f *Facilitator) { f.metrics = m }
}

// WithFacilitatorLogger overrides the default slog.Default() logger used to
// report the Kind of internal failures (chain errors, nonce reuse) that
// never reach the wire response as anything more than a plain reason string.
func WithFacilitatorLogger(logger *slog.Logger) Option {
	return func(f *Facilitator) { f.logger = logger }
}

// New builds a Facilitator for chain, settling through adapter using
// operator's signed TransactOpts as the transferFrom caller.
func New(chain x402.ChainConfig, adapter *tip20.Adapter, operator *bind.TransactOpts, opts ...Option) *Facilitator {
	f := &Facilitator{
		chain:    chain,
		adapter:  adapter,
		nonces:   nonce.NewStore(),
		locks:    newPayerLocks(),
		operator: operator,
		metrics:  NewMetrics(),
		timeouts: x402.DefaultTimeouts,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Metrics returns the facilitator's metrics registry for wiring into an
// HTTP /metrics handler.
func (f *Facilitator) Metrics() *Metrics { return f.metrics }

type parsedAuth struct {
	from, to, token common.Address
	value           *big.Int
	validAfter      int64
	validBefore     int64
	nonceBytes      [32]byte
}

func parseAuth(d x402.TempoPaymentData) (parsedAuth, error) {
	var p parsedAuth
	if err := d.Validate(); err != nil {
		return p, fmt.Errorf("malformed payload: %w", err)
	}
	p.from = common.HexToAddress(d.From)
	p.to = common.HexToAddress(d.To)
	p.token = common.HexToAddress(d.Token)

	value, ok := new(big.Int).SetString(d.Value, 10)
	if !ok {
		return p, fmt.Errorf("value is not a valid integer")
	}
	p.value = value

	validAfter, err := strconv.ParseInt(d.ValidAfter, 10, 64)
	if err != nil {
		return p, fmt.Errorf("validAfter: %w", err)
	}
	validBefore, err := strconv.ParseInt(d.ValidBefore, 10, 64)
	if err != nil {
		return p, fmt.Errorf("validBefore: %w", err)
	}
	p.validAfter = validAfter
	p.validBefore = validBefore

	nonceBytes := common.FromHex(d.Nonce)
	if len(nonceBytes) != 32 {
		return p, fmt.Errorf("nonce must be 32 bytes")
	}
	copy(p.nonceBytes[:], nonceBytes)

	return p, nil
}

// Verify checks a payment authorization's signature, requirement match,
// time window, replay status, and on-chain balance/allowance. It never
// moves funds or consumes the nonce.
func (f *Facilitator) Verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeouts.VerifyTimeout)
	defer cancel()

	resp, _, err := f.verify(ctx, payload, requirements)
	if f.metrics != nil {
		result := "valid"
		if err != nil || !resp.IsValid {
			result = "invalid"
		}
		f.metrics.ObserveVerify(result)
	}
	return resp, err
}

// verify performs the checks shared by Verify and Settle, additionally
// returning the parsed authorization so Settle doesn't re-parse it.
func (f *Facilitator) verify(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.VerifyResponse, *parsedAuth, error) {
	if payload.X402Version != x402.X402Version {
		return invalid(x402.ErrUnsupportedVersion.Error()), nil, nil
	}
	if requirements.Scheme != f.chain.SchemeName {
		return invalid(x402.ErrUnsupportedScheme.Error()), nil, nil
	}
	if requirements.Network != f.chain.Network {
		return invalid("unsupported network"), nil, nil
	}
	if requirements.MaxTimeoutSeconds > x402.MaxTimeoutSecondsCap {
		return invalid("maxTimeoutSeconds exceeds facilitator cap"), nil, nil
	}

	auth, err := parseAuth(payload.Payload)
	if err != nil {
		f.logger.Debug("verify: rejected", "kind", x402.KindInvalidPayment, "reason", err)
		return invalid(err.Error()), nil, nil
	}

	if requirements.Asset != "" && !sameAddress(requirements.Asset, auth.token) {
		return invalidFor(auth, "token does not match requirements"), &auth, nil
	}
	if !sameAddress(requirements.PayTo, auth.to) {
		return invalidFor(auth, x402.ErrRecipientMismatch.Error()), &auth, nil
	}

	requiredAmount, ok := new(big.Int).SetString(requirements.Amount, 10)
	if !ok {
		return invalidFor(auth, "requirements amount is malformed"), &auth, nil
	}
	if auth.value.Cmp(requiredAmount) < 0 {
		return invalidFor(auth, x402.ErrAmountMismatch.Error()), &auth, nil
	}

	now := f.now().Unix()
	slack := int64(clockSkewSlack.Seconds())
	if now < auth.validAfter-slack || now > auth.validBefore+slack {
		return invalidFor(auth, x402.ErrExpiredAuthorization.Error()), &auth, nil
	}

	domain := eip712.Domain{Name: f.chain.EIP712DomainName, Version: f.chain.EIP712DomainVersion, ChainID: f.chain.ChainID}
	eipAuth := eip712.Authorization{
		From: auth.from, To: auth.to, Value: auth.value, Token: auth.token,
		ValidAfter: big.NewInt(auth.validAfter), ValidBefore: big.NewInt(auth.validBefore),
		Nonce: auth.nonceBytes,
	}
	signer, err := eip712.RecoverAddress(domain, eipAuth, payload.Payload.Signature)
	if err != nil {
		f.logger.Debug("verify: rejected", "kind", x402.KindSignatureError, "payer", auth.from.Hex(), "reason", err)
		return invalidFor(auth, x402.ErrInvalidSignature.Error()), &auth, nil
	}
	if signer != auth.from {
		f.logger.Debug("verify: rejected", "kind", x402.KindSignatureError, "payer", auth.from.Hex(), "recovered", signer.Hex())
		return invalidFor(auth, x402.ErrInvalidSignature.Error()), &auth, nil
	}

	if f.nonces.Contains(auth.nonceBytes) {
		return invalidFor(auth, x402.ErrNonceReused.Error()), &auth, nil
	}

	balance, err := withChainReadRetry(ctx, defaultChainReadBackoff, func() (*big.Int, error) {
		return f.adapter.BalanceOf(ctx, auth.from)
	})
	if err != nil {
		return nil, &auth, x402.NewPaymentError(x402.KindChainError, "chain error checking balance", fmt.Errorf("%w: %v", x402.ErrChainError, err))
	}
	if balance.Cmp(auth.value) < 0 {
		f.logger.Debug("verify: rejected", "kind", x402.KindInsufficientBalance, "payer", auth.from.Hex())
		return invalidFor(auth, x402.ErrInsufficientFunds.Error()), &auth, nil
	}

	allowance, err := withChainReadRetry(ctx, defaultChainReadBackoff, func() (*big.Int, error) {
		return f.adapter.Allowance(ctx, auth.from, f.operator.From)
	})
	if err != nil {
		return nil, &auth, x402.NewPaymentError(x402.KindChainError, "chain error checking allowance", fmt.Errorf("%w: %v", x402.ErrChainError, err))
	}
	if allowance.Cmp(auth.value) < 0 {
		f.logger.Debug("verify: rejected", "kind", x402.KindInsufficientAllowance, "payer", auth.from.Hex())
		return invalidFor(auth, x402.ErrInsufficientAllowance.Error()), &auth, nil
	}

	return &x402.VerifyResponse{IsValid: true, Payer: auth.from.Hex()}, &auth, nil
}

// Settle verifies a payment, then takes the payer's lock, re-checks the
// nonce and, if it is still unused, executes transferFrom on chain. The
// other checks are not repeated under the lock. The lock ensures two concurrent
// settlement attempts for the same payer cannot both pass the nonce check
// before either consumes it.
func (f *Facilitator) Settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeouts.SettleTimeout)
	defer cancel()

	start := f.now()
	resp, result := f.settle(ctx, payload, requirements)
	if f.metrics != nil {
		f.metrics.ObserveSettle(result, f.now().Sub(start).Seconds())
	}
	return resp, nil
}

func (f *Facilitator) settle(ctx context.Context, payload x402.PaymentPayload, requirements x402.PaymentRequirements) (*x402.SettleResponse, string) {
	verifyResp, auth, err := f.verify(ctx, payload, requirements)
	if err != nil {
		var perr *x402.PaymentError
		if errors.As(err, &perr) {
			f.logger.Error("settle: verification error", "kind", perr.Kind, "error", perr)
		}
		return &x402.SettleResponse{Success: false, ErrorReason: err.Error(), Network: f.chain.Network}, "failure"
	}
	if !verifyResp.IsValid {
		return &x402.SettleResponse{Success: false, ErrorReason: verifyResp.InvalidReason, Payer: verifyResp.Payer, Network: f.chain.Network}, "failure"
	}

	lock := f.locks.get(auth.from.Hex())
	lock.Lock()
	defer lock.Unlock()

	// Re-check the nonce inside the lock: another goroutine may have
	// consumed it between the outer verify and this point.
	if f.nonces.Contains(auth.nonceBytes) {
		f.logger.Warn("settle: nonce reused", "kind", x402.KindNonceReuse, "payer", auth.from.Hex())
		return &x402.SettleResponse{Success: false, ErrorReason: x402.ErrNonceReused.Error(), Payer: auth.from.Hex(), Network: f.chain.Network}, "failure"
	}

	receipt, err := f.adapter.TransferFrom(ctx, f.operator, auth.from, auth.to, auth.value)
	if err != nil {
		// Non-consuming: a failed chain call (including a receipt-poll
		// timeout) never records the nonce, even if the transaction was
		// later mined. Operators must reconcile such cases out of band.
		settleErr := x402.NewPaymentError(x402.KindChainError, x402.ErrSettlementFailed.Error(), err)
		f.logger.Error("settle: transferFrom failed", "kind", settleErr.Kind, "error", settleErr)
		return &x402.SettleResponse{Success: false, ErrorReason: settleErr.Error(), Payer: auth.from.Hex(), Network: f.chain.Network}, "failure"
	}

	f.nonces.Record(auth.nonceBytes, time.Unix(auth.validBefore, 0).Add(nonceRetention))

	return &x402.SettleResponse{
		Success:     true,
		Payer:       auth.from.Hex(),
		Transaction: receipt.TxHash.Hex(),
		Network:     f.chain.Network,
	}, "success"
}

func invalid(reason string) *x402.VerifyResponse {
	return &x402.VerifyResponse{IsValid: false, InvalidReason: reason}
}

func invalidFor(auth parsedAuth, reason string) *x402.VerifyResponse {
	return &x402.VerifyResponse{IsValid: false, InvalidReason: reason, Payer: auth.from.Hex()}
}

func sameAddress(hexAddr string, addr common.Address) bool {
	return common.HexToAddress(hexAddr) == addr
}
