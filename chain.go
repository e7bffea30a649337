// Package x402 provides the core types and constants for the tempo-tip20
// payment scheme: the Tempo chain configuration, the wire types exchanged
// between client, server, and facilitator, and the sentinel error taxonomy.
package x402

import "math/big"

// ChainConfig describes the EVM-compatible chain the facilitator settles
// payments on. The zero value is never valid; use DefaultChainConfig or
// construct one explicitly for a non-default deployment.
type ChainConfig struct {
	// ChainID is the EVM chain ID used in the EIP-712 domain separator.
	ChainID *big.Int

	// Network is the CAIP-2 style network identifier carried in wire
	// messages, e.g. "eip155:42431".
	Network string

	// SchemeName is the x402 scheme identifier this chain settles,
	// e.g. "tempo-tip20".
	SchemeName string

	// DefaultToken is the TIP-20 token address used when a payment
	// requirement omits one.
	DefaultToken string

	// TokenDecimals is the number of decimal places the default token uses.
	TokenDecimals uint8

	// RPCURL is the JSON-RPC endpoint used to reach the chain.
	RPCURL string

	// ExplorerBase is the base URL used to build transaction links.
	ExplorerBase string

	// EIP712DomainName and EIP712DomainVersion populate the EIP-712 domain
	// separator used when hashing PaymentAuthorization structs.
	EIP712DomainName    string
	EIP712DomainVersion string
}

// Tempo moderato testnet constants. Verified against the moderato deployment
// on 2026-01-15.
const (
	tempoChainID             = 42431
	tempoNetwork             = "eip155:42431"
	tempoSchemeName          = "tempo-tip20"
	tempoDefaultToken        = "0x20c0000000000000000000000000000000000000"
	tempoTokenDecimals       = 6
	tempoRPCURL              = "https://rpc.moderato.tempo.xyz"
	tempoExplorerBase        = "https://explore.moderato.tempo.xyz"
	tempoEIP712DomainName    = "x402-tempo"
	tempoEIP712DomainVersion = "1"
)

// DefaultChainConfig returns the Tempo moderato testnet configuration.
// Callers that need a different deployment (a different chain ID, RPC
// endpoint, or default token) should build their own ChainConfig rather
// than mutate this one.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		ChainID:             big.NewInt(tempoChainID),
		Network:             tempoNetwork,
		SchemeName:          tempoSchemeName,
		DefaultToken:        tempoDefaultToken,
		TokenDecimals:       tempoTokenDecimals,
		RPCURL:              tempoRPCURL,
		ExplorerBase:        tempoExplorerBase,
		EIP712DomainName:    tempoEIP712DomainName,
		EIP712DomainVersion: tempoEIP712DomainVersion,
	}
}

// MaxTimeoutSecondsCap bounds how far in the future a payment requirement
// may push maxTimeoutSeconds. The facilitator rejects any requirement above
// this cap rather than silently honoring an unbounded authorization window.
const MaxTimeoutSecondsCap = 3600

// TransactionURL builds an explorer link for a settled transaction hash.
func (c ChainConfig) TransactionURL(txHash string) string {
	return c.ExplorerBase + "/tx/" + txHash
}
