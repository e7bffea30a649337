// Package eip712 hashes and verifies the tempo-tip20 scheme's
// PaymentAuthorization struct per EIP-712, mirroring the domain/struct-hash
// construction the x402 EVM signer uses for EIP-3009's
// TransferWithAuthorization.
package eip712

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Authorization is the PaymentAuthorization struct signed by the payer:
//
//	PaymentAuthorization(address from,address to,uint256 value,address token,
//	  uint256 validAfter,uint256 validBefore,bytes32 nonce)
type Authorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	Token       common.Address
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       common.Hash
}

// Domain carries the EIP-712 domain separator fields for the scheme.
type Domain struct {
	Name    string
	Version string
	ChainID *big.Int
}

func typedData(domain Domain, auth Authorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PaymentAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "token", Type: "address"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "PaymentAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: common.Address{}.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From.Hex(),
			"to":          auth.To.Hex(),
			"value":       (*math.HexOrDecimal256)(auth.Value),
			"token":       auth.Token.Hex(),
			"validAfter":  (*math.HexOrDecimal256)(auth.ValidAfter),
			"validBefore": (*math.HexOrDecimal256)(auth.ValidBefore),
			"nonce":       auth.Nonce.Hex(),
		},
	}
}

// Digest computes keccak256("\x19\x01" || domainSeparator || structHash),
// the 32-byte value an EIP-712 signature is taken over.
func Digest(domain Domain, auth Authorization) ([]byte, error) {
	td := typedData(domain, auth)

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct("PaymentAuthorization", td.Message)
	if err != nil {
		return nil, fmt.Errorf("hash message: %w", err)
	}

	raw := append([]byte{0x19, 0x01}, append(domainSeparator, structHash...)...)
	return crypto.Keccak256(raw), nil
}

// Sign produces a 65-byte hex-encoded EIP-712 signature (v normalized to
// 27/28) over auth under domain.
func Sign(privateKey *ecdsa.PrivateKey, domain Domain, auth Authorization) (string, error) {
	digest, err := Digest(domain, auth)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", fmt.Errorf("sign digest: %w", err)
	}
	sig[64] += 27
	return "0x" + common.Bytes2Hex(sig), nil
}

// RecoverAddress recovers the signer address from a hex-encoded signature
// over auth under domain. The signature's v byte is expected to be 27 or 28
// (or 0/1); both forms are accepted.
func RecoverAddress(domain Domain, auth Authorization, signatureHex string) (common.Address, error) {
	digest, err := Digest(domain, auth)
	if err != nil {
		return common.Address{}, err
	}

	sig := common.FromHex(signatureHex)
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	sig = append([]byte(nil), sig...)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
