// Package client implements the payer side of the tempo-tip20 scheme:
// building and signing a PaymentAuthorization in response to a 402, ready
// to be base64-encoded into the X-PAYMENT header.
package client

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"

	x402 "github.com/compusophy-bot/tempo-x402"
	"github.com/compusophy-bot/tempo-x402/eip712"
)

// Signer holds a payer's private key and signs PaymentAuthorizations on
// request.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// SignerOption configures a Signer during construction.
type SignerOption func(*Signer) error

// NewSigner builds a Signer from the given options. Exactly one key
// source option (WithPrivateKey, WithKeystore, or WithMnemonic) must be
// supplied.
func NewSigner(opts ...SignerOption) (*Signer, error) {
	s := &Signer{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.privateKey == nil {
		return nil, fmt.Errorf("client: no private key configured")
	}
	s.address = crypto.PubkeyToAddress(s.privateKey.PublicKey)
	return s, nil
}

// WithPrivateKey loads a key from a hex string (with or without 0x prefix).
func WithPrivateKey(hexKey string) SignerOption {
	return func(s *Signer) error {
		trimmed := hexKey
		if len(trimmed) >= 2 && trimmed[:2] == "0x" {
			trimmed = trimmed[2:]
		}
		privateKey, err := crypto.HexToECDSA(trimmed)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKeystore, err)
		}
		s.privateKey = privateKey
		return nil
	}
}

// WithKeystore loads a private key from an encrypted go-ethereum keystore
// file.
func WithKeystore(keystorePath, password string) SignerOption {
	return func(s *Signer) error {
		data, err := os.ReadFile(keystorePath)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidKeystore, err)
		}

		var keyJSON struct {
			Crypto keystore.CryptoJSON `json:"crypto"`
		}
		if err := json.Unmarshal(data, &keyJSON); err != nil {
			return fmt.Errorf("%w: invalid JSON format", x402.ErrInvalidKeystore)
		}

		privateKeyBytes, err := keystore.DecryptDataV3(keyJSON.Crypto, password)
		if err != nil {
			return fmt.Errorf("%w: decryption failed", x402.ErrInvalidKeystore)
		}

		privateKey, err := crypto.ToECDSA(privateKeyBytes)
		if err != nil {
			return fmt.Errorf("%w: invalid private key", x402.ErrInvalidKeystore)
		}

		s.privateKey = privateKey
		return nil
	}
}

// WithMnemonic derives a private key from a BIP39 mnemonic phrase via the
// standard Ethereum derivation path m/44'/60'/0'/0/{accountIndex}.
func WithMnemonic(mnemonic string, accountIndex uint32) SignerOption {
	return func(s *Signer) error {
		if !bip39.IsMnemonicValid(mnemonic) {
			return x402.ErrInvalidMnemonic
		}
		seed := bip39.NewSeed(mnemonic, "")

		privateKey, err := deriveEthereumKey(seed, accountIndex)
		if err != nil {
			return fmt.Errorf("%w: %v", x402.ErrInvalidMnemonic, err)
		}
		s.privateKey = privateKey
		return nil
	}
}

// deriveEthereumKey derives an Ethereum private key from a BIP39 seed
// following BIP44 path m/44'/60'/0'/0/{index}.
func deriveEthereumKey(seed []byte, index uint32) (*ecdsa.PrivateKey, error) {
	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	key, err := masterKey.NewChildKey(bip32.FirstHardenedChild + 44)
	if err != nil {
		return nil, err
	}
	key, err = key.NewChildKey(bip32.FirstHardenedChild + 60)
	if err != nil {
		return nil, err
	}
	key, err = key.NewChildKey(bip32.FirstHardenedChild + 0)
	if err != nil {
		return nil, err
	}
	key, err = key.NewChildKey(0)
	if err != nil {
		return nil, err
	}
	key, err = key.NewChildKey(index)
	if err != nil {
		return nil, err
	}
	return crypto.ToECDSA(key.Key)
}

// Address returns the signer's Ethereum address.
func (s *Signer) Address() common.Address {
	return s.address
}

// clockDriftAllowance is subtracted from validAfter so a server whose
// clock runs slightly ahead doesn't reject the authorization as not-yet-valid.
const clockDriftAllowance = 60 * time.Second

// CreatePaymentPayload builds and signs a PaymentAuthorization satisfying
// requirements, ready to be base64-encoded into the X-PAYMENT header.
func (s *Signer) CreatePaymentPayload(chain x402.ChainConfig, requirements x402.PaymentRequirements) (*x402.PaymentPayload, error) {
	amount, ok := new(big.Int).SetString(requirements.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("client: requirements amount %q is not a valid integer", requirements.Amount)
	}

	token := requirements.Asset
	if token == "" {
		token = chain.DefaultToken
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("client: generate nonce: %w", err)
	}

	now := time.Now()
	validAfter := now.Add(-clockDriftAllowance).Unix()
	validBefore := now.Add(time.Duration(requirements.MaxTimeoutSeconds) * time.Second).Unix()

	auth := eip712.Authorization{
		From:        s.address,
		To:          common.HexToAddress(requirements.PayTo),
		Value:       amount,
		Token:       common.HexToAddress(token),
		ValidAfter:  big.NewInt(validAfter),
		ValidBefore: big.NewInt(validBefore),
		Nonce:       nonce,
	}
	domain := eip712.Domain{Name: chain.EIP712DomainName, Version: chain.EIP712DomainVersion, ChainID: chain.ChainID}

	signature, err := eip712.Sign(s.privateKey, domain, auth)
	if err != nil {
		return nil, fmt.Errorf("client: sign authorization: %w", err)
	}

	return &x402.PaymentPayload{
		X402Version: x402.X402Version,
		Payload: x402.TempoPaymentData{
			From:        auth.From.Hex(),
			To:          auth.To.Hex(),
			Value:       amount.String(),
			Token:       auth.Token.Hex(),
			ValidAfter:  strconv.FormatInt(validAfter, 10),
			ValidBefore: strconv.FormatInt(validBefore, 10),
			Nonce:       "0x" + common.Bytes2Hex(nonce[:]),
			Signature:   signature,
		},
	}, nil
}

// generateNonce returns a cryptographically random 32-byte nonce.
func generateNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, err
	}
	return nonce, nil
}
