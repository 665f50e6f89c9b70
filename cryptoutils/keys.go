package cryptoutils

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // cosmos addresses are defined over ripemd160
)

const (
	// AddressPrefix is the bech32 human readable part of ixo account addresses.
	AddressPrefix = "ixo"

	// DIDPrefix prefixes the address in account DIDs.
	DIDPrefix = "did:ixo:"

	// MnemonicEntropyBits yields 24 word mnemonics.
	MnemonicEntropyBits = 256

	// ShortMnemonicEntropyBits yields 12 word mnemonics.
	ShortMnemonicEntropyBits = 128
)

// CosmosHDPath is m/44'/118'/0'/0/0.
var CosmosHDPath = []uint32{
	bip32.FirstHardenedChild + 44,
	bip32.FirstHardenedChild + 118,
	bip32.FirstHardenedChild + 0,
	0,
	0,
}

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// SecpKey is a secp256k1 key derived from a BIP-39 mnemonic.
type SecpKey struct {
	mnemonic string
	private  *ecdsa.PrivateKey
}

// NewMnemonic generates a fresh 24 word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	return NewMnemonicWithEntropy(MnemonicEntropyBits)
}

// NewMnemonicWithEntropy generates a BIP-39 mnemonic from bits of entropy.
func NewMnemonicWithEntropy(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("failed to generate entropy: %w", err)
	}
	return bip39.NewMnemonic(entropy)
}

// ValidMnemonic reports whether mnemonic is a valid BIP-39 phrase.
func ValidMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

// SecpKeyFromMnemonic derives the key at CosmosHDPath.
func SecpKeyFromMnemonic(mnemonic string) (*SecpKey, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	for _, index := range CosmosHDPath {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key %d: %w", index, err)
		}
	}

	// bip32 may strip leading zero bytes from the scalar
	d := make([]byte, 32)
	copy(d[32-len(key.Key):], key.Key)

	private, err := crypto.ToECDSA(d)
	if err != nil {
		return nil, fmt.Errorf("invalid derived private key: %w", err)
	}

	return &SecpKey{mnemonic: mnemonic, private: private}, nil
}

// Mnemonic returns the phrase the key was derived from.
func (k *SecpKey) Mnemonic() string {
	return k.mnemonic
}

// PrivateKey returns the ECDSA private key.
func (k *SecpKey) PrivateKey() *ecdsa.PrivateKey {
	return k.private
}

// PubKey returns the 33 byte compressed public key.
func (k *SecpKey) PubKey() []byte {
	return crypto.CompressPubkey(&k.private.PublicKey)
}

// Address returns the bech32 account address.
func (k *SecpKey) Address() string {
	addr, err := AddressFromPubKey(k.PubKey())
	if err != nil {
		// Only reachable with an invalid prefix constant.
		panic(err)
	}
	return addr
}

// DID returns the account DID, did:ixo:<address>.
func (k *SecpKey) DID() string {
	return DIDFromAddress(k.Address())
}

// Sign returns the 64 byte r||s signature of sha256(message).
func (k *SecpKey) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return k.SignDigest(digest[:])
}

// SignDigest returns the 64 byte r||s signature of a 32 byte digest.
func (k *SecpKey) SignDigest(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, k.private)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	// Drop the recovery byte.
	return sig[:64], nil
}

// VerifySignature checks a 64 byte r||s signature of sha256(message).
func VerifySignature(pubKey, message, signature []byte) bool {
	digest := sha256.Sum256(message)
	return crypto.VerifySignature(pubKey, digest[:], signature)
}

// AddressFromPubKey computes bech32(ixo, ripemd160(sha256(pubKey))).
func AddressFromPubKey(pubKey []byte) (string, error) {
	sha := sha256.Sum256(pubKey)
	hasher := ripemd160.New()
	hasher.Write(sha[:])

	conv, err := bech32.ConvertBits(hasher.Sum(nil), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	return bech32.Encode(AddressPrefix, conv)
}

// ValidAddress reports whether addr is an ixo bech32 address.
func ValidAddress(addr string) bool {
	hrp, _, err := bech32.Decode(addr)
	return err == nil && hrp == AddressPrefix
}

// DIDFromAddress returns did:ixo:<address>.
func DIDFromAddress(address string) string {
	return DIDPrefix + address
}

// PublicKeyMultibase encodes a public key as a base58btc multibase string.
func PublicKeyMultibase(pubKey []byte) string {
	return "z" + base58.Encode(pubKey)
}
