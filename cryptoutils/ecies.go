package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

const (
	eciesPointLen = 65
	eciesNonceLen = 16
	eciesTagLen   = 16
)

// ParseSecp256k1PublicKey accepts a hex encoded compressed or uncompressed key.
func ParseSecp256k1PublicKey(publicKeyHex string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}

	switch len(raw) {
	case 33:
		return crypto.DecompressPubkey(raw)
	case 65:
		return crypto.UnmarshalPubkey(raw)
	default:
		return nil, fmt.Errorf("invalid public key length %d", len(raw))
	}
}

// EncryptWithSecp256k1PublicKey encrypts data using ECIES over secp256k1.
// A fresh ephemeral key is generated for each call. The AES-256-GCM key is
// HKDF-SHA256 over the uncompressed ephemeral key and the uncompressed shared
// point.
//
// Format: [ephemeral key (65 bytes)][nonce (16 bytes)][tag (16 bytes)][ciphertext]
func EncryptWithSecp256k1PublicKey(publicKey *ecdsa.PublicKey, data []byte) ([]byte, error) {
	// Generate ephemeral key for ECIES encryption
	ephemeralKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	ephemeralPublic := crypto.FromECDSAPub(&ephemeralKey.PublicKey)

	key, err := eciesKey(ephemeralPublic, sharedPoint(publicKey, ephemeralKey))
	if err != nil {
		return nil, err
	}

	aesGCM, err := newECIESCipher(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, eciesNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the tag after the ciphertext
	sealed := aesGCM.Seal(nil, nonce, data, nil)
	ciphertext, tag := sealed[:len(sealed)-eciesTagLen], sealed[len(sealed)-eciesTagLen:]

	result := make([]byte, 0, eciesPointLen+eciesNonceLen+eciesTagLen+len(ciphertext))
	result = append(result, ephemeralPublic...)
	result = append(result, nonce...)
	result = append(result, tag...)
	result = append(result, ciphertext...)
	return result, nil
}

// EncryptHexWithSecp256k1PublicKey encrypts data for a hex encoded public key
// and returns the hex encoded envelope.
func EncryptHexWithSecp256k1PublicKey(publicKeyHex string, data []byte) (string, error) {
	publicKey, err := ParseSecp256k1PublicKey(publicKeyHex)
	if err != nil {
		return "", err
	}
	encrypted, err := EncryptWithSecp256k1PublicKey(publicKey, data)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(encrypted), nil
}

// DecryptWithSecp256k1PrivateKey reverses EncryptWithSecp256k1PublicKey.
func DecryptWithSecp256k1PrivateKey(privateKey *ecdsa.PrivateKey, encryptedData []byte) ([]byte, error) {
	if len(encryptedData) < eciesPointLen+eciesNonceLen+eciesTagLen {
		return nil, errors.New("encrypted data too short")
	}

	ephemeralPublic := encryptedData[:eciesPointLen]
	nonce := encryptedData[eciesPointLen : eciesPointLen+eciesNonceLen]
	tag := encryptedData[eciesPointLen+eciesNonceLen : eciesPointLen+eciesNonceLen+eciesTagLen]
	ciphertext := encryptedData[eciesPointLen+eciesNonceLen+eciesTagLen:]

	ephemeralKey, err := crypto.UnmarshalPubkey(ephemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ephemeral public key: %w", err)
	}

	key, err := eciesKey(ephemeralPublic, sharedPoint(ephemeralKey, privateKey))
	if err != nil {
		return nil, err
	}

	aesGCM, err := newECIESCipher(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+eciesTagLen)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesGCM.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}

// sharedPoint returns the uncompressed ECDH point of pub and priv.
func sharedPoint(pub *ecdsa.PublicKey, priv *ecdsa.PrivateKey) []byte {
	x, y := crypto.S256().ScalarMult(pub.X, pub.Y, priv.D.Bytes())
	return crypto.FromECDSAPub(&ecdsa.PublicKey{Curve: crypto.S256(), X: x, Y: y})
}

func eciesKey(ephemeralPublic, shared []byte) ([]byte, error) {
	master := make([]byte, 0, len(ephemeralPublic)+len(shared))
	master = append(master, ephemeralPublic...)
	master = append(master, shared...)

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, nil), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func newECIESCipher(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCMWithNonceSize(block, eciesNonceLen)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
