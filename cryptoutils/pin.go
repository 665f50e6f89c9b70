package cryptoutils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPIN is returned for PINs that are not exactly six digits.
	ErrInvalidPIN = errors.New("pin must be 6 digits")

	// ErrWrongPIN is returned when a blob does not decrypt to a valid value.
	ErrWrongPIN = errors.New("wrong pin or corrupted ciphertext")

	pinPattern = regexp.MustCompile(`^\d{6}$`)
)

// ValidatePIN checks the six digit PIN format.
func ValidatePIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPIN
	}
	return nil
}

// pinKey pads the PIN with spaces to an AES-256 key.
func pinKey(pin string) ([]byte, error) {
	if len(pin) == 0 || len(pin) > 32 {
		return nil, ErrInvalidPIN
	}
	return []byte(pin + strings.Repeat(" ", 32-len(pin))), nil
}

// EncryptWithPIN encrypts text with AES-256-CBC under a space padded PIN.
// A random IV is generated per call.
//
// Format: hex(iv) ":" hex(ciphertext)
func EncryptWithPIN(text, pin string) (string, error) {
	key, err := pinKey(pin)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	plaintext := pkcs7Pad([]byte(text), aes.BlockSize)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecryptWithPIN reverses EncryptWithPIN. A wrong PIN is detected through
// the padding check in most cases; use DecryptMnemonicWithPIN when the
// plaintext is a mnemonic to rule out the rest.
func DecryptWithPIN(encrypted, pin string) (string, error) {
	key, err := pinKey(pin)
	if err != nil {
		return "", err
	}

	ivHex, ctHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", errors.New("invalid encrypted format: missing iv separator")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", errors.New("invalid encrypted format: bad iv")
	}
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", errors.New("invalid encrypted format: bad ciphertext")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", ErrWrongPIN
	}
	return string(unpadded), nil
}

// DecryptMnemonicWithPIN decrypts a mnemonic and rejects results that are
// not valid BIP-39 phrases.
func DecryptMnemonicWithPIN(encrypted, pin string) (string, error) {
	mnemonic, err := DecryptWithPIN(encrypted, pin)
	if err != nil {
		return "", err
	}
	if !ValidMnemonic(mnemonic) {
		return "", ErrWrongPIN
	}
	return mnemonic, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-padding], nil
}
