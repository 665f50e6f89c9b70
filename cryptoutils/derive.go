package cryptoutils

import (
	"crypto/md5" //nolint:gosec // password format shared with existing accounts
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

const matrixUsernamePrefix = "did-ixo-"

// MatrixUsername derives the Matrix localpart of an account address.
func MatrixUsername(address string) (string, error) {
	if address == "" {
		return "", errors.New("address is required to derive a matrix username")
	}
	return matrixUsernamePrefix + address, nil
}

// MatrixPassword derives the Matrix password from a mnemonic: the first 24
// characters of base64(md5hex(mnemonic without spaces)).
func MatrixPassword(mnemonic string) string {
	sum := md5.Sum([]byte(strings.ReplaceAll(mnemonic, " ", ""))) //nolint:gosec
	encoded := base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(sum[:])))
	return encoded[:24]
}

// RecoveryPassphrase derives the secret storage passphrase from a mnemonic:
// the first 32 characters of base64(sha256(mnemonic without spaces)).
func RecoveryPassphrase(mnemonic string) string {
	sum := sha256.Sum256([]byte(strings.ReplaceAll(mnemonic, " ", "")))
	return base64.StdEncoding.EncodeToString(sum[:])[:32]
}

// ServerName strips the scheme and trailing slash from a homeserver URL.
func ServerName(homeServerURL string) string {
	name := strings.TrimPrefix(homeServerURL, "https://")
	name = strings.TrimPrefix(name, "http://")
	return strings.TrimSuffix(name, "/")
}

// RoomAlias derives the private room alias of an account address.
func RoomAlias(address, homeServerURL string) string {
	return "#" + matrixUsernamePrefix + address + ":" + ServerName(homeServerURL)
}

// MatrixUserID derives the full Matrix user id of an account address.
func MatrixUserID(address, homeServerURL string) string {
	return "@" + matrixUsernamePrefix + address + ":" + ServerName(homeServerURL)
}
