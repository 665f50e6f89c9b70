package signx

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// DefaultWalletFile is created in the user's home directory.
const DefaultWalletFile = ".oracles-wallet.json"

// DefaultWalletPath returns ~/.oracles-wallet.json.
func DefaultWalletPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultWalletFile), nil
}

// LoadWallet reads a cached login. A missing file yields (nil, nil).
func LoadWallet(path string) (*interfaces.Wallet, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var wallet interfaces.Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, fmt.Errorf("failed to parse wallet file %s: %w", path, err)
	}
	return &wallet, nil
}

// SaveWallet caches a login. The file holds a Matrix access token and is
// only readable by the owner.
func SaveWallet(path string, wallet *interfaces.Wallet) error {
	data, err := json.MarshalIndent(wallet, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save wallet file: %w", err)
	}
	return nil
}

// RemoveWallet deletes a cached login. Removing a missing file is not an
// error.
func RemoveWallet(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete wallet file: %w", err)
	}
	return nil
}
