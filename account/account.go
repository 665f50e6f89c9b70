// Package account creates blockchain accounts for oracles and makes sure
// each one is backed by an on-chain DID document.
package account

import (
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
)

// Account is a locally held secp256k1 account. The mnemonic is handed to the
// caller and never persisted here.
type Account struct {
	Mnemonic string `json:"mnemonic"`
	Address  string `json:"address"`
	DID      string `json:"did"`
	PubKey   []byte `json:"pubKey"`

	key *cryptoutils.SecpKey
}

// CreateAccount generates a fresh 24 word mnemonic and derives its account.
func CreateAccount() (*Account, error) {
	mnemonic, err := cryptoutils.NewMnemonic()
	if err != nil {
		return nil, err
	}
	return AccountFromMnemonic(mnemonic)
}

// AccountFromMnemonic restores the account of mnemonic.
func AccountFromMnemonic(mnemonic string) (*Account, error) {
	key, err := cryptoutils.SecpKeyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	return &Account{
		Mnemonic: key.Mnemonic(),
		Address:  key.Address(),
		DID:      key.DID(),
		PubKey:   key.PubKey(),
		key:      key,
	}, nil
}

// Key returns the signing key of the account. Accounts decoded from JSON
// derive it again from the mnemonic.
func (a *Account) Key() (*cryptoutils.SecpKey, error) {
	if a.key == nil {
		key, err := cryptoutils.SecpKeyFromMnemonic(a.Mnemonic)
		if err != nil {
			return nil, err
		}
		a.key = key
	}
	return a.key, nil
}
