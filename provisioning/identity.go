package provisioning

import (
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// Identity is the caller of a provisioning run: either Unauthenticated or
// Authenticated with a SignX wallet.
type Identity interface {
	isIdentity()
}

// Unauthenticated is a caller without a wallet. Steps that need a human
// signature are unavailable.
type Unauthenticated struct{}

// Authenticated is a caller logged in through SignX.
type Authenticated struct {
	Wallet *interfaces.Wallet

	// Messaging is the caller's own Matrix session, if known.
	Messaging *interfaces.MatrixCredentials
}

func (Unauthenticated) isIdentity() {}
func (Authenticated) isIdentity()   {}

// IdentityFor wraps a possibly nil wallet loaded from disk.
func IdentityFor(wallet *interfaces.Wallet) Identity {
	if wallet == nil || wallet.Address == "" || wallet.DID == "" {
		return Unauthenticated{}
	}
	auth := Authenticated{Wallet: wallet}
	if m := wallet.Matrix; m != nil && m.AccessToken != "" {
		auth.Messaging = &interfaces.MatrixCredentials{
			UserID:      m.UserID,
			AccessToken: m.AccessToken,
		}
	}
	return auth
}

// RequireWallet returns the wallet of id or a ConfigurationError when id is
// not authenticated.
func RequireWallet(id Identity) (*interfaces.Wallet, error) {
	if auth, ok := id.(Authenticated); ok && auth.Wallet != nil {
		return auth.Wallet, nil
	}
	return nil, interfaces.NewConfigurationError("wallet", "login with signx first")
}
