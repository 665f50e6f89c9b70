package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ixoworld/oracle-provisioner/chain"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// SignerFactory returns a signer that pays fees and signs with key.
type SignerFactory func(key *cryptoutils.SecpKey) interfaces.TxSigner

// ProvisionerConfig configures a Provisioner.
type ProvisionerConfig struct {
	Chain       interfaces.ChainQuerier
	SignerFor   SignerFactory
	Log         *slog.Logger
	SettleDelay time.Duration
}

// Provisioner creates DID documents for accounts.
type Provisioner struct {
	chain       interfaces.ChainQuerier
	signerFor   SignerFactory
	log         *slog.Logger
	settleDelay time.Duration
	now         func() time.Time
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	return &Provisioner{
		chain:       cfg.Chain,
		signerFor:   cfg.SignerFor,
		log:         cfg.Log,
		settleDelay: cfg.SettleDelay,
		now:         time.Now,
	}
}

// EnsureDID makes sure the DID document of acc exists and returns the DID.
// An existing document is left untouched and no transaction is built.
// Otherwise the document is created with the account key as the only
// controller, fees paid from the first usable fee grant, and its existence
// is checked again after a short settle delay.
func (p *Provisioner) EnsureDID(ctx context.Context, acc *Account, services []interfaces.Service) (string, error) {
	exists, err := p.didExists(ctx, acc.DID)
	if err != nil {
		return "", err
	}
	if exists {
		p.log.Info("did already exists", slog.String("did", acc.DID))
		return acc.DID, nil
	}

	key, err := acc.Key()
	if err != nil {
		return "", err
	}

	granter := p.selectGranter(ctx, acc.Address)

	msg := &chain.MsgCreateIidDocument{
		ID:            acc.DID,
		Controllers:   []string{acc.DID},
		Verifications: chain.SecpVerifications(acc.DID, acc.Address, acc.PubKey, acc.DID),
		Services:      services,
		Signer:        acc.Address,
	}

	p.log.Info("creating did", slog.String("did", acc.DID), slog.String("granter", granter))
	if _, err := p.signerFor(key).SignAndBroadcast(ctx, []interfaces.Msg{msg}, "", granter); err != nil {
		return "", fmt.Errorf("could not create did %s: %w", acc.DID, err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(p.settleDelay):
	}

	exists, err = p.didExists(ctx, acc.DID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &interfaces.ConfirmationTimeoutError{Resource: "did", ID: acc.DID}
	}

	p.log.Info("did created", slog.String("did", acc.DID))
	return acc.DID, nil
}

func (p *Provisioner) didExists(ctx context.Context, did string) (bool, error) {
	_, err := p.chain.DIDDocument(ctx, did)
	if errors.Is(err, interfaces.ErrDIDNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// selectGranter finds a fee grant for address. A failed query means the
// account pays its own fees.
func (p *Provisioner) selectGranter(ctx context.Context, address string) string {
	allowances, err := p.chain.FeeAllowances(ctx, address)
	if err != nil {
		p.log.Warn("could not query fee allowances", slog.String("address", address), "err", err)
		return ""
	}
	return chain.SelectGranter(allowances, p.now())
}
