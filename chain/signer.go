package chain

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// ChainIDSource reports the chain id transactions are signed for.
type ChainIDSource interface {
	ChainID(ctx context.Context) (string, error)
}

// LocalSigner signs transactions with a locally held secp256k1 key. It is
// used for accounts the provisioner creates itself; human wallets sign
// through SignX instead.
type LocalSigner struct {
	key    *cryptoutils.SecpKey
	client interfaces.ChainClient
	ids    ChainIDSource
	log    *slog.Logger
}

// NewLocalSigner creates a signer for key. ids is usually the same
// RESTClient as client.
func NewLocalSigner(key *cryptoutils.SecpKey, client interfaces.ChainClient, ids ChainIDSource, log *slog.Logger) *LocalSigner {
	return &LocalSigner{key: key, client: client, ids: ids, log: log}
}

// SignAndBroadcast simulates msgs to size the fee, signs them in direct mode
// and broadcasts the transaction. When granter is non-empty the fee is paid
// from its grant. A transaction rejected by the chain is an error.
func (s *LocalSigner) SignAndBroadcast(ctx context.Context, msgs []interfaces.Msg, memo string, granter string) (*interfaces.TxResponse, error) {
	address := s.key.Address()

	account, err := s.client.Account(ctx, address)
	if err != nil {
		return nil, err
	}

	chainID, err := s.ids.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	body := EncodeTxBody(msgs, memo)

	// Simulation needs a structurally valid tx; the signature is not checked.
	simTx, err := s.sign(body, account, chainID, Fee{Granter: granter})
	if err != nil {
		return nil, err
	}
	simulated, err := s.client.Simulate(ctx, simTx)
	if err != nil {
		return nil, err
	}

	fee := EstimateFee(simulated, len(msgs), granter)
	s.log.Debug("signing transaction",
		slog.String("signer", address),
		slog.String("granter", granter),
		slog.Uint64("simulatedGas", simulated),
		slog.Uint64("gasLimit", fee.GasLimit))

	txBytes, err := s.sign(body, account, chainID, fee)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Broadcast(ctx, txBytes)
	if err != nil {
		return nil, err
	}
	if err := CheckTxResponse(resp); err != nil {
		return resp, err
	}
	return resp, nil
}

func (s *LocalSigner) sign(body []byte, account *interfaces.BaseAccount, chainID string, fee Fee) ([]byte, error) {
	authInfo := EncodeAuthInfo(s.key.PubKey(), account.Sequence, fee)
	signDoc := EncodeSignDoc(body, authInfo, chainID, account.AccountNumber)

	sig, err := s.key.Sign(signDoc)
	if err != nil {
		return nil, fmt.Errorf("could not sign transaction: %w", err)
	}
	return EncodeTxRaw(body, authInfo, sig), nil
}
