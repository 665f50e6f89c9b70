package chain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const signerTestMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestLocalSignerSignAndBroadcast(t *testing.T) {
	key, err := cryptoutils.SecpKeyFromMnemonic(signerTestMnemonic)
	require.NoError(t, err)

	client := &MockChainClient{}
	client.On("Account", mock.Anything, key.Address()).
		Return(&interfaces.BaseAccount{Address: key.Address(), AccountNumber: 9, Sequence: 4}, nil)
	client.On("ChainID", mock.Anything).Return("devnet-1", nil)
	client.On("Simulate", mock.Anything, mock.Anything).Return(uint64(100000), nil)

	var broadcast []byte
	client.On("Broadcast", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { broadcast = args.Get(1).([]byte) }).
		Return(&interfaces.TxResponse{TxHash: "ABCD", Height: 5}, nil)

	signer := NewLocalSigner(key, client, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	msgs := []interfaces.Msg{&MsgSend{FromAddress: key.Address(), ToAddress: "ixo1to", Amount: []interfaces.Coin{{Denom: "uixo", Amount: "1"}}}}

	resp, err := signer.SignAndBroadcast(context.Background(), msgs, "", "ixo1granter")
	require.NoError(t, err)
	assert.Equal(t, "ABCD", resp.TxHash)
	client.AssertExpectations(t)

	raw := decodeFields(t, broadcast)
	body, authInfo := raw.bytes[1][0], raw.bytes[2][0]
	require.Len(t, raw.bytes[3], 1)
	sig := raw.bytes[3][0]
	require.Len(t, sig, 64)

	signDoc := EncodeSignDoc(body, authInfo, "devnet-1", 9)
	assert.True(t, cryptoutils.VerifySignature(key.PubKey(), signDoc, sig))

	fee := decodeFields(t, decodeFields(t, authInfo).bytes[2][0])
	assert.Equal(t, []uint64{170000}, fee.varints[2])
	assert.Equal(t, "ixo1granter", fee.str(4))
}

func TestLocalSignerRejectedTx(t *testing.T) {
	key, err := cryptoutils.SecpKeyFromMnemonic(signerTestMnemonic)
	require.NoError(t, err)

	client := &MockChainClient{}
	client.On("Account", mock.Anything, mock.Anything).Return(&interfaces.BaseAccount{}, nil)
	client.On("ChainID", mock.Anything).Return("devnet-1", nil)
	client.On("Simulate", mock.Anything, mock.Anything).Return(uint64(0), nil)
	client.On("Broadcast", mock.Anything, mock.Anything).
		Return(&interfaces.TxResponse{TxHash: "ABCD", Code: 11, RawLog: "out of gas"}, nil)

	signer := NewLocalSigner(key, client, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	resp, err := signer.SignAndBroadcast(context.Background(), []interfaces.Msg{&MsgAddController{}}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of gas")
	assert.True(t, resp.Failed())
}

func TestLocalSignerSimulationFailure(t *testing.T) {
	key, err := cryptoutils.SecpKeyFromMnemonic(signerTestMnemonic)
	require.NoError(t, err)

	simErr := errors.New("simulation failed")
	client := &MockChainClient{}
	client.On("Account", mock.Anything, mock.Anything).Return(&interfaces.BaseAccount{}, nil)
	client.On("ChainID", mock.Anything).Return("devnet-1", nil)
	client.On("Simulate", mock.Anything, mock.Anything).Return(uint64(0), simErr)

	signer := NewLocalSigner(key, client, client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err = signer.SignAndBroadcast(context.Background(), []interfaces.Msg{&MsgAddController{}}, "", "")
	require.ErrorIs(t, err, simErr)
	client.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}
