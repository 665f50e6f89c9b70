package chain

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// MockChainClient implements interfaces.ChainClient for testing.
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) DIDDocument(ctx context.Context, did string) (*interfaces.DIDDocument, error) {
	args := m.Called(ctx, did)
	doc, _ := args.Get(0).(*interfaces.DIDDocument)
	return doc, args.Error(1)
}

func (m *MockChainClient) FeeAllowances(ctx context.Context, grantee string) ([]interfaces.Allowance, error) {
	args := m.Called(ctx, grantee)
	allowances, _ := args.Get(0).([]interfaces.Allowance)
	return allowances, args.Error(1)
}

func (m *MockChainClient) Account(ctx context.Context, address string) (*interfaces.BaseAccount, error) {
	args := m.Called(ctx, address)
	account, _ := args.Get(0).(*interfaces.BaseAccount)
	return account, args.Error(1)
}

func (m *MockChainClient) Simulate(ctx context.Context, txBytes []byte) (uint64, error) {
	args := m.Called(ctx, txBytes)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) Broadcast(ctx context.Context, txBytes []byte) (*interfaces.TxResponse, error) {
	args := m.Called(ctx, txBytes)
	resp, _ := args.Get(0).(*interfaces.TxResponse)
	return resp, args.Error(1)
}

func (m *MockChainClient) ChainID(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockTxSigner implements interfaces.TxSigner for testing.
type MockTxSigner struct {
	mock.Mock
}

func (m *MockTxSigner) SignAndBroadcast(ctx context.Context, msgs []interfaces.Msg, memo string, granter string) (*interfaces.TxResponse, error) {
	args := m.Called(ctx, msgs, memo, granter)
	resp, _ := args.Get(0).(*interfaces.TxResponse)
	return resp, args.Error(1)
}
