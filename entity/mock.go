package entity

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// MockIdentitySource implements IdentitySource for testing.
type MockIdentitySource struct {
	mock.Mock
}

func (m *MockIdentitySource) OracleIdentity(ctx context.Context, wallet *interfaces.Wallet, params IdentityParams) (*Oracle, error) {
	args := m.Called(ctx, wallet, params)
	oracle, _ := args.Get(0).(*Oracle)
	return oracle, args.Error(1)
}
