package messaging

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// MockMatrixClient is a testify mock of interfaces.MatrixClient.
type MockMatrixClient struct {
	mock.Mock
}

func (m *MockMatrixClient) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockMatrixClient) Login(ctx context.Context, username, password, deviceName string) (*interfaces.MatrixCredentials, error) {
	args := m.Called(ctx, username, password, deviceName)
	creds, _ := args.Get(0).(*interfaces.MatrixCredentials)
	return creds, args.Error(1)
}

func (m *MockMatrixClient) SetDisplayName(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockMatrixClient) SetAvatarURL(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockMatrixClient) Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	args := m.Called(ctx, data, contentType, fileName)
	return args.String(0), args.Error(1)
}

func (m *MockMatrixClient) DownloadURL(mxc string) (string, error) {
	args := m.Called(mxc)
	return args.String(0), args.Error(1)
}

func (m *MockMatrixClient) ResolveRoomAlias(ctx context.Context, alias string) (string, error) {
	args := m.Called(ctx, alias)
	return args.String(0), args.Error(1)
}

func (m *MockMatrixClient) JoinRoom(ctx context.Context, roomID string) error {
	return m.Called(ctx, roomID).Error(0)
}

func (m *MockMatrixClient) JoinedMembers(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	members, _ := args.Get(0).([]string)
	return members, args.Error(1)
}

func (m *MockMatrixClient) PutRoomState(ctx context.Context, roomID, eventType, stateKey string, content any) error {
	return m.Called(ctx, roomID, eventType, stateKey, content).Error(0)
}

// GetRoomState copies the first return value into out through JSON.
func (m *MockMatrixClient) GetRoomState(ctx context.Context, roomID, eventType, stateKey string, out any) error {
	args := m.Called(ctx, roomID, eventType, stateKey)
	if err := args.Error(1); err != nil {
		return err
	}
	raw, err := json.Marshal(args.Get(0))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (m *MockMatrixClient) HasCrossSigning(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockMatrixClient) BootstrapCrossSigning(ctx context.Context, params interfaces.CrossSigningParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *MockMatrixClient) Stop() {
	m.Called()
}

func (m *MockMatrixClient) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockFactory returns a factory that always hands out client.
func MockFactory(client interfaces.MatrixClient) interfaces.MatrixClientFactory {
	return func(string, *interfaces.MatrixCredentials) (interfaces.MatrixClient, error) {
		return client, nil
	}
}
