package signx

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// MockRemoteSigner implements interfaces.RemoteSigner for testing.
type MockRemoteSigner struct {
	mock.Mock
}

func (m *MockRemoteSigner) Login(ctx context.Context) (*interfaces.Wallet, error) {
	args := m.Called(ctx)
	wallet, _ := args.Get(0).(*interfaces.Wallet)
	return wallet, args.Error(1)
}

func (m *MockRemoteSigner) Transact(ctx context.Context, wallet *interfaces.Wallet, msgs []interfaces.Msg, memo string) (*interfaces.TxResponse, error) {
	args := m.Called(ctx, wallet, msgs, memo)
	resp, _ := args.Get(0).(*interfaces.TxResponse)
	return resp, args.Error(1)
}

// RecordingDisplay keeps every shown payload.
type RecordingDisplay struct {
	mu       sync.Mutex
	payloads []string
	shown    chan string
}

// NewRecordingDisplay creates a display that also publishes payloads on a
// buffered channel, so tests can react to a QR being shown.
func NewRecordingDisplay() *RecordingDisplay {
	return &RecordingDisplay{shown: make(chan string, 16)}
}

func (d *RecordingDisplay) Show(title, payload string) {
	d.mu.Lock()
	d.payloads = append(d.payloads, payload)
	d.mu.Unlock()

	select {
	case d.shown <- payload:
	default:
	}
}

// Shown is signalled with each displayed payload.
func (d *RecordingDisplay) Shown() <-chan string {
	return d.shown
}

// Payloads returns the displayed payloads in order.
func (d *RecordingDisplay) Payloads() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.payloads...)
}
