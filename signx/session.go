// Package signx implements the SignX remote signing flow: a request is
// registered with the relay, shown as a QR code, confirmed on a mobile
// wallet and polled for until the wallet answers.
package signx

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/ixoworld/oracle-provisioner/chain"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// State is the position of a session in its current flow.
type State int32

const (
	StateIdle State = iota
	StateBuilt
	StateAwaitingScan
	StatePolling
	StateAuthenticated
	StateConfirmed
	StateRejected
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilt:
		return "built"
	case StateAwaitingScan:
		return "awaiting scan"
	case StatePolling:
		return "polling"
	case StateAuthenticated:
		return "authenticated"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome of a poll: either a value or an error.
type Result[T any] struct {
	value T
	err   error
}

// Success wraps a value.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps an error.
func Failure[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool {
	return r.err == nil
}

// Get returns the value or the error.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Client       *Client
	Display      Display
	Log          *slog.Logger
	Network      interfaces.Network
	SiteName     string
	PollInterval time.Duration
}

// Session runs SignX flows. At most one flow is outstanding at a time; a
// concurrent Login or Transact fails with interfaces.ErrSessionBusy.
type Session struct {
	client       *Client
	display      Display
	log          *slog.Logger
	network      interfaces.Network
	siteName     string
	pollInterval time.Duration

	busy     atomic.Bool
	state    atomic.Int32
	sequence atomic.Uint64

	now func() time.Time
}

// NewSession creates an idle session.
func NewSession(cfg SessionConfig) *Session {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &Session{
		client:       cfg.Client,
		display:      cfg.Display,
		log:          cfg.Log,
		network:      cfg.Network,
		siteName:     cfg.SiteName,
		pollInterval: pollInterval,
		now:          time.Now,
	}
}

// State returns the state of the current or last flow.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Sequence returns the sequence number of the last transact request.
func (s *Session) Sequence() uint64 {
	return s.sequence.Load()
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

func (s *Session) acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return interfaces.ErrSessionBusy
	}
	return nil
}

func (s *Session) release() {
	s.busy.Store(false)
}

// Login registers a login request, displays it and waits for the wallet to
// answer. The wallet must include Matrix credentials.
func (s *Session) Login(ctx context.Context) (*interfaces.Wallet, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	const op = "login"

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, err)
	}

	hash := uuid.NewString()
	secureNonce := hex.EncodeToString(nonce)
	secureHash := sha256.Sum256([]byte(hash + secureNonce))

	req := &loginCreateRequest{
		Hash:       hash,
		SecureHash: hex.EncodeToString(secureHash[:]),
		Origin:     s.siteName,
		Network:    s.network.String(),
		Matrix:     true,
	}
	if err := s.client.createLogin(ctx, req); err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, err)
	}

	qr, err := json.Marshal(loginQR{
		Type:       loginRequestType,
		Origin:     s.siteName,
		Network:    s.network.String(),
		Version:    protocolVersion,
		Hash:       hash,
		SecureHash: req.SecureHash,
		Matrix:     true,
	})
	if err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, err)
	}

	s.setState(StateAwaitingScan)
	s.display.Show("Login with SignX", string(qr))
	s.log.Info("waiting for signx login", slog.String("hash", hash))

	res := poll(ctx, s, op, func(ctx context.Context) (*envelope, error) {
		return s.client.fetchLogin(ctx, &loginFetchRequest{Hash: hash, SecureNonce: secureNonce})
	})
	data, err := res.Get()
	if err != nil {
		return nil, err
	}

	var wallet interfaces.Wallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, fmt.Errorf("invalid login data: %w", err))
	}
	if wallet.Address == "" {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, errors.New("login failed"))
	}
	if wallet.Matrix == nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, errors.New("matrix login failed"))
	}
	if wallet.Network == "" {
		wallet.Network = s.network
	}

	s.setState(StateAuthenticated)
	s.log.Info("signx login succeeded", slog.String("address", wallet.Address), slog.String("did", wallet.DID))
	return &wallet, nil
}

// Transact asks wallet to sign msgs as one transaction and waits for the
// broadcast result. A transaction the chain rejected is returned together
// with an error.
func (s *Session) Transact(ctx context.Context, wallet *interfaces.Wallet, msgs []interfaces.Msg, memo string) (*interfaces.TxResponse, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	const op = "transact"

	if wallet == nil {
		return nil, interfaces.NewConfigurationError("wallet", "")
	}

	body := chain.EncodeTxBody(msgs, memo)
	s.setState(StateBuilt)

	hash := uuid.NewString()
	req := &TransactRequest{
		Hash:      hash,
		Origin:    s.siteName,
		Network:   s.network.String(),
		Address:   wallet.Address,
		DID:       wallet.DID,
		PubKey:    wallet.PubKey,
		Timestamp: s.now().UTC().Format(timestampLayout),
		Transactions: []TransactionEntry{{
			Sequence:  s.sequence.Inc(),
			TxBodyHex: hex.EncodeToString(body),
		}},
	}

	if err := s.client.createTransaction(ctx, req); err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, err)
	}

	qr, err := json.Marshal(transactQR{
		Type:    transactRequestType,
		Origin:  s.siteName,
		Network: s.network.String(),
		Version: protocolVersion,
		Hash:    hash,
	})
	if err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, err)
	}

	s.setState(StateAwaitingScan)
	s.display.Show("SignX transaction", string(qr))
	s.log.Info("waiting for signx transaction",
		slog.String("hash", hash),
		slog.Int("messages", len(msgs)),
		slog.Uint64("sequence", req.Transactions[0].Sequence))

	res := poll(ctx, s, op, func(ctx context.Context) (*envelope, error) {
		return s.client.fetchTransaction(ctx, &transactFetchRequest{Hash: hash})
	})
	data, err := res.Get()
	if err != nil {
		return nil, err
	}

	var deliver deliverTxResponse
	if err := json.Unmarshal(data, &deliver); err != nil {
		return nil, s.fail(op, interfaces.ReasonChannelFailure, fmt.Errorf("invalid transaction data: %w", err))
	}

	resp := deliver.txResponse()
	if err := chain.CheckTxResponse(resp); err != nil {
		s.setState(StateFailed)
		return resp, err
	}

	s.setState(StateConfirmed)
	s.log.Info("signx transaction confirmed", slog.String("txhash", resp.TxHash), slog.Int64("height", resp.Height))
	return resp, nil
}

func (s *Session) fail(op string, reason interfaces.RemoteSigningReason, err error) error {
	if reason == interfaces.ReasonChannelFailure && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		reason = interfaces.ReasonCancelled
	}

	switch reason {
	case interfaces.ReasonCancelled:
		s.setState(StateCancelled)
	case interfaces.ReasonUserDeclined:
		s.setState(StateRejected)
	default:
		s.setState(StateFailed)
	}
	return &interfaces.RemoteSigningError{Op: op, Reason: reason, Err: err}
}

// poll fetches until the relay returns a terminal answer. It never times
// out on its own; callers bound it with ctx.
func poll(ctx context.Context, s *Session, op string, fetch func(context.Context) (*envelope, error)) Result[json.RawMessage] {
	limiter := rate.NewLimiter(rate.Every(s.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			cause := ctx.Err()
			if cause == nil {
				cause = context.DeadlineExceeded
			}
			return Failure[json.RawMessage](s.fail(op, interfaces.ReasonCancelled, cause))
		}

		resp, err := fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Failure[json.RawMessage](s.fail(op, interfaces.ReasonCancelled, ctx.Err()))
			}
			return Failure[json.RawMessage](s.fail(op, interfaces.ReasonChannelFailure, err))
		}

		switch {
		case resp.pending():
			s.setState(StatePolling)
		case resp.Success:
			return Success(resp.Data)
		default:
			return Failure[json.RawMessage](s.fail(op, interfaces.ReasonUserDeclined, errors.New(declineMessage(resp))))
		}
	}
}

func declineMessage(resp *envelope) string {
	if resp.Message != "" {
		return resp.Message
	}
	return fmt.Sprintf("request ended with code %d", resp.Code)
}
