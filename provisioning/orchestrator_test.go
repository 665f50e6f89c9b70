package provisioning

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ixoworld/oracle-provisioner/account"
	"github.com/ixoworld/oracle-provisioner/chain"
	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/entity"
	"github.com/ixoworld/oracle-provisioner/interfaces"
	"github.com/ixoworld/oracle-provisioner/messaging"
	"github.com/ixoworld/oracle-provisioner/metrics"
	"github.com/ixoworld/oracle-provisioner/signx"
	"github.com/ixoworld/oracle-provisioner/storage"
)

const (
	walletMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testHS         = "http://localhost:8008"
	testPIN        = "123456"
	testUserID     = "@oracle:localhost"
	testRoomID     = "!secure:localhost"
	testEntityDID  = "did:ixo:entity:0123456789abcdef0123456789abcdef"
)

func newFakeRoomBot(t *testing.T) *httptest.Server {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/public-key", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, messaging.PublicKey{
			PublicKey:   hex.EncodeToString(crypto.CompressPubkey(&key.PublicKey)),
			Fingerprint: "fp-1",
			Algorithm:   "secp256k1",
		})
	})
	r.Post("/user/create", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, map[string]any{"success": true, "matrixUserId": testUserID, "address": req["address"]})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	cfg      *config.Config
	remote   *signx.MockRemoteSigner
	chain    *chain.MockChainClient
	local    *chain.MockTxSigner
	matrix   *messaging.MockMatrixClient
	results  *storage.MockStorageBackend
	recorder *metrics.Recorder
	orch     *Orchestrator

	mu    sync.Mutex
	order []string
}

func newHarness(t *testing.T) *harness {
	bot := newFakeRoomBot(t)

	cfg, err := config.New(interfaces.Devnet)
	require.NoError(t, err)
	cfg.HomeServerURL = testHS
	cfg.RoomBotURL = bot.URL
	cfg.SettleDelay = time.Millisecond
	cfg.Settings.DomainIndexerURL = ""

	h := &harness{
		cfg:      cfg,
		remote:   &signx.MockRemoteSigner{},
		chain:    &chain.MockChainClient{},
		local:    &chain.MockTxSigner{},
		matrix:   &messaging.MockMatrixClient{},
		results:  storage.NewMockStorageBackend("results"),
		recorder: metrics.NewRecorder(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.orch = New(Config{
		Config:     cfg,
		Signer:     h.remote,
		Chain:      h.chain,
		SignerFor:  func(*cryptoutils.SecpKey) interfaces.TxSigner { return h.local },
		NewClient:  messaging.MockFactory(h.matrix),
		Results:    NewResultStore(h.results, log),
		Metrics:    h.recorder,
		HTTPClient: bot.Client(),
		Log:        log,
	})
	return h
}

func (h *harness) record(step string) func(mock.Arguments) {
	return func(mock.Arguments) {
		h.mu.Lock()
		h.order = append(h.order, step)
		h.mu.Unlock()
	}
}

func (h *harness) steps() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

// expectNewDID makes the next DID lookup miss and every later one hit.
func (h *harness) expectNewDID() {
	h.chain.On("DIDDocument", mock.Anything, mock.Anything).Return(nil, interfaces.ErrDIDNotFound).Once()
	h.chain.On("DIDDocument", mock.Anything, mock.Anything).Return(&interfaces.DIDDocument{}, nil)
	h.chain.On("FeeAllowances", mock.Anything, mock.Anything).Return([]interfaces.Allowance{}, nil)
	h.local.On("SignAndBroadcast", mock.Anything, mock.Anything, "", "").
		Run(h.record("did")).
		Return(&interfaces.TxResponse{TxHash: "DID"}, nil)
}

func (h *harness) expectRegistration() {
	h.matrix.On("UsernameAvailable", mock.Anything, mock.Anything).Return(true, nil)
	h.matrix.On("Login", mock.Anything, mock.Anything, mock.Anything, config.MatrixDeviceName).
		Run(h.record("messaging")).
		Return(&interfaces.MatrixCredentials{HomeServerURL: testHS, UserID: testUserID, AccessToken: "syt_token", DeviceID: "DEVICE"}, nil)
	h.matrix.On("SetDisplayName", mock.Anything, mock.Anything).Return(nil)
	h.matrix.On("SetAvatarURL", mock.Anything, mock.Anything).Return(nil)
	h.matrix.On("HasCrossSigning", mock.Anything).Return(true, nil)
	h.matrix.On("ResolveRoomAlias", mock.Anything, mock.Anything).Return(testRoomID, nil)
	h.matrix.On("JoinedMembers", mock.Anything, testRoomID).Return([]string{testUserID}, nil)
	h.matrix.On("PutRoomState", mock.Anything, testRoomID, messaging.SecureStateType, messaging.EncryptedMnemonicKey, mock.Anything).Return(nil)
	h.matrix.On("Stop").Return()
}

func (h *harness) expectStoredResult() *Result {
	stored := &Result{}
	h.results.On("Store", mock.Anything, mock.Anything, interfaces.SecretType).
		Run(func(args mock.Arguments) {
			_ = json.Unmarshal(args.Get(1).([]byte), stored)
		}).
		Return(interfaces.ContentID{}, nil)
	return stored
}

func testWallet(t *testing.T) *interfaces.Wallet {
	acc, err := account.AccountFromMnemonic(walletMnemonic)
	require.NoError(t, err)
	return &interfaces.Wallet{
		Address: acc.Address,
		DID:     acc.DID,
		Algo:    "secp256k1",
		PubKey:  hex.EncodeToString(acc.PubKey),
		Network: interfaces.Devnet,
	}
}

func isSend(amount string) func([]interfaces.Msg) bool {
	return func(msgs []interfaces.Msg) bool {
		if len(msgs) != 1 {
			return false
		}
		send, ok := msgs[0].(*chain.MsgSend)
		return ok && len(send.Amount) == 1 && send.Amount[0].Amount == amount
	}
}

func TestCreateUserUnauthenticated(t *testing.T) {
	h := newHarness(t)
	h.expectNewDID()
	h.expectRegistration()
	stored := h.expectStoredResult()

	res, err := h.orch.CreateUser(context.Background(), CreateUserParams{
		Identity:    Unauthenticated{},
		PIN:         testPIN,
		DisplayName: "My oracle",
		AvatarURL:   "https://api.dicebear.com/8.x/bottts/svg?seed=My%20oracle",
	})
	require.NoError(t, err)

	assert.Equal(t, interfaces.Devnet, res.Network)
	assert.Equal(t, "did:ixo:"+res.Address, res.DID)
	assert.NotEmpty(t, res.Mnemonic)
	assert.Equal(t, testUserID, res.MatrixUserID)
	assert.Equal(t, testRoomID, res.MatrixRoomID)
	assert.Equal(t, "syt_token", res.MatrixAccessToken)
	assert.Equal(t, "DEVICE", res.MatrixDeviceID)
	assert.Equal(t, cryptoutils.MatrixPassword(res.MatrixMnemonic), res.MatrixPassword)
	assert.Equal(t, cryptoutils.RecoveryPassphrase(res.MatrixMnemonic), res.MatrixRecoveryPhrase)
	assert.Equal(t, testPIN, res.PIN)
	assert.Equal(t, testHS, res.HomeServerURL)
	assert.Equal(t, h.cfg.RoomBotURL, res.RoomBotURL)
	assert.Equal(t, config.MatrixDeviceName, res.DeviceName)
	assert.Empty(t, res.EntityDID)

	assert.Equal(t, res, stored)
	assert.Equal(t, []string{"did", "messaging"}, h.steps())
	h.remote.AssertNotCalled(t, "Transact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateUserFundsFromWallet(t *testing.T) {
	h := newHarness(t)
	wallet := testWallet(t)
	h.expectNewDID()
	h.expectRegistration()
	h.expectStoredResult()
	h.remote.On("Transact", mock.Anything, wallet, mock.MatchedBy(isSend("150000")), "").
		Run(h.record("funding")).
		Return(&interfaces.TxResponse{TxHash: "SEND"}, nil)

	res, err := h.orch.CreateUser(context.Background(), CreateUserParams{
		Identity: IdentityFor(wallet),
		PIN:      testPIN,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.DID)
	assert.Equal(t, []string{"funding", "did", "messaging"}, h.steps())
}

func TestCreateUserResume(t *testing.T) {
	h := newHarness(t)
	wallet := testWallet(t)
	h.expectRegistration()
	h.expectStoredResult()

	acc, err := account.CreateAccount()
	require.NoError(t, err)

	res, err := h.orch.CreateUser(context.Background(), CreateUserParams{
		Identity:   IdentityFor(wallet),
		PIN:        testPIN,
		Checkpoint: &Checkpoint{Account: acc, DID: acc.DID},
	})
	require.NoError(t, err)
	assert.Equal(t, acc.Address, res.Address)
	assert.Equal(t, acc.Mnemonic, res.Mnemonic)
	assert.Equal(t, acc.DID, res.DID)
	assert.Equal(t, testUserID, res.MatrixUserID)

	h.remote.AssertNotCalled(t, "Transact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.chain.AssertNotCalled(t, "DIDDocument", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"messaging"}, h.steps())
}

func TestCreateUserStepError(t *testing.T) {
	h := newHarness(t)
	stored := h.expectStoredResult()

	broadcastErr := errors.New("out of gas")
	h.chain.On("DIDDocument", mock.Anything, mock.Anything).Return(nil, interfaces.ErrDIDNotFound)
	h.chain.On("FeeAllowances", mock.Anything, mock.Anything).Return(nil, errors.New("unreachable"))
	h.local.On("SignAndBroadcast", mock.Anything, mock.Anything, "", "").Return(nil, broadcastErr)

	res, err := h.orch.CreateUser(context.Background(), CreateUserParams{Identity: Unauthenticated{}, PIN: testPIN})

	var stepErr *interfaces.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepDID, stepErr.Step)
	require.ErrorIs(t, err, broadcastErr)

	require.NotNil(t, res)
	assert.NotEmpty(t, res.Mnemonic)
	assert.Empty(t, res.DID)
	assert.Equal(t, res.Mnemonic, stored.Mnemonic)

	cp, err := res.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, res.Address, cp.Account.Address)
	assert.Empty(t, cp.DID)
	assert.Nil(t, cp.Messaging)
}

func TestCreateUserResumeAfterDIDFailureFundsOnce(t *testing.T) {
	h := newHarness(t)
	wallet := testWallet(t)
	h.expectRegistration()
	stored := h.expectStoredResult()

	h.remote.On("Transact", mock.Anything, wallet, mock.MatchedBy(isSend("150000")), "").
		Run(h.record("funding")).
		Return(&interfaces.TxResponse{TxHash: "SEND"}, nil)
	h.chain.On("DIDDocument", mock.Anything, mock.Anything).Return(nil, interfaces.ErrDIDNotFound).Twice()
	h.chain.On("DIDDocument", mock.Anything, mock.Anything).Return(&interfaces.DIDDocument{}, nil)
	h.chain.On("FeeAllowances", mock.Anything, mock.Anything).Return([]interfaces.Allowance{}, nil)
	broadcastErr := errors.New("out of gas")
	h.local.On("SignAndBroadcast", mock.Anything, mock.Anything, "", "").Return(nil, broadcastErr).Once()
	h.local.On("SignAndBroadcast", mock.Anything, mock.Anything, "", "").
		Run(h.record("did")).
		Return(&interfaces.TxResponse{TxHash: "DID"}, nil)

	res, err := h.orch.CreateUser(context.Background(), CreateUserParams{Identity: IdentityFor(wallet), PIN: testPIN})
	var stepErr *interfaces.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepDID, stepErr.Step)
	assert.True(t, res.Funded)
	assert.True(t, stored.Funded)

	// The checkpoint goes through the stored record, as a resumed CLI run does.
	cp, err := stored.Checkpoint()
	require.NoError(t, err)
	assert.True(t, cp.Funded)

	res, err = h.orch.CreateUser(context.Background(), CreateUserParams{
		Identity:   IdentityFor(wallet),
		PIN:        testPIN,
		Checkpoint: cp,
	})
	require.NoError(t, err)
	assert.Equal(t, "did:ixo:"+res.Address, res.DID)
	assert.True(t, res.Funded)

	h.remote.AssertNumberOfCalls(t, "Transact", 1)
	h.local.AssertNumberOfCalls(t, "SignAndBroadcast", 2)
	assert.Equal(t, []string{"funding", "did", "messaging"}, h.steps())
}

func TestCreateEntityRequiresWallet(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.CreateEntity(context.Background(), CreateEntityParams{Identity: Unauthenticated{}, PIN: testPIN})
	var cfgErr *interfaces.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "wallet", cfgErr.Field)

	_, err = h.orch.AddController(context.Background(), Unauthenticated{}, testEntityDID, "did:ixo:ixo1abc")
	require.ErrorAs(t, err, &cfgErr)
	_, err = h.orch.SendTokens(context.Background(), Unauthenticated{}, "ixo1abc", 1)
	require.ErrorAs(t, err, &cfgErr)
}

func TestCreateEntity(t *testing.T) {
	h := newHarness(t)
	wallet := testWallet(t)
	h.expectNewDID()
	h.expectRegistration()
	stored := h.expectStoredResult()

	h.matrix.On("Upload", mock.Anything, mock.Anything, "application/ld+json", mock.Anything).Return("mxc://localhost/doc", nil)
	h.matrix.On("DownloadURL", "mxc://localhost/doc").Return(testHS+"/_matrix/media/v3/download/localhost/doc", nil)
	h.matrix.On("Logout", mock.Anything).Return(nil)

	h.remote.On("Transact", mock.Anything, wallet, mock.MatchedBy(isSend("250000")), "").
		Run(h.record("funding")).
		Return(&interfaces.TxResponse{TxHash: "SEND"}, nil)

	var services []interfaces.Service
	h.remote.On("Transact", mock.Anything, wallet, mock.MatchedBy(func(msgs []interfaces.Msg) bool {
		_, ok := msgs[0].(*chain.MsgCreateEntity)
		return ok
	}), "").
		Run(func(args mock.Arguments) {
			services = args.Get(2).([]interfaces.Msg)[0].(*chain.MsgCreateEntity).Service
			h.record("entity")(args)
		}).
		Return(&interfaces.TxResponse{
			TxHash: "CREATE",
			Events: []interfaces.Event{{Type: "wasm", Attributes: []interfaces.EventAttribute{{Key: "token_id", Value: testEntityDID}}}},
		}, nil)
	h.remote.On("Transact", mock.Anything, wallet, mock.MatchedBy(func(msgs []interfaces.Msg) bool {
		_, ok := msgs[0].(*chain.MsgAddLinkedResource)
		return ok
	}), "").Return(&interfaces.TxResponse{TxHash: "ATTACH"}, nil)

	res, err := h.orch.CreateEntity(context.Background(), CreateEntityParams{
		Identity: IdentityFor(wallet),
		PIN:      testPIN,
		Profile: entity.Profile{
			OrgName:     "IXO",
			Name:        "My oracle",
			Logo:        "https://api.dicebear.com/8.x/bottts/svg?seed=IXO",
			CoverImage:  "https://api.dicebear.com/8.x/bottts/svg?seed=IXO",
			Location:    "New York, NY",
			Description: "We are a company that helps you with daily tasks",
		},
		OracleConfig: entity.OracleConfig{Name: "My oracle", Price: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, testEntityDID, res.EntityDID)
	assert.Equal(t, testUserID, res.MatrixUserID)
	assert.NotEmpty(t, res.DID)
	assert.Equal(t, testEntityDID, stored.EntityDID)
	assert.Equal(t, []string{"funding", "did", "messaging", "entity"}, h.steps())

	require.Len(t, services, 3)
	assert.Equal(t, DefaultServices(config.DefaultAPIURL), services[1:])
}

func TestCreateEntityFailureKeepsIdentity(t *testing.T) {
	h := newHarness(t)
	wallet := testWallet(t)
	h.expectNewDID()
	h.expectRegistration()
	h.expectStoredResult()

	h.remote.On("Transact", mock.Anything, wallet, mock.MatchedBy(isSend("250000")), "").
		Return(&interfaces.TxResponse{TxHash: "SEND"}, nil)
	h.matrix.On("Upload", mock.Anything, mock.Anything, mock.Anything, "profile.json").
		Return("", &interfaces.UploadError{Name: "profile.json", StatusCode: http.StatusBadGateway})

	res, err := h.orch.CreateEntity(context.Background(), CreateEntityParams{
		Identity: IdentityFor(wallet),
		PIN:      testPIN,
		Profile: entity.Profile{
			OrgName:     "IXO",
			Name:        "My oracle",
			Logo:        "https://example.com/logo.png",
			CoverImage:  "https://example.com/logo.png",
			Location:    "Nairobi",
			Description: "Weather data",
		},
		OracleConfig: entity.OracleConfig{Name: "My oracle", Price: 1},
		Services:     []interfaces.Service{{ID: "{id}#api", Type: "oracleService", ServiceEndpoint: "https://oracle.example.com"}},
	})

	var stepErr *interfaces.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepEntity, stepErr.Step)
	var uploadErr *interfaces.UploadError
	require.ErrorAs(t, err, &uploadErr)

	assert.Empty(t, res.EntityDID)
	assert.NotEmpty(t, res.DID)
	assert.Equal(t, testUserID, res.MatrixUserID)

	cp, err := res.Checkpoint()
	require.NoError(t, err)
	require.NotNil(t, cp.Messaging)
	assert.Equal(t, "syt_token", cp.Messaging.AccessToken)
	assert.Equal(t, res.DID, cp.DID)
}

func TestCreateEntityIdentityStepError(t *testing.T) {
	h := newHarness(t)
	wallet := testWallet(t)
	h.expectStoredResult()

	declined := &interfaces.RemoteSigningError{Op: "transact", Reason: interfaces.ReasonUserDeclined}
	h.remote.On("Transact", mock.Anything, wallet, mock.Anything, "").Return(nil, declined)

	res, err := h.orch.CreateEntity(context.Background(), CreateEntityParams{
		Identity: IdentityFor(wallet),
		PIN:      testPIN,
		Profile: entity.Profile{
			OrgName: "IXO", Name: "n", Logo: "https://example.com/l.png", CoverImage: "https://example.com/c.png",
			Location: "l", Description: "d",
		},
		OracleConfig: entity.OracleConfig{Name: "n"},
	})

	var stepErr *interfaces.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepFunding, stepErr.Step)
	var signErr *interfaces.RemoteSigningError
	require.ErrorAs(t, err, &signErr)
	assert.False(t, signErr.Retryable())
	assert.NotEmpty(t, res.Mnemonic)
}

func TestIdentityFor(t *testing.T) {
	assert.Equal(t, Unauthenticated{}, IdentityFor(nil))
	assert.Equal(t, Unauthenticated{}, IdentityFor(&interfaces.Wallet{Address: "ixo1abc"}))

	wallet := testWallet(t)
	wallet.Matrix = &interfaces.MatrixLogin{Address: wallet.Address, AccessToken: "syt", UserID: "@w:localhost"}
	id := IdentityFor(wallet)
	auth, ok := id.(Authenticated)
	require.True(t, ok)
	assert.Same(t, wallet, auth.Wallet)
	require.NotNil(t, auth.Messaging)
	assert.Equal(t, "@w:localhost", auth.Messaging.UserID)

	got, err := RequireWallet(id)
	require.NoError(t, err)
	assert.Same(t, wallet, got)
}

func TestResultCheckpoint(t *testing.T) {
	acc, err := account.CreateAccount()
	require.NoError(t, err)

	_, err = (&Result{Address: "ixo1other", Mnemonic: acc.Mnemonic}).Checkpoint()
	require.Error(t, err)

	cp, err := (&Result{}).Checkpoint()
	require.NoError(t, err)
	assert.Nil(t, cp.Account)

	res := &Result{
		Address:           acc.Address,
		Mnemonic:          acc.Mnemonic,
		DID:               acc.DID,
		MatrixUserID:      testUserID,
		MatrixAccessToken: "syt",
		MatrixRoomID:      testRoomID,
		HomeServerURL:     testHS,
		EntityDID:         testEntityDID,
	}
	cp, err = res.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, acc.DID, cp.DID)
	assert.Equal(t, testEntityDID, cp.EntityDID)
	require.NotNil(t, cp.Messaging)
	assert.Equal(t, "did-ixo-"+acc.Address, cp.Messaging.Username)
	assert.Equal(t, "#did-ixo-"+acc.Address+":localhost:8008", cp.Messaging.RoomAlias)
}
