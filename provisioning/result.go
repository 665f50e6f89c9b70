package provisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ixoworld/oracle-provisioner/account"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
	"github.com/ixoworld/oracle-provisioner/messaging"
)

// Result is the record of every identifier and secret generated by a run.
// It is the only copy of the generated secrets.
type Result struct {
	Network interfaces.Network `json:"network"`

	Address  string `json:"address"`
	DID      string `json:"did,omitempty"`
	Mnemonic string `json:"mnemonic"`

	// Funded is set once the caller's funding transfer to Address succeeded.
	Funded bool `json:"funded,omitempty"`

	MatrixUserID         string `json:"matrixUserId,omitempty"`
	MatrixRoomID         string `json:"matrixRoomId,omitempty"`
	MatrixAccessToken    string `json:"matrixAccessToken,omitempty"`
	MatrixDeviceID       string `json:"matrixDeviceId,omitempty"`
	MatrixPassword       string `json:"matrixPassword,omitempty"`
	MatrixRecoveryPhrase string `json:"matrixRecoveryPhrase,omitempty"`
	MatrixRecoveryKey    string `json:"matrixRecoveryKey,omitempty"`
	MatrixMnemonic       string `json:"matrixMnemonic,omitempty"`
	PIN                  string `json:"pin"`
	HomeServerURL        string `json:"matrixHomeServerUrl"`
	RoomBotURL           string `json:"roomBotUrl,omitempty"`
	DeviceName           string `json:"matrixDeviceName,omitempty"`

	EntityDID string `json:"entityDid,omitempty"`
}

func (r *Result) setAccount(acc *account.Account) {
	r.Address = acc.Address
	r.Mnemonic = acc.Mnemonic
}

func (r *Result) setMessaging(mx *messaging.Account) {
	r.MatrixUserID = mx.UserID
	r.MatrixRoomID = mx.RoomID
	r.MatrixAccessToken = mx.AccessToken
	r.MatrixDeviceID = mx.DeviceID
	r.MatrixPassword = mx.Password
	r.MatrixRecoveryPhrase = mx.RecoveryPhrase
	r.MatrixRecoveryKey = mx.RecoveryKey
	r.MatrixMnemonic = mx.Mnemonic
	r.RoomBotURL = mx.RoomBotURL
	r.DeviceName = mx.DeviceName
	if mx.HomeServerURL != "" {
		r.HomeServerURL = mx.HomeServerURL
	}
}

// Checkpoint is the completed part of an earlier run. Steps whose output is
// present are skipped.
type Checkpoint struct {
	Account   *account.Account
	Funded    bool
	DID       string
	Messaging *messaging.Account
	EntityDID string
}

// Checkpoint rebuilds the progress recorded in r.
func (r *Result) Checkpoint() (*Checkpoint, error) {
	cp := &Checkpoint{DID: r.DID, Funded: r.Funded, EntityDID: r.EntityDID}
	if r.Mnemonic == "" {
		return cp, nil
	}

	acc, err := account.AccountFromMnemonic(r.Mnemonic)
	if err != nil {
		return nil, fmt.Errorf("invalid result record: %w", err)
	}
	if r.Address != "" && acc.Address != r.Address {
		return nil, fmt.Errorf("invalid result record: mnemonic belongs to %s, not %s", acc.Address, r.Address)
	}
	cp.Account = acc

	if r.MatrixUserID != "" && r.MatrixAccessToken != "" && r.MatrixRoomID != "" {
		username, err := cryptoutils.MatrixUsername(acc.Address)
		if err != nil {
			return nil, err
		}
		cp.Messaging = &messaging.Account{
			MatrixCredentials: interfaces.MatrixCredentials{
				HomeServerURL: r.HomeServerURL,
				UserID:        r.MatrixUserID,
				AccessToken:   r.MatrixAccessToken,
				DeviceID:      r.MatrixDeviceID,
			},
			Username:       username,
			Password:       r.MatrixPassword,
			Mnemonic:       r.MatrixMnemonic,
			RecoveryPhrase: r.MatrixRecoveryPhrase,
			RecoveryKey:    r.MatrixRecoveryKey,
			RoomID:         r.MatrixRoomID,
			RoomAlias:      cryptoutils.RoomAlias(acc.Address, r.HomeServerURL),
			RoomBotURL:     r.RoomBotURL,
			DeviceName:     r.DeviceName,
		}
	}
	return cp, nil
}

// ResultStore keeps result records in a storage backend as secrets.
type ResultStore struct {
	backend interfaces.StorageBackend
	log     *slog.Logger
}

// NewResultStore creates a ResultStore writing to backend.
func NewResultStore(backend interfaces.StorageBackend, log *slog.Logger) *ResultStore {
	return &ResultStore{backend: backend, log: log}
}

// Save stores r and returns the content ID it can be loaded with.
func (s *ResultStore) Save(ctx context.Context, r *Result) (interfaces.ContentID, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return interfaces.ContentID{}, err
	}
	id, err := s.backend.Store(ctx, data, interfaces.SecretType)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("could not store result in %s: %w", s.backend.Name(), err)
	}
	s.log.Info("result stored", slog.String("backend", s.backend.Name()), slog.String("id", id.String()))
	return id, nil
}

// Load reads the result stored under id.
func (s *ResultStore) Load(ctx context.Context, id interfaces.ContentID) (*Result, error) {
	data, err := s.backend.Fetch(ctx, id, interfaces.SecretType)
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("invalid result record %s: %w", id, err)
	}
	return &r, nil
}
