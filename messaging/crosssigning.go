package messaging

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/curve25519"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/canonicaljson"
	"maunium.net/go/mautrix/crypto/ssss"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const megolmBackupAlgorithm = "m.megolm_backup.v1.curve25519-aes-sha2"

var (
	crossSigningSelfSigningType = event.Type{Type: "m.cross_signing.self_signing", Class: event.AccountDataEventType}
	crossSigningUserSigningType = event.Type{Type: "m.cross_signing.user_signing", Class: event.AccountDataEventType}
	megolmBackupKeyType         = event.Type{Type: "m.megolm_backup.v1", Class: event.AccountDataEventType}
)

type signingKey struct {
	priv ed25519.PrivateKey
	pub  string
}

func newSigningKey() (*signingKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &signingKey{priv: priv, pub: base64.RawStdEncoding.EncodeToString(pub)}, nil
}

func (k *signingKey) keyID() id.KeyID {
	return id.NewKeyID(id.KeyAlgorithmEd25519, k.pub)
}

// seed is the raw private key as stored in secret storage, which encodes
// it before encryption.
func (k *signingKey) seed() []byte {
	return k.priv.Seed()
}

// signJSON signs the canonical JSON form of v, which must not carry
// signatures yet.
func (k *signingKey) signJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	canonical, err := canonicaljson.CanonicalJSON(raw)
	if err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(ed25519.Sign(k.priv, canonical)), nil
}

func (k *signingKey) publicKeys(userID id.UserID, usage id.CrossSigningUsage) mautrix.CrossSigningKeys {
	return mautrix.CrossSigningKeys{
		UserID: userID,
		Usage:  []id.CrossSigningUsage{usage},
		Keys:   map[id.KeyID]id.Ed25519{k.keyID(): id.Ed25519(k.pub)},
	}
}

// signedBy returns the public keys of k carrying a signature of signer.
func (k *signingKey) signedBy(signer *signingKey, userID id.UserID, usage id.CrossSigningUsage) (mautrix.CrossSigningKeys, error) {
	keys := k.publicKeys(userID, usage)
	sig, err := signer.signJSON(keys)
	if err != nil {
		return mautrix.CrossSigningKeys{}, err
	}
	keys.Signatures = map[id.UserID]map[id.KeyID]string{userID: {signer.keyID(): sig}}
	return keys, nil
}

// BootstrapCrossSigning sets up secret storage, cross-signing and key backup
// for the logged in user:
//
//  1. a secret storage key derived from the recovery passphrase becomes the
//     default key
//  2. master, self-signing and user-signing keys are uploaded with password
//     user-interactive auth
//  3. the private cross-signing keys are stored encrypted in secret storage
//  4. a new key backup version replaces any earlier one and its private key
//     is stored in secret storage
//
// The returned recovery key unlocks secret storage.
func (c *MatrixClient) BootstrapCrossSigning(ctx context.Context, params interfaces.CrossSigningParams) (string, error) {
	userID := c.cli.UserID
	if userID == "" {
		return "", interfaces.NewConfigurationError("matrix session", "login before bootstrapping cross-signing")
	}

	storage := ssss.NewSSSSMachine(c.cli)
	key, err := storage.GenerateAndUploadKey(ctx, params.RecoveryPassphrase)
	if err != nil {
		return "", fmt.Errorf("could not create secret storage key: %w", err)
	}
	if err := storage.SetDefaultKeyID(ctx, key.ID); err != nil {
		return "", fmt.Errorf("could not set default secret storage key: %w", err)
	}

	master, err := newSigningKey()
	if err != nil {
		return "", err
	}
	selfSigning, err := newSigningKey()
	if err != nil {
		return "", err
	}
	userSigning, err := newSigningKey()
	if err != nil {
		return "", err
	}

	req := &mautrix.UploadCrossSigningKeysReq{
		Master: master.publicKeys(userID, id.XSUsageMaster),
	}
	if req.SelfSigning, err = selfSigning.signedBy(master, userID, id.XSUsageSelfSigning); err != nil {
		return "", err
	}
	if req.UserSigning, err = userSigning.signedBy(master, userID, id.XSUsageUserSigning); err != nil {
		return "", err
	}

	err = c.cli.UploadCrossSigningKeys(ctx, req, func(uia *mautrix.RespUserInteractive) interface{} {
		return passwordAuth(userID, params.Password, uia.Session)
	})
	if err != nil {
		return "", fmt.Errorf("could not upload cross-signing keys: %w", err)
	}

	secrets := []struct {
		eventType event.Type
		secret    []byte
	}{
		{crossSigningMasterType, master.seed()},
		{crossSigningSelfSigningType, selfSigning.seed()},
		{crossSigningUserSigningType, userSigning.seed()},
	}
	for _, s := range secrets {
		if err := storage.SetEncryptedAccountData(ctx, s.eventType, s.secret, key); err != nil {
			return "", fmt.Errorf("could not store %s in secret storage: %w", s.eventType.Type, err)
		}
	}

	if err := c.resetKeyBackup(ctx, storage, key, master); err != nil {
		return "", err
	}

	c.log.Info("cross-signing bootstrapped", slog.String("userId", userID.String()))
	return key.RecoveryKey(), nil
}

type backupAuthData struct {
	PublicKey  string                          `json:"public_key"`
	Signatures map[string]map[id.KeyID]string `json:"signatures,omitempty"`
}

// resetKeyBackup creates a new key backup version signed by the master key.
func (c *MatrixClient) resetKeyBackup(ctx context.Context, storage *ssss.Machine, key *ssss.Key, master *signingKey) error {
	priv := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(priv); err != nil {
		return err
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return fmt.Errorf("could not derive backup key: %w", err)
	}

	authData := backupAuthData{PublicKey: base64.RawStdEncoding.EncodeToString(pub)}
	sig, err := master.signJSON(authData)
	if err != nil {
		return err
	}
	authData.Signatures = map[string]map[id.KeyID]string{c.cli.UserID.String(): {master.keyID(): sig}}

	var resp struct {
		Version string `json:"version"`
	}
	u := c.cli.BuildClientURL("v3", "room_keys", "version")
	body := map[string]any{"algorithm": megolmBackupAlgorithm, "auth_data": authData}
	if _, err := c.cli.MakeRequest(ctx, http.MethodPost, u, body, &resp); err != nil {
		return fmt.Errorf("could not create key backup version: %w", err)
	}

	if err := storage.SetEncryptedAccountData(ctx, megolmBackupKeyType, priv, key); err != nil {
		return fmt.Errorf("could not store backup key in secret storage: %w", err)
	}

	c.log.Debug("key backup reset", slog.String("version", resp.Version))
	return nil
}

func passwordAuth(userID id.UserID, password, session string) map[string]any {
	return map[string]any{
		"type":     mautrix.AuthTypePassword,
		"session":  session,
		"password": password,
		"identifier": map[string]string{
			"type": string(mautrix.IdentifierTypeUser),
			"user": userID.String(),
		},
	}
}
