package messaging

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ixoworld/oracle-provisioner/common"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
)

// RoomBot is a client of the rooms bot running next to a homeserver. The
// bot creates Matrix accounts and private rooms on behalf of accounts that
// prove control of their chain key.
type RoomBot struct {
	baseURL string
	cli     *http.Client
	now     func() time.Time
}

// NewRoomBot creates a client for the bot at baseURL.
func NewRoomBot(baseURL string, cli *http.Client) *RoomBot {
	return &RoomBot{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		cli:     common.HTTPClient(cli),
		now:     time.Now,
	}
}

// URL returns the base URL of the bot.
func (b *RoomBot) URL() string {
	return b.baseURL
}

// PublicKey is the key the bot decrypts submitted passwords with.
type PublicKey struct {
	PublicKey   string `json:"publicKey"`
	Fingerprint string `json:"fingerprint"`
	Algorithm   string `json:"algorithm"`
	Usage       string `json:"usage"`
}

type creationChallenge struct {
	Timestamp string `json:"timestamp"`
	Address   string `json:"address"`
	Service   string `json:"service"`
	Type      string `json:"type"`
}

type secpResult struct {
	Signature string `json:"signature"`
	Challenge string `json:"challenge"`
}

type createUserRequest struct {
	Address              string      `json:"address"`
	EncryptedPassword    string      `json:"encryptedPassword"`
	PublicKeyFingerprint string      `json:"publicKeyFingerprint"`
	SecpResult           *secpResult `json:"secpResult,omitempty"`
}

type createUserResponse struct {
	Success      bool   `json:"success"`
	MatrixUserID string `json:"matrixUserId"`
	Address      string `json:"address"`
	Message      string `json:"message"`
}

// PublicKey fetches the current password encryption key of the bot.
func (b *RoomBot) PublicKey(ctx context.Context) (*PublicKey, error) {
	var key PublicKey
	if err := common.DoJSON(ctx, b.cli, http.MethodGet, b.baseURL+"/public-key", nil, &key); err != nil {
		return nil, fmt.Errorf("could not fetch room bot public key: %w", err)
	}
	if key.PublicKey == "" {
		return nil, errors.New("room bot returned an empty public key")
	}
	return &key, nil
}

// Challenge returns the base64 encoded account creation challenge of address.
func (b *RoomBot) Challenge(address string) (string, error) {
	challenge, err := json.Marshal(creationChallenge{
		Timestamp: b.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Address:   address,
		Service:   "matrix",
		Type:      "create-account",
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(challenge), nil
}

// CreateUser asks the bot to register the Matrix account of key. The account
// proves control of its address by signing a fresh challenge, and the
// password travels ECIES encrypted for the bot's current key.
func (b *RoomBot) CreateUser(ctx context.Context, key *cryptoutils.SecpKey, password string) (string, error) {
	challenge, err := b.Challenge(key.Address())
	if err != nil {
		return "", err
	}
	signature, err := key.Sign([]byte(challenge))
	if err != nil {
		return "", err
	}

	publicKey, err := b.PublicKey(ctx)
	if err != nil {
		return "", err
	}
	encryptedPassword, err := cryptoutils.EncryptHexWithSecp256k1PublicKey(publicKey.PublicKey, []byte(password))
	if err != nil {
		return "", fmt.Errorf("could not encrypt matrix password: %w", err)
	}

	req := &createUserRequest{
		Address:              key.Address(),
		EncryptedPassword:    encryptedPassword,
		PublicKeyFingerprint: publicKey.Fingerprint,
		SecpResult: &secpResult{
			Signature: base64.StdEncoding.EncodeToString(signature),
			Challenge: challenge,
		},
	}

	var resp createUserResponse
	if err := common.DoJSON(ctx, b.cli, http.MethodPost, b.baseURL+"/user/create", req, &resp); err != nil {
		return "", fmt.Errorf("could not create matrix account: %w", err)
	}
	if !resp.Success {
		return "", fmt.Errorf("room bot refused to create matrix account: %s", resp.Message)
	}
	return resp.MatrixUserID, nil
}

// SourceRoom asks the bot to create the private room of did and invite
// userID. It returns the new room id.
func (b *RoomBot) SourceRoom(ctx context.Context, did, userID string) (string, error) {
	req := map[string]string{"did": did, "userMatrixId": userID}
	var resp struct {
		RoomID string `json:"roomId"`
	}
	if err := common.DoJSON(ctx, b.cli, http.MethodPost, b.baseURL+"/room/source", req, &resp); err != nil {
		return "", fmt.Errorf("could not create room for %s: %w", did, err)
	}
	if resp.RoomID == "" {
		return "", fmt.Errorf("room bot returned no room for %s", did)
	}
	return resp.RoomID, nil
}
