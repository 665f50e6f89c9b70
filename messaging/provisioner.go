// Package messaging provisions the Matrix side of an oracle identity: the
// account, its cross-signing keys and the private room holding the
// encrypted Matrix mnemonic.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/ixoworld/oracle-provisioner/account"
	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const (
	// SecureStateType is the room state event holding the encrypted mnemonic.
	SecureStateType = "ixo.room.state.secure"

	// EncryptedMnemonicKey is the state key of the encrypted mnemonic.
	EncryptedMnemonicKey = "encrypted_mnemonic"

	// MatrixServiceType is the DID service type advertising a homeserver.
	MatrixServiceType = "MatrixHomeServer"
)

// EncryptedMnemonic is the content of the secure room state event.
type EncryptedMnemonic struct {
	EncryptedMnemonic string `json:"encrypted_mnemonic"`
}

// MatrixService returns the DID service pointing at the homeserver of did.
func MatrixService(did, homeServerURL string) interfaces.Service {
	return interfaces.Service{ID: did + "#matrix", Type: MatrixServiceType, ServiceEndpoint: homeServerURL}
}

// RegisterParams configures Register.
type RegisterParams struct {
	PIN           string
	DisplayName   string
	AvatarURL     string
	HomeServerURL string

	// RoomBotURL overrides the rooms bot derived from HomeServerURL.
	RoomBotURL string

	// ForceReset bootstraps cross-signing even when keys are published.
	ForceReset bool

	// LogoutAfter invalidates the access token once registration is done.
	LogoutAfter bool
}

// Account holds the credentials of a provisioned Matrix account. All values
// are secrets except the identifiers.
type Account struct {
	interfaces.MatrixCredentials

	Username       string `json:"username"`
	Password       string `json:"password"`
	Mnemonic       string `json:"mnemonic"`
	RecoveryPhrase string `json:"recoveryPhrase"`
	RecoveryKey    string `json:"recoveryKey,omitempty"`
	RoomID         string `json:"roomId"`
	RoomAlias      string `json:"roomAlias"`
	RoomBotURL     string `json:"roomBotUrl"`
	DeviceName     string `json:"deviceName"`
}

// ProvisionerConfig configures a Provisioner.
type ProvisionerConfig struct {
	NewClient  interfaces.MatrixClientFactory
	HTTPClient *http.Client
	Log        *slog.Logger
}

// Provisioner registers Matrix accounts for chain accounts.
type Provisioner struct {
	newClient  interfaces.MatrixClientFactory
	httpClient *http.Client
	log        *slog.Logger
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	return &Provisioner{
		newClient:  cfg.NewClient,
		httpClient: cfg.HTTPClient,
		log:        cfg.Log,
	}
}

// Register creates and prepares the Matrix account of acc. The DID of acc
// must exist on chain since the room bot resolves it.
//
// A username that is already registered yields a ConflictError before any
// challenge is signed. Profile updates are best effort. The returned client
// is stopped, and logged out when params.LogoutAfter is set.
func (p *Provisioner) Register(ctx context.Context, acc *account.Account, params RegisterParams) (*Account, error) {
	if err := cryptoutils.ValidatePIN(params.PIN); err != nil {
		return nil, interfaces.NewConfigurationError("pin", err.Error())
	}
	if params.HomeServerURL == "" {
		return nil, interfaces.NewConfigurationError("homeServerUrl", "")
	}
	roomBotURL := params.RoomBotURL
	if roomBotURL == "" {
		bots, err := config.DeriveBotURLs(params.HomeServerURL)
		if err != nil {
			return nil, err
		}
		roomBotURL = bots.Rooms
	}
	key, err := acc.Key()
	if err != nil {
		return nil, err
	}

	username, err := cryptoutils.MatrixUsername(acc.Address)
	if err != nil {
		return nil, err
	}

	client, err := p.newClient(params.HomeServerURL, nil)
	if err != nil {
		return nil, err
	}
	defer client.Stop()

	available, err := client.UsernameAvailable(ctx, username)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, &interfaces.ConflictError{Resource: "matrix account", ID: username}
	}

	mnemonic, err := cryptoutils.NewMnemonicWithEntropy(cryptoutils.ShortMnemonicEntropyBits)
	if err != nil {
		return nil, err
	}
	mx := &Account{
		Username:       username,
		Password:       cryptoutils.MatrixPassword(mnemonic),
		Mnemonic:       mnemonic,
		RecoveryPhrase: cryptoutils.RecoveryPassphrase(mnemonic),
		RoomAlias:      cryptoutils.RoomAlias(acc.Address, params.HomeServerURL),
		RoomBotURL:     roomBotURL,
		DeviceName:     config.MatrixDeviceName,
	}

	bot := NewRoomBot(roomBotURL, p.httpClient)
	userID, err := bot.CreateUser(ctx, key, mx.Password)
	if err != nil {
		return nil, err
	}
	p.log.Info("matrix account created", slog.String("userId", userID))

	creds, err := client.Login(ctx, username, mx.Password, mx.DeviceName)
	if err != nil {
		return nil, err
	}
	mx.MatrixCredentials = *creds

	p.updateProfile(ctx, client, params)

	if mx.RecoveryKey, err = p.ensureCrossSigning(ctx, client, mx, params.ForceReset); err != nil {
		return nil, err
	}

	if mx.RoomID, err = p.ensureRoom(ctx, client, bot, acc.DID, mx); err != nil {
		return nil, err
	}

	encrypted, err := cryptoutils.EncryptWithPIN(mnemonic, params.PIN)
	if err != nil {
		return nil, err
	}
	if err := client.PutRoomState(ctx, mx.RoomID, SecureStateType, EncryptedMnemonicKey, &EncryptedMnemonic{EncryptedMnemonic: encrypted}); err != nil {
		return nil, fmt.Errorf("could not store encrypted mnemonic in %s: %w", mx.RoomID, err)
	}

	if params.LogoutAfter {
		if err := client.Logout(ctx); err != nil {
			p.log.Warn("could not log out of matrix", slog.String("userId", mx.UserID), "err", err)
		}
	}

	p.log.Info("matrix account ready", slog.String("userId", mx.UserID), slog.String("roomId", mx.RoomID))
	return mx, nil
}

func (p *Provisioner) updateProfile(ctx context.Context, client interfaces.MatrixClient, params RegisterParams) {
	if params.DisplayName != "" {
		if err := client.SetDisplayName(ctx, params.DisplayName); err != nil {
			p.log.Warn("could not set matrix display name", "err", err)
		}
	}
	if params.AvatarURL != "" {
		if err := client.SetAvatarURL(ctx, params.AvatarURL); err != nil {
			p.log.Warn("could not set matrix avatar", "err", err)
		}
	}
}

func (p *Provisioner) ensureCrossSigning(ctx context.Context, client interfaces.MatrixClient, mx *Account, forceReset bool) (string, error) {
	present, err := client.HasCrossSigning(ctx)
	if err != nil {
		return "", err
	}
	if present && !forceReset {
		p.log.Info("cross-signing already set up", slog.String("userId", mx.UserID))
		return "", nil
	}

	recoveryKey, err := client.BootstrapCrossSigning(ctx, interfaces.CrossSigningParams{
		RecoveryPassphrase: mx.RecoveryPhrase,
		Password:           mx.Password,
		ForceReset:         true,
	})
	if err != nil {
		return "", fmt.Errorf("could not set up cross-signing: %w", err)
	}

	present, err = client.HasCrossSigning(ctx)
	if err != nil {
		return "", err
	}
	if !present {
		return "", &interfaces.ConfirmationTimeoutError{Resource: "cross-signing keys", ID: mx.UserID}
	}
	return recoveryKey, nil
}

// ensureRoom resolves the private room of the account, asking the room bot
// to create it when the alias is unknown, and joins it.
func (p *Provisioner) ensureRoom(ctx context.Context, client interfaces.MatrixClient, bot *RoomBot, did string, mx *Account) (string, error) {
	roomID, err := client.ResolveRoomAlias(ctx, mx.RoomAlias)
	switch {
	case errors.Is(err, interfaces.ErrRoomNotFound):
		if roomID, err = bot.SourceRoom(ctx, did, mx.UserID); err != nil {
			return "", err
		}
		p.log.Info("room created", slog.String("roomId", roomID), slog.String("alias", mx.RoomAlias))
	case err != nil:
		return "", err
	}

	joined, err := p.isMember(ctx, client, roomID, mx.UserID)
	if err != nil {
		return "", err
	}
	if joined {
		return roomID, nil
	}

	if err := client.JoinRoom(ctx, roomID); err != nil {
		return "", fmt.Errorf("could not join %s: %w", roomID, err)
	}

	joined, err = p.isMember(ctx, client, roomID, mx.UserID)
	if err != nil {
		return "", err
	}
	if !joined {
		return "", fmt.Errorf("%s is not a member of %s after joining", mx.UserID, roomID)
	}
	return roomID, nil
}

// isMember reports whether userID has joined roomID. ErrNotRoomMember
// counts as not joined; any other failure is returned.
func (p *Provisioner) isMember(ctx context.Context, client interfaces.MatrixClient, roomID, userID string) (bool, error) {
	members, err := client.JoinedMembers(ctx, roomID)
	if errors.Is(err, interfaces.ErrNotRoomMember) {
		p.log.Debug("not a room member yet", slog.String("roomId", roomID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return slices.Contains(members, userID), nil
}

// LoadMnemonic reads the encrypted Matrix mnemonic from roomID and decrypts
// it with pin.
func LoadMnemonic(ctx context.Context, client interfaces.MatrixClient, roomID, pin string) (string, error) {
	var content EncryptedMnemonic
	if err := client.GetRoomState(ctx, roomID, SecureStateType, EncryptedMnemonicKey, &content); err != nil {
		return "", fmt.Errorf("could not read encrypted mnemonic from %s: %w", roomID, err)
	}
	if content.EncryptedMnemonic == "" {
		return "", fmt.Errorf("room %s holds no encrypted mnemonic", roomID)
	}
	return cryptoutils.DecryptMnemonicWithPIN(content.EncryptedMnemonic, pin)
}
