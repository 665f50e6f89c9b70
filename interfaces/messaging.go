package interfaces

import "context"

// MatrixCredentials identify a logged in Matrix session.
type MatrixCredentials struct {
	HomeServerURL string `json:"homeServerUrl"`
	UserID        string `json:"userId"`
	AccessToken   string `json:"accessToken"`
	DeviceID      string `json:"deviceId"`
}

// CrossSigningParams configures an end-to-end encryption bootstrap.
type CrossSigningParams struct {
	// RecoveryPassphrase derives the secret storage recovery key.
	RecoveryPassphrase string

	// Password authorizes publishing the cross-signing keys.
	Password string

	// ForceReset bootstraps even when cross-signing keys are present,
	// invalidating every earlier recovery key.
	ForceReset bool
}

// MatrixClient is the subset of the Matrix client-server API used by the
// provisioner. A client starts unauthenticated; Login binds it to a session.
type MatrixClient interface {
	// UsernameAvailable reports whether username can be registered. A
	// taken name yields (false, nil); a failed check yields a non-nil error.
	UsernameAvailable(ctx context.Context, username string) (bool, error)

	// Login performs a password login and keeps the resulting session.
	Login(ctx context.Context, username, password, deviceName string) (*MatrixCredentials, error)

	SetDisplayName(ctx context.Context, name string) error
	SetAvatarURL(ctx context.Context, url string) error

	// Upload stores data in the media repository and returns its mxc URI.
	Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error)

	// DownloadURL turns an mxc URI into a public http URL.
	DownloadURL(mxc string) (string, error)

	// ResolveRoomAlias returns the room id for alias or ErrRoomNotFound.
	ResolveRoomAlias(ctx context.Context, alias string) (string, error)

	JoinRoom(ctx context.Context, roomID string) error
	JoinedMembers(ctx context.Context, roomID string) ([]string, error)

	PutRoomState(ctx context.Context, roomID, eventType, stateKey string, content any) error
	GetRoomState(ctx context.Context, roomID, eventType, stateKey string, out any) error

	// HasCrossSigning reports whether the account has published a
	// cross-signing master key.
	HasCrossSigning(ctx context.Context) (bool, error)

	// BootstrapCrossSigning creates secret storage, cross-signing keys and a
	// fresh key backup.
	BootstrapCrossSigning(ctx context.Context, params CrossSigningParams) (recoveryKey string, err error)

	// Stop ends background activity without invalidating the access token.
	Stop()

	// Logout invalidates the access token.
	Logout(ctx context.Context) error
}

// MatrixClientFactory creates a client bound to a homeserver. A non-nil
// credentials value resumes an existing session.
type MatrixClientFactory func(homeServerURL string, creds *MatrixCredentials) (MatrixClient, error)
