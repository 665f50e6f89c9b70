package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/ixoworld/oracle-provisioner/common"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

var crossSigningMasterType = event.Type{Type: "m.cross_signing.master", Class: event.AccountDataEventType}

// MatrixClient implements interfaces.MatrixClient on top of mautrix.
type MatrixClient struct {
	hs  string
	cli *mautrix.Client
	log *slog.Logger
}

// NewMatrixClientFactory returns a factory creating mautrix backed clients
// that share httpClient.
func NewMatrixClientFactory(httpClient *http.Client, log *slog.Logger) interfaces.MatrixClientFactory {
	httpClient = common.HTTPClient(httpClient)
	return func(homeServerURL string, creds *interfaces.MatrixCredentials) (interfaces.MatrixClient, error) {
		return NewMatrixClient(homeServerURL, creds, httpClient, log)
	}
}

// NewMatrixClient creates a client for homeServerURL. A nil creds value
// creates an unauthenticated client.
func NewMatrixClient(homeServerURL string, creds *interfaces.MatrixCredentials, httpClient *http.Client, log *slog.Logger) (*MatrixClient, error) {
	hs := strings.TrimSuffix(homeServerURL, "/")
	var (
		userID      id.UserID
		accessToken string
	)
	if creds != nil {
		userID = id.UserID(creds.UserID)
		accessToken = creds.AccessToken
	}

	cli, err := mautrix.NewClient(hs, userID, accessToken)
	if err != nil {
		return nil, fmt.Errorf("could not create matrix client for %s: %w", hs, err)
	}
	cli.Client = common.HTTPClient(httpClient)
	if creds != nil {
		cli.DeviceID = id.DeviceID(creds.DeviceID)
	}

	return &MatrixClient{hs: hs, cli: cli, log: log}, nil
}

// UsernameAvailable checks the registration availability of username.
// M_USER_IN_USE is reported as (false, nil).
func (c *MatrixClient) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	resp, err := c.cli.RegisterAvailable(ctx, username)
	if errors.Is(err, mautrix.MUserInUse) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not check availability of %s: %w", username, err)
	}
	return resp.Available, nil
}

// Login performs a password login and binds the client to the new session.
func (c *MatrixClient) Login(ctx context.Context, username, password, deviceName string) (*interfaces.MatrixCredentials, error) {
	resp, err := c.cli.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: strings.TrimPrefix(strings.TrimSpace(username), "@"),
		},
		Password:                 password,
		InitialDeviceDisplayName: deviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("matrix login of %s failed: %w", username, err)
	}

	return &interfaces.MatrixCredentials{
		HomeServerURL: c.hs,
		UserID:        resp.UserID.String(),
		AccessToken:   resp.AccessToken,
		DeviceID:      resp.DeviceID.String(),
	}, nil
}

func (c *MatrixClient) SetDisplayName(ctx context.Context, name string) error {
	return c.cli.SetDisplayName(ctx, name)
}

// SetAvatarURL accepts both mxc URIs and plain http URLs.
func (c *MatrixClient) SetAvatarURL(ctx context.Context, avatarURL string) error {
	if uri, err := id.ParseContentURI(avatarURL); err == nil {
		return c.cli.SetAvatarURL(ctx, uri)
	}
	u := c.cli.BuildClientURL("v3", "profile", c.cli.UserID, "avatar_url")
	_, err := c.cli.MakeRequest(ctx, http.MethodPut, u, map[string]string{"avatar_url": avatarURL}, nil)
	return err
}

// Upload stores data in the media repository.
func (c *MatrixClient) Upload(ctx context.Context, data []byte, contentType, fileName string) (string, error) {
	resp, err := c.cli.UploadBytesWithName(ctx, data, contentType, fileName)
	if err != nil {
		uploadErr := &interfaces.UploadError{Name: fileName, Err: err}
		var httpErr mautrix.HTTPError
		if errors.As(err, &httpErr) && httpErr.Response != nil {
			uploadErr.StatusCode = httpErr.Response.StatusCode
		}
		return "", uploadErr
	}
	return resp.ContentURI.String(), nil
}

// DownloadURL maps mxc://server/media to the public v3 download endpoint.
func (c *MatrixClient) DownloadURL(mxc string) (string, error) {
	uri, err := id.ParseContentURI(mxc)
	if err != nil {
		return "", fmt.Errorf("invalid mxc uri %q: %w", mxc, err)
	}
	return fmt.Sprintf("%s/_matrix/media/v3/download/%s/%s", c.hs, url.PathEscape(uri.Homeserver), url.PathEscape(uri.FileID)), nil
}

func (c *MatrixClient) ResolveRoomAlias(ctx context.Context, alias string) (string, error) {
	resp, err := c.cli.ResolveAlias(ctx, id.RoomAlias(alias))
	if errors.Is(err, mautrix.MNotFound) {
		return "", fmt.Errorf("%s: %w", alias, interfaces.ErrRoomNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("could not resolve %s: %w", alias, err)
	}
	return resp.RoomID.String(), nil
}

func (c *MatrixClient) JoinRoom(ctx context.Context, roomID string) error {
	_, err := c.cli.JoinRoomByID(ctx, id.RoomID(roomID))
	return err
}

// JoinedMembers lists the joined members of roomID. A server refusal for a
// user outside the room is reported as ErrNotRoomMember.
func (c *MatrixClient) JoinedMembers(ctx context.Context, roomID string) ([]string, error) {
	resp, err := c.cli.JoinedMembers(ctx, id.RoomID(roomID))
	if errors.Is(err, mautrix.MForbidden) {
		return nil, fmt.Errorf("%s: %w", roomID, interfaces.ErrNotRoomMember)
	}
	if err != nil {
		return nil, fmt.Errorf("could not list members of %s: %w", roomID, err)
	}
	members := make([]string, 0, len(resp.Joined))
	for userID := range resp.Joined {
		members = append(members, userID.String())
	}
	return members, nil
}

func (c *MatrixClient) PutRoomState(ctx context.Context, roomID, eventType, stateKey string, content any) error {
	evtType := event.Type{Type: eventType, Class: event.StateEventType}
	_, err := c.cli.SendStateEvent(ctx, id.RoomID(roomID), evtType, stateKey, content)
	return err
}

func (c *MatrixClient) GetRoomState(ctx context.Context, roomID, eventType, stateKey string, out any) error {
	evtType := event.Type{Type: eventType, Class: event.StateEventType}
	return c.cli.StateEvent(ctx, id.RoomID(roomID), evtType, stateKey, out)
}

// HasCrossSigning looks for the master key in the account data of the user.
func (c *MatrixClient) HasCrossSigning(ctx context.Context) (bool, error) {
	var content map[string]any
	err := c.cli.GetAccountData(ctx, crossSigningMasterType.Type, &content)
	if errors.Is(err, mautrix.MNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not read cross-signing account data: %w", err)
	}
	return len(content) > 0, nil
}

// Stop ends background activity. The session stays valid.
func (c *MatrixClient) Stop() {
	c.cli.StopSync()
}

func (c *MatrixClient) Logout(ctx context.Context) error {
	if _, err := c.cli.Logout(ctx); err != nil {
		return fmt.Errorf("matrix logout failed: %w", err)
	}
	c.cli.ClearCredentials()
	return nil
}
