// Package config replaces process wide mutable settings with an explicit
// value that is threaded through every provisioning component.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// Config contains the settings of one provisioning run.
type Config struct {
	// Network selects the chain and its default endpoints.
	Network interfaces.Network

	// Settings are the endpoints of Network, possibly overridden by flags.
	Settings NetworkSettings

	// HomeServerURL overrides Settings.HomeServerURL when set.
	HomeServerURL string

	// RoomBotURL overrides the rooms bot derived from the homeserver.
	RoomBotURL string

	// APIURL is the oracle service endpoint advertised in the entity.
	APIURL string

	// ParentProtocol is the protocol class the entity belongs to.
	ParentProtocol string

	// WalletPath is where the SignX login is cached between runs.
	WalletPath string

	// PollInterval paces SignX polling.
	PollInterval time.Duration

	// SettleDelay is waited after creating a DID before checking it.
	SettleDelay time.Duration
}

// New creates a configuration with the defaults of network.
func New(network interfaces.Network) (*Config, error) {
	settings, err := SettingsFor(network)
	if err != nil {
		return nil, err
	}

	return &Config{
		Network:        network,
		Settings:       settings,
		APIURL:         DefaultAPIURL,
		ParentProtocol: DefaultParentProtocol,
		PollInterval:   2 * time.Second,
		SettleDelay:    500 * time.Millisecond,
	}, nil
}

// RequireHomeServer returns the Matrix homeserver URL of the run.
func (c *Config) RequireHomeServer() (string, error) {
	hs := c.HomeServerURL
	if hs == "" {
		hs = c.Settings.HomeServerURL
	}
	if hs == "" {
		return "", interfaces.NewConfigurationError("homeServerUrl", "")
	}
	if _, err := url.ParseRequestURI(hs); err != nil {
		return "", interfaces.NewConfigurationError("homeServerUrl", err.Error())
	}
	return strings.TrimSuffix(hs, "/"), nil
}

// RequireBotURLs returns the bot endpoints of the run's homeserver.
func (c *Config) RequireBotURLs() (BotURLs, error) {
	hs, err := c.RequireHomeServer()
	if err != nil {
		return BotURLs{}, err
	}
	return DeriveBotURLs(hs)
}

// RequireRoomBotURL returns the rooms bot of the run.
func (c *Config) RequireRoomBotURL() (string, error) {
	if c.RoomBotURL != "" {
		return strings.TrimSuffix(c.RoomBotURL, "/"), nil
	}
	bots, err := c.RequireBotURLs()
	if err != nil {
		return "", err
	}
	return bots.Rooms, nil
}

// RequireAPIURL returns the oracle service endpoint.
func (c *Config) RequireAPIURL() (string, error) {
	if c.APIURL == "" {
		return "", interfaces.NewConfigurationError("apiUrl", "")
	}
	return c.APIURL, nil
}

// RequireRESTURL returns the chain REST gateway.
func (c *Config) RequireRESTURL() (string, error) {
	if c.Settings.RESTURL == "" {
		return "", interfaces.NewConfigurationError("restUrl", "")
	}
	return c.Settings.RESTURL, nil
}

// EntityPortalURL returns the public page of an entity.
func EntityPortalURL(entityDID string) string {
	return fmt.Sprintf("%s/oracle/%s/overview", PortalURL, entityDID)
}

// BotURLs are the service bots running next to a homeserver.
type BotURLs struct {
	Rooms  string `json:"roomsBotUrl"`
	State  string `json:"stateBotUrl"`
	Bids   string `json:"bidsBotUrl"`
	Claims string `json:"claimsBotUrl"`
}

// DeriveBotURLs maps https://host to https://<bot>.bot.host for every bot,
// keeping the scheme of the homeserver and dropping its port.
func DeriveBotURLs(homeServerURL string) (BotURLs, error) {
	u, err := url.Parse(homeServerURL)
	if err != nil || u.Host == "" {
		return BotURLs{}, interfaces.NewConfigurationError("homeServerUrl", fmt.Sprintf("cannot derive bot urls from %q", homeServerURL))
	}

	bot := func(name string) string {
		return fmt.Sprintf("%s://%s.bot.%s", u.Scheme, name, u.Hostname())
	}

	return BotURLs{
		Rooms:  bot("rooms"),
		State:  bot("state"),
		Bids:   bot("bids"),
		Claims: bot("claims"),
	}, nil
}
