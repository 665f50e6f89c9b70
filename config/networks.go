package config

import "github.com/ixoworld/oracle-provisioner/interfaces"

// NetworkSettings holds the per-network endpoints and well known DIDs.
type NetworkSettings struct {
	// RESTURL is the chain REST (LCD) gateway.
	RESTURL string

	// RPCURL is the Tendermint RPC endpoint, reported to callers.
	RPCURL string

	// SignXURL is the remote signing relay.
	SignXURL string

	// HomeServerURL is the default Matrix homeserver.
	HomeServerURL string

	// RelayerNodeDID is embedded in every created entity.
	RelayerNodeDID string

	// MemoryEngineDID is linked as an administrative agent of every oracle.
	MemoryEngineDID string

	// DomainIndexerURL receives created entity DIDs.
	DomainIndexerURL string

	// PricingDenom is the denomination of oracle pricing lists.
	PricingDenom string
}

const (
	// DefaultParentProtocol is the oracle protocol class entities belong to.
	DefaultParentProtocol = "did:ixo:entity:1a76366f16570483cea72b111b27fd78"

	// DefaultAPIURL is the default oracle service endpoint.
	DefaultAPIURL = "http://localhost:4000"

	// PortalURL hosts the public oracle pages.
	PortalURL = "https://ixo-portal.vercel.app"

	// SignXSiteName identifies this tool to wallet apps.
	SignXSiteName = "IXO Oracles CLI"

	// MatrixDeviceName is the display name of Matrix devices created here.
	MatrixDeviceName = "Oracles CLI"

	// FeeDenom pays gas and token transfers.
	FeeDenom = "uixo"

	ibcUSDCDenom = "ibc/6BBE9BD4246F8E04948D5A4EEE7164B2630263B9EBB5E7DC5F0A46C62A2FF97B"
	relayerDID   = "did:ixo:entity:2f22535f8b179a51d77a0e302e68d35d"
)

var networks = map[interfaces.Network]NetworkSettings{
	interfaces.Devnet: {
		RESTURL:          "https://devnet.ixo.earth/rest/",
		RPCURL:           "https://devnet.ixo.earth/rpc/",
		SignXURL:         "https://signx.devnet.ixo.earth",
		HomeServerURL:    "https://devmx.ixo.earth",
		RelayerNodeDID:   relayerDID,
		MemoryEngineDID:  "did:ixo:ixo17w9u5uk4qjyjgeyqfpnp92jwy58faey9vvp3ar",
		DomainIndexerURL: "https://domain-indexer.devnet.ixo.earth/index",
		PricingDenom:     FeeDenom,
	},
	interfaces.Testnet: {
		RESTURL:          "https://testnet.ixo.earth/rest/",
		RPCURL:           "https://testnet.ixo.earth/rpc/",
		SignXURL:         "https://signx.testnet.ixo.earth",
		HomeServerURL:    "https://testmx.ixo.earth",
		RelayerNodeDID:   "did:ixo:entity:3d079ebc0b332aad3305bb4a51c72edb",
		MemoryEngineDID:  "did:ixo:ixo14vjrckltpngugp03tcasfgh5qakey9n3sgm6y2",
		DomainIndexerURL: "https://domain-indexer.testnet.ixo.earth/index",
		PricingDenom:     ibcUSDCDenom,
	},
	interfaces.Mainnet: {
		RESTURL:          "https://impacthub.ixo.world/rest/",
		RPCURL:           "https://impacthub.ixo.world/rpc/",
		SignXURL:         "https://signx.ixo.earth",
		HomeServerURL:    "https://mx.ixo.earth",
		RelayerNodeDID:   relayerDID,
		MemoryEngineDID:  "did:ixo:ixo1d39eutxdc0e8mnp0fmzqjdy6aaf26s9hzrk33r",
		DomainIndexerURL: "https://domain-indexer.ixo.earth/index",
		PricingDenom:     ibcUSDCDenom,
	},
}

// SettingsFor returns the settings of a network.
func SettingsFor(network interfaces.Network) (NetworkSettings, error) {
	settings, ok := networks[network]
	if !ok {
		return NetworkSettings{}, interfaces.NewConfigurationError("network", "unknown network "+string(network))
	}
	return settings, nil
}
