// Package entity publishes an oracle as an on-chain entity: the entity
// document itself, its profile, domain card and oracle configuration
// resources, all authorized by the operator wallet through remote signing.
package entity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ixoworld/oracle-provisioner/account"
	"github.com/ixoworld/oracle-provisioner/chain"
	"github.com/ixoworld/oracle-provisioner/common"
	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/interfaces"
	"github.com/ixoworld/oracle-provisioner/messaging"
)

const (
	// EntityType is the entity type of every created oracle.
	EntityType = "oracle"

	// EntityFunding is the uixo amount sent to a new oracle account.
	EntityFunding = 250_000

	validityYears = 100
)

// Oracle is the chain and Matrix identity of an oracle.
type Oracle struct {
	Account   *account.Account
	Messaging *messaging.Account
}

// IdentityParams configures the identity of a new oracle.
type IdentityParams struct {
	PIN           string
	DisplayName   string
	AvatarURL     string
	HomeServerURL string
	RoomBotURL    string

	// Funding is sent from the wallet to the oracle account before its DID
	// is created.
	Funding int64
}

// IdentitySource provisions the account, DID and Matrix account of an
// oracle.
type IdentitySource interface {
	OracleIdentity(ctx context.Context, wallet *interfaces.Wallet, params IdentityParams) (*Oracle, error)
}

// CreateEntityParams describes the entity to create.
type CreateEntityParams struct {
	Profile      Profile
	OracleConfig OracleConfig

	Services       []interfaces.Service `validate:"dive"`
	ParentProtocol string               `validate:"required,did"`
	HomeServerURL  string               `validate:"required,url"`
	RoomBotURL     string               `validate:"omitempty,url"`
	PIN            string               `validate:"pin"`

	// EntityDID resumes a run whose entity was already created. Resources
	// already attached to it are not uploaded again.
	EntityDID string `validate:"omitempty,entitydid"`
}

// Created is the outcome of CreateEntity. On failure it holds whatever was
// provisioned before the failing step.
type Created struct {
	EntityDID string
	Oracle    *Oracle
}

// ProvisionerConfig configures a Provisioner.
type ProvisionerConfig struct {
	Signer     interfaces.RemoteSigner
	Chain      interfaces.ChainQuerier
	Identities IdentitySource
	NewClient  interfaces.MatrixClientFactory

	// Mirror receives a copy of every uploaded document. Optional.
	Mirror interfaces.StorageBackend

	HTTPClient *http.Client
	Settings   config.NetworkSettings
	Log        *slog.Logger
}

// Provisioner creates and updates oracle entities.
type Provisioner struct {
	signer     interfaces.RemoteSigner
	chain      interfaces.ChainQuerier
	identities IdentitySource
	newClient  interfaces.MatrixClientFactory
	mirror     interfaces.StorageBackend
	httpClient *http.Client
	settings   config.NetworkSettings
	log        *slog.Logger
	now        func() time.Time
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(cfg ProvisionerConfig) *Provisioner {
	return &Provisioner{
		signer:     cfg.Signer,
		chain:      cfg.Chain,
		identities: cfg.Identities,
		newClient:  cfg.NewClient,
		mirror:     cfg.Mirror,
		httpClient: common.HTTPClient(cfg.HTTPClient),
		settings:   cfg.Settings,
		log:        cfg.Log,
		now:        time.Now,
	}
}

func requireWallet(wallet *interfaces.Wallet) error {
	if wallet == nil || wallet.Address == "" || wallet.DID == "" {
		return interfaces.NewConfigurationError("wallet", "login with signx first")
	}
	return nil
}

// CreateEntity provisions a new oracle identity and publishes its entity.
//
// The steps are: oracle identity (funded from wallet), profile upload,
// entity creation, domain card, then authorization and pricing documents
// uploaded concurrently and attached in a single transaction. The entity
// DID is submitted to the discovery index and the oracle's Matrix session is
// closed once everything is attached.
func (p *Provisioner) CreateEntity(ctx context.Context, wallet *interfaces.Wallet, params CreateEntityParams) (*Created, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	if err := config.Validate(&params); err != nil {
		return nil, err
	}

	created := &Created{EntityDID: params.EntityDID}
	oracle, err := p.identities.OracleIdentity(ctx, wallet, IdentityParams{
		PIN:           params.PIN,
		DisplayName:   params.OracleConfig.Name,
		AvatarURL:     params.Profile.Logo,
		HomeServerURL: params.HomeServerURL,
		RoomBotURL:    params.RoomBotURL,
		Funding:       EntityFunding,
	})
	if err != nil {
		return created, err
	}
	created.Oracle = oracle

	creds := oracle.Messaging.MatrixCredentials
	homeServerURL := creds.HomeServerURL
	if homeServerURL == "" {
		homeServerURL = params.HomeServerURL
	}
	client, err := p.newClient(homeServerURL, &creds)
	if err != nil {
		return created, err
	}
	defer client.Stop()
	uploader := NewUploader(client, p.mirror, p.log)

	attached := map[string]bool{}
	if created.EntityDID == "" {
		if created.EntityDID, err = p.createEntity(ctx, wallet, uploader, oracle, params); err != nil {
			return created, err
		}
	} else if attached, err = p.attachedResources(ctx, created.EntityDID); err != nil {
		return created, err
	}

	if err := p.attachDomainCard(ctx, wallet, uploader, created.EntityDID, params.Profile, attached); err != nil {
		return created, err
	}
	if err := p.attachOracleConfig(ctx, wallet, uploader, created.EntityDID, oracle, params.OracleConfig, attached); err != nil {
		return created, err
	}

	p.submitToIndexer(ctx, created.EntityDID)

	if err := client.Logout(ctx); err != nil {
		p.log.Warn("could not log out oracle matrix session", slog.String("userId", creds.UserID), "err", err)
	}

	p.log.Info("entity created", slog.String("did", created.EntityDID), slog.String("portal", config.EntityPortalURL(created.EntityDID)))
	return created, nil
}

func (p *Provisioner) createEntity(ctx context.Context, wallet *interfaces.Wallet, uploader *Uploader, oracle *Oracle, params CreateEntityParams) (string, error) {
	profile, err := uploader.Upload(ctx, newProfileDocument(params.Profile), "profile")
	if err != nil {
		return "", err
	}

	verifications, err := chain.WalletVerifications(wallet)
	if err != nil {
		return "", err
	}

	start := p.now().UTC()
	end := start.AddDate(validityYears, 0, 0)
	msg := &chain.MsgCreateEntity{
		EntityType: EntityType,
		Context: []interfaces.Context{
			{Key: "ixo", Val: "https://w3id.org/ixo/ns/protocol/"},
			{Key: "web3", Val: "https://ipfs.io/ipfs/"},
			{Key: "class", Val: params.ParentProtocol},
		},
		Verification:   verifications,
		Controller:     []string{wallet.DID},
		Service:        append([]interfaces.Service{messaging.MatrixService("{id}", params.HomeServerURL)}, params.Services...),
		LinkedResource: []interfaces.LinkedResource{profile.LinkedResource("pro", "Settings", "Profile")},
		LinkedEntity:   p.linkedAccounts(oracle),
		StartDate:      &start,
		EndDate:        &end,
		RelayerNode:    p.settings.RelayerNodeDID,
		OwnerDID:       wallet.DID,
		OwnerAddress:   wallet.Address,
	}

	p.log.Info("sign to create the entity")
	resp, err := p.signer.Transact(ctx, wallet, []interfaces.Msg{msg}, "")
	if err != nil {
		return "", fmt.Errorf("could not create entity: %w", err)
	}

	did, err := chain.FindEventAttribute(resp, "wasm", "token_id")
	if err != nil {
		return "", fmt.Errorf("entity created in %s but its did is unknown: %w", resp.TxHash, err)
	}
	p.log.Info("entity did minted", slog.String("did", did), slog.String("txHash", resp.TxHash))
	return did, nil
}

// linkedAccounts lists the accounts administering the entity over Matrix.
func (p *Provisioner) linkedAccounts(oracle *Oracle) []interfaces.LinkedEntity {
	accounts := []string{p.settings.MemoryEngineDID, oracle.Account.DID}
	linked := make([]interfaces.LinkedEntity, 0, len(accounts))
	for _, did := range accounts {
		if did == "" {
			continue
		}
		linked = append(linked, interfaces.LinkedEntity{ID: did, Type: "agent", Relationship: "admin", Service: "matrix"})
	}
	return linked
}

// attachedResources returns the fragments of the linked resources already
// on the entity document.
func (p *Provisioner) attachedResources(ctx context.Context, entityDID string) (map[string]bool, error) {
	doc, err := p.chain.DIDDocument(ctx, entityDID)
	if err != nil {
		return nil, fmt.Errorf("could not load entity %s: %w", entityDID, err)
	}
	attached := map[string]bool{}
	for _, r := range doc.LinkedResource {
		if _, fragment, ok := strings.Cut(r.ID, "#"); ok {
			attached[fragment] = true
		}
	}
	return attached, nil
}

func (p *Provisioner) addResources(entityDID, signer string, resources ...interfaces.LinkedResource) []interfaces.Msg {
	msgs := make([]interfaces.Msg, 0, len(resources))
	for _, r := range resources {
		msgs = append(msgs, &chain.MsgAddLinkedResource{ID: entityDID, LinkedResource: r, Signer: signer})
	}
	return msgs
}

func (p *Provisioner) attachDomainCard(ctx context.Context, wallet *interfaces.Wallet, uploader *Uploader, entityDID string, profile Profile, attached map[string]bool) error {
	if attached["dmn"] {
		p.log.Info("domain card already attached", slog.String("did", entityDID))
		return nil
	}

	card, err := uploader.Upload(ctx, newDomainCard(profile, entityDID, wallet.DID, p.now()), "domainCard")
	if err != nil {
		return err
	}

	p.log.Info("sign to add the domain card to the entity")
	msgs := p.addResources(entityDID, wallet.Address, card.LinkedResource("dmn", "domainCard", "Domain Card"))
	if _, err := p.signer.Transact(ctx, wallet, msgs, ""); err != nil {
		return fmt.Errorf("could not attach domain card: %w", err)
	}
	return nil
}

// attachOracleConfig uploads the authorization and pricing documents in
// parallel and attaches both in one transaction.
func (p *Provisioner) attachOracleConfig(ctx context.Context, wallet *interfaces.Wallet, uploader *Uploader, entityDID string, oracle *Oracle, cfg OracleConfig, attached map[string]bool) error {
	var authz, fees *Uploaded

	g, gctx := errgroup.WithContext(ctx)
	if !attached["orz"] {
		g.Go(func() (err error) {
			authz, err = uploader.Upload(gctx, newAuthZConfig(entityDID, oracle.Account.Address, cfg.Name), "authz")
			return err
		})
	}
	if !attached["fee"] {
		g.Go(func() (err error) {
			fees, err = uploader.Upload(gctx, newPricingList(entityDID, cfg.Price, p.settings.PricingDenom), "fees")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var resources []interfaces.LinkedResource
	if authz != nil {
		resources = append(resources, authz.LinkedResource("orz", "oracleAuthZConfig", "Oracle AuthZ Config"))
	}
	if fees != nil {
		resources = append(resources, fees.LinkedResource("fee", "pricingList", "Pricing List"))
	}
	if len(resources) == 0 {
		p.log.Info("oracle config already attached", slog.String("did", entityDID))
		return nil
	}

	p.log.Info("sign to add the oracle config to the entity")
	if _, err := p.signer.Transact(ctx, wallet, p.addResources(entityDID, wallet.Address, resources...), ""); err != nil {
		return fmt.Errorf("could not attach oracle config: %w", err)
	}
	return nil
}

// submitToIndexer announces the entity to the discovery index. Failures
// only warn.
func (p *Provisioner) submitToIndexer(ctx context.Context, entityDID string) {
	if p.settings.DomainIndexerURL == "" {
		return
	}
	body := map[string]string{"did": entityDID}
	if err := common.DoJSON(ctx, p.httpClient, http.MethodPost, p.settings.DomainIndexerURL, body, nil); err != nil {
		p.log.Warn("could not submit entity to the domain indexer", slog.String("did", entityDID), "err", err)
		return
	}
	p.log.Info("entity submitted to the domain indexer", slog.String("did", entityDID))
}

type addControllerInput struct {
	EntityDID     string `validate:"required,entitydid"`
	ControllerDID string `validate:"required,did"`
}

// AddController adds controllerDID to the controllers of entityDID.
func (p *Provisioner) AddController(ctx context.Context, wallet *interfaces.Wallet, entityDID, controllerDID string) (*interfaces.TxResponse, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	if err := config.Validate(&addControllerInput{EntityDID: entityDID, ControllerDID: controllerDID}); err != nil {
		return nil, err
	}

	msg := &chain.MsgAddController{ID: entityDID, ControllerDID: controllerDID, Signer: wallet.Address}
	p.log.Info("sign to add the controller", slog.String("did", entityDID), slog.String("controller", controllerDID))
	resp, err := p.signer.Transact(ctx, wallet, []interfaces.Msg{msg}, "")
	if err != nil {
		return nil, fmt.Errorf("could not add controller %s to %s: %w", controllerDID, entityDID, err)
	}
	return resp, nil
}

type sendTokensInput struct {
	To     string `validate:"required,ixoaddress"`
	Amount int64  `validate:"gt=0"`
}

// SendTokens transfers amount uixo from wallet to the account to.
func (p *Provisioner) SendTokens(ctx context.Context, wallet *interfaces.Wallet, to string, amount int64) (*interfaces.TxResponse, error) {
	if err := requireWallet(wallet); err != nil {
		return nil, err
	}
	if err := config.Validate(&sendTokensInput{To: to, Amount: amount}); err != nil {
		return nil, err
	}

	msg := &chain.MsgSend{
		FromAddress: wallet.Address,
		ToAddress:   to,
		Amount:      []interfaces.Coin{{Denom: config.FeeDenom, Amount: strconv.FormatInt(amount, 10)}},
	}
	p.log.Info("sign to send tokens", slog.String("to", to), slog.Int64("amount", amount))
	resp, err := p.signer.Transact(ctx, wallet, []interfaces.Msg{msg}, "")
	if err != nil {
		return nil, fmt.Errorf("could not send %d%s to %s: %w", amount, config.FeeDenom, to, err)
	}
	return resp, nil
}
