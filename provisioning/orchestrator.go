// Package provisioning sequences a provisioning run: oracle account, DID,
// Matrix account and, for create-entity runs, the on-chain entity. Every
// step reports into a Result that a failed run returns as well, so that a
// later run can resume from it.
package provisioning

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ixoworld/oracle-provisioner/account"
	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/entity"
	"github.com/ixoworld/oracle-provisioner/interfaces"
	"github.com/ixoworld/oracle-provisioner/messaging"
	"github.com/ixoworld/oracle-provisioner/metrics"
)

// Step names reported in StepError and metrics.
const (
	StepAccount   = "account"
	StepFunding   = "funding"
	StepDID       = "did"
	StepMessaging = "messaging"
	StepEntity    = "entity"
	StepStore     = "store"
)

// UserFunding is the uixo amount an authenticated caller sends to a user
// account before its DID is created.
const UserFunding = 150_000

// Config configures an Orchestrator. Every collaborator is injected.
type Config struct {
	Config *config.Config

	Signer    interfaces.RemoteSigner
	Chain     interfaces.ChainQuerier
	SignerFor account.SignerFactory
	NewClient interfaces.MatrixClientFactory

	// Mirror receives a copy of every uploaded entity document. Optional.
	Mirror interfaces.StorageBackend

	// Results stores the result record of every run. Optional.
	Results *ResultStore

	Metrics    *metrics.Recorder
	HTTPClient *http.Client
	Log        *slog.Logger
}

// Orchestrator runs provisioning flows against one network.
type Orchestrator struct {
	cfg        *config.Config
	signer     interfaces.RemoteSigner
	chain      interfaces.ChainQuerier
	newClient  interfaces.MatrixClientFactory
	mirror     interfaces.StorageBackend
	results    *ResultStore
	metrics    *metrics.Recorder
	httpClient *http.Client
	log        *slog.Logger

	accounts  *account.Provisioner
	messaging *messaging.Provisioner
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg.Config,
		signer:     cfg.Signer,
		chain:      cfg.Chain,
		newClient:  cfg.NewClient,
		mirror:     cfg.Mirror,
		results:    cfg.Results,
		metrics:    cfg.Metrics,
		httpClient: cfg.HTTPClient,
		log:        cfg.Log,
		accounts: account.NewProvisioner(account.ProvisionerConfig{
			Chain:       cfg.Chain,
			SignerFor:   cfg.SignerFor,
			Log:         cfg.Log,
			SettleDelay: cfg.Config.SettleDelay,
		}),
		messaging: messaging.NewProvisioner(messaging.ProvisionerConfig{
			NewClient:  cfg.NewClient,
			HTTPClient: cfg.HTTPClient,
			Log:        cfg.Log,
		}),
	}
}

// entities returns an entity provisioner whose oracle identities come from
// identities, which may be nil for flows that create no entity.
func (o *Orchestrator) entities(identities entity.IdentitySource) *entity.Provisioner {
	return entity.NewProvisioner(entity.ProvisionerConfig{
		Signer:     o.signer,
		Chain:      o.chain,
		Identities: identities,
		NewClient:  o.newClient,
		Mirror:     o.mirror,
		HTTPClient: o.httpClient,
		Settings:   o.cfg.Settings,
		Log:        o.log,
	})
}

// step runs fn as the named step, recording its duration and outcome.
// Failures are wrapped in a StepError unless fn already reported one.
func (o *Orchestrator) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.ObserveStep(name, start, err)
	if err == nil {
		return nil
	}

	var stepErr *interfaces.StepError
	if errors.As(err, &stepErr) {
		return err
	}
	return &interfaces.StepError{Step: name, Err: err}
}

func (o *Orchestrator) skip(name string, attrs ...any) {
	o.metrics.SkipStep(name)
	o.log.Info("step already completed", append([]any{slog.String("step", name)}, attrs...)...)
}

// identityParams configures provisionIdentity.
type identityParams struct {
	PIN           string
	DisplayName   string
	AvatarURL     string
	HomeServerURL string
	RoomBotURL    string
	Funding       int64
	ForceReset    bool
	LogoutAfter   bool
}

// provisionIdentity creates or resumes an account with its DID and Matrix
// account. cp is advanced and res filled as steps complete. A nil wallet
// skips funding.
func (o *Orchestrator) provisionIdentity(ctx context.Context, wallet *interfaces.Wallet, params identityParams, cp *Checkpoint, res *Result) (*account.Account, *messaging.Account, error) {
	res.HomeServerURL = params.HomeServerURL
	res.PIN = params.PIN

	if cp.Account == nil {
		err := o.step(StepAccount, func() (err error) {
			cp.Account, err = account.CreateAccount()
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		o.log.Info("account created", slog.String("address", cp.Account.Address))
	} else {
		o.skip(StepAccount, slog.String("address", cp.Account.Address))
	}
	acc := cp.Account
	res.setAccount(acc)

	if cp.DID == "" {
		switch {
		case cp.Funded:
			o.skip(StepFunding, slog.String("address", acc.Address))
		case wallet != nil && params.Funding > 0:
			err := o.step(StepFunding, func() error {
				_, err := o.entities(nil).SendTokens(ctx, wallet, acc.Address, params.Funding)
				return err
			})
			if err != nil {
				return acc, nil, err
			}
			cp.Funded = true
		}
		res.Funded = cp.Funded

		err := o.step(StepDID, func() (err error) {
			services := []interfaces.Service{messaging.MatrixService(acc.DID, params.HomeServerURL)}
			cp.DID, err = o.accounts.EnsureDID(ctx, acc, services)
			return err
		})
		if err != nil {
			return acc, nil, err
		}
	} else {
		o.skip(StepDID, slog.String("did", cp.DID))
		res.Funded = cp.Funded
	}
	res.DID = cp.DID

	if cp.Messaging == nil {
		err := o.step(StepMessaging, func() (err error) {
			cp.Messaging, err = o.messaging.Register(ctx, acc, messaging.RegisterParams{
				PIN:           params.PIN,
				DisplayName:   params.DisplayName,
				AvatarURL:     params.AvatarURL,
				HomeServerURL: params.HomeServerURL,
				RoomBotURL:    params.RoomBotURL,
				ForceReset:    params.ForceReset,
				LogoutAfter:   params.LogoutAfter,
			})
			return err
		})
		if err != nil {
			return acc, nil, err
		}
	} else {
		o.skip(StepMessaging, slog.String("userId", cp.Messaging.UserID))
	}
	res.setMessaging(cp.Messaging)

	return acc, cp.Messaging, nil
}

// CreateUserParams configures CreateUser.
type CreateUserParams struct {
	Identity    Identity
	PIN         string
	DisplayName string
	AvatarURL   string

	// ForceReset bootstraps cross-signing again on a resumed account.
	ForceReset bool

	// LogoutAfter invalidates the new Matrix session once it is set up.
	LogoutAfter bool

	// Checkpoint resumes an earlier run. Optional.
	Checkpoint *Checkpoint
}

// CreateUser provisions an account, its DID and its Matrix account. An
// authenticated caller first funds the account with UserFunding uixo.
//
// The returned Result is never nil and holds every secret generated before
// a failure.
func (o *Orchestrator) CreateUser(ctx context.Context, params CreateUserParams) (*Result, error) {
	res := &Result{Network: o.cfg.Network, PIN: params.PIN}

	hs, err := o.cfg.RequireHomeServer()
	if err != nil {
		return res, err
	}
	var wallet *interfaces.Wallet
	if auth, ok := params.Identity.(Authenticated); ok {
		wallet = auth.Wallet
	}

	cp := Checkpoint{}
	if params.Checkpoint != nil {
		cp = *params.Checkpoint
	}

	_, _, err = o.provisionIdentity(ctx, wallet, identityParams{
		PIN:           params.PIN,
		DisplayName:   params.DisplayName,
		AvatarURL:     params.AvatarURL,
		HomeServerURL: hs,
		RoomBotURL:    o.cfg.RoomBotURL,
		Funding:       UserFunding,
		ForceReset:    params.ForceReset,
		LogoutAfter:   params.LogoutAfter,
	}, &cp, res)

	o.store(ctx, res)
	return res, err
}

// CreateEntityParams configures CreateEntity.
type CreateEntityParams struct {
	Identity     Identity
	PIN          string
	Profile      entity.Profile
	OracleConfig entity.OracleConfig

	// Services are advertised next to the Matrix service. Defaults to
	// DefaultServices of the configured API URL.
	Services []interfaces.Service

	ForceReset bool

	// Checkpoint resumes an earlier run. Optional.
	Checkpoint *Checkpoint
}

// DefaultServices returns the oracle HTTP and websocket services, both
// served from apiURL.
func DefaultServices(apiURL string) []interfaces.Service {
	return []interfaces.Service{
		{ID: "{id}#api", Type: "oracleService", ServiceEndpoint: apiURL},
		{ID: "{id}#ws", Type: "wsService", ServiceEndpoint: apiURL},
	}
}

// runIdentities provides the oracle identity of one CreateEntity run and
// keeps its progress.
type runIdentities struct {
	o          *Orchestrator
	cp         *Checkpoint
	res        *Result
	forceReset bool
}

func (r *runIdentities) OracleIdentity(ctx context.Context, wallet *interfaces.Wallet, params entity.IdentityParams) (*entity.Oracle, error) {
	acc, mx, err := r.o.provisionIdentity(ctx, wallet, identityParams{
		PIN:           params.PIN,
		DisplayName:   params.DisplayName,
		AvatarURL:     params.AvatarURL,
		HomeServerURL: params.HomeServerURL,
		RoomBotURL:    params.RoomBotURL,
		Funding:       params.Funding,
		ForceReset:    r.forceReset,
	}, r.cp, r.res)
	if err != nil {
		return nil, err
	}
	return &entity.Oracle{Account: acc, Messaging: mx}, nil
}

// CreateEntity provisions an oracle identity funded by the caller's wallet
// and publishes it as an entity. It requires an Authenticated identity.
//
// The returned Result is never nil and holds every secret generated before
// a failure.
func (o *Orchestrator) CreateEntity(ctx context.Context, params CreateEntityParams) (*Result, error) {
	res := &Result{Network: o.cfg.Network, PIN: params.PIN}

	wallet, err := RequireWallet(params.Identity)
	if err != nil {
		return res, err
	}
	hs, err := o.cfg.RequireHomeServer()
	if err != nil {
		return res, err
	}
	services := params.Services
	if services == nil {
		apiURL, err := o.cfg.RequireAPIURL()
		if err != nil {
			return res, err
		}
		services = DefaultServices(apiURL)
	}

	cp := Checkpoint{}
	if params.Checkpoint != nil {
		cp = *params.Checkpoint
	}
	res.EntityDID = cp.EntityDID

	identities := &runIdentities{o: o, cp: &cp, res: res, forceReset: params.ForceReset}
	err = o.step(StepEntity, func() error {
		created, err := o.entities(identities).CreateEntity(ctx, wallet, entity.CreateEntityParams{
			Profile:        params.Profile,
			OracleConfig:   params.OracleConfig,
			Services:       services,
			ParentProtocol: o.cfg.ParentProtocol,
			HomeServerURL:  hs,
			RoomBotURL:     o.cfg.RoomBotURL,
			PIN:            params.PIN,
			EntityDID:      cp.EntityDID,
		})
		if created != nil && created.EntityDID != "" {
			res.EntityDID = created.EntityDID
		}
		return err
	})

	o.store(ctx, res)
	return res, err
}

// AddController adds controllerDID to the controllers of entityDID.
func (o *Orchestrator) AddController(ctx context.Context, id Identity, entityDID, controllerDID string) (*interfaces.TxResponse, error) {
	wallet, err := RequireWallet(id)
	if err != nil {
		return nil, err
	}
	return o.entities(nil).AddController(ctx, wallet, entityDID, controllerDID)
}

// SendTokens transfers amount uixo from the caller's wallet to to.
func (o *Orchestrator) SendTokens(ctx context.Context, id Identity, to string, amount int64) (*interfaces.TxResponse, error) {
	wallet, err := RequireWallet(id)
	if err != nil {
		return nil, err
	}
	return o.entities(nil).SendTokens(ctx, wallet, to, amount)
}

// store saves res when a result store is configured and anything was
// generated. Failures only warn since the result is also returned.
func (o *Orchestrator) store(ctx context.Context, res *Result) {
	if o.results == nil || res.Mnemonic == "" {
		return
	}
	_ = o.step(StepStore, func() error {
		_, err := o.results.Save(ctx, res)
		if err != nil {
			o.log.Warn("could not store result", "err", err)
		}
		return err
	})
}
