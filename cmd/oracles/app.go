package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ixoworld/oracle-provisioner/account"
	"github.com/ixoworld/oracle-provisioner/chain"
	"github.com/ixoworld/oracle-provisioner/cmd/flags"
	"github.com/ixoworld/oracle-provisioner/common"
	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
	"github.com/ixoworld/oracle-provisioner/messaging"
	"github.com/ixoworld/oracle-provisioner/metrics"
	"github.com/ixoworld/oracle-provisioner/provisioning"
	"github.com/ixoworld/oracle-provisioner/signx"
	"github.com/ixoworld/oracle-provisioner/storage"
)

const metricsJob = "oracles"

// app holds the collaborators of one command invocation.
type app struct {
	log        *slog.Logger
	cfg        *config.Config
	httpClient *http.Client
	chain      *chain.RESTClient
	session    *signx.Session
	metrics    *metrics.Recorder
	results    *provisioning.ResultStore
	mirror     interfaces.StorageBackend
	walletPath string
	pushURL    string
	out        io.Writer
}

func newApp(cCtx *cli.Context) (*app, error) {
	log := flags.SetupLogger(cCtx)

	network, err := interfaces.ParseNetwork(cCtx.String(flags.NetworkFlag.Name))
	if err != nil {
		return nil, err
	}
	cfg, err := config.New(network)
	if err != nil {
		return nil, err
	}
	cfg.HomeServerURL = cCtx.String(flags.HomeServerFlag.Name)
	cfg.RoomBotURL = cCtx.String(flags.RoomBotURLFlag.Name)
	if apiURL := cCtx.String(flags.APIURLFlag.Name); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if restURL := cCtx.String(flags.RESTURLFlag.Name); restURL != "" {
		cfg.Settings.RESTURL = restURL
	}

	cfg.WalletPath = cCtx.String(flags.WalletFlag.Name)
	if cfg.WalletPath == "" {
		if cfg.WalletPath, err = signx.DefaultWalletPath(); err != nil {
			return nil, fmt.Errorf("could not locate wallet file: %w", err)
		}
	}

	restURL, err := cfg.RequireRESTURL()
	if err != nil {
		return nil, err
	}

	httpClient := common.HTTPClient(nil)
	a := &app{
		log:        log,
		cfg:        cfg,
		httpClient: httpClient,
		chain:      chain.NewRESTClient(restURL, httpClient, log),
		metrics:    metrics.NewRecorder(),
		walletPath: cfg.WalletPath,
		pushURL:    cCtx.String(flags.MetricsPushURLFlag.Name),
		out:        cCtx.App.Writer,
	}
	a.session = signx.NewSession(signx.SessionConfig{
		Client:       signx.NewClient(cfg.Settings.SignXURL, httpClient),
		Display:      &signx.TerminalDisplay{Out: cCtx.App.ErrWriter},
		Log:          log,
		Network:      network,
		SiteName:     config.SignXSiteName,
		PollInterval: cfg.PollInterval,
	})

	factory := storage.NewStorageBackendFactory(log)
	if uris := cCtx.StringSlice(flags.MirrorFlag.Name); len(uris) > 0 {
		if a.mirror, err = factory.CreateMultiBackend(uris); err != nil {
			return nil, fmt.Errorf("invalid mirror: %w", err)
		}
	}
	if uris := cCtx.StringSlice(flags.ResultStoreFlag.Name); len(uris) > 0 {
		backend, err := factory.CreateMultiBackend(uris)
		if err != nil {
			return nil, fmt.Errorf("invalid result store: %w", err)
		}
		a.results = provisioning.NewResultStore(backend, log)
	}

	return a, nil
}

// orchestrator wires the provisioning flows to the live network.
func (a *app) orchestrator() *provisioning.Orchestrator {
	return provisioning.New(provisioning.Config{
		Config: a.cfg,
		Signer: a.session,
		Chain:  a.chain,
		SignerFor: account.SignerFactory(func(key *cryptoutils.SecpKey) interfaces.TxSigner {
			return chain.NewLocalSigner(key, a.chain, a.chain, a.log)
		}),
		NewClient:  messaging.NewMatrixClientFactory(a.httpClient, a.log),
		Mirror:     a.mirror,
		Results:    a.results,
		Metrics:    a.metrics,
		HTTPClient: a.httpClient,
		Log:        a.log,
	})
}

// identity returns the cached SignX login, if any.
func (a *app) identity() (provisioning.Identity, error) {
	wallet, err := signx.LoadWallet(a.walletPath)
	if err != nil {
		return nil, err
	}
	if wallet != nil && wallet.Network != "" && wallet.Network != a.cfg.Network {
		a.log.Warn("ignoring wallet of another network",
			slog.String("wallet", wallet.Network.String()),
			slog.String("network", a.cfg.Network.String()))
		return provisioning.Unauthenticated{}, nil
	}
	return provisioning.IdentityFor(wallet), nil
}

// checkpoint loads the result a run resumes from. ref is a result file path
// or the content id of a stored result.
func (a *app) checkpoint(ctx context.Context, ref string) (*provisioning.Checkpoint, error) {
	if ref == "" {
		return nil, nil
	}

	var res *provisioning.Result
	data, err := os.ReadFile(ref)
	switch {
	case err == nil:
		res = &provisioning.Result{}
		if err := json.Unmarshal(data, res); err != nil {
			return nil, fmt.Errorf("invalid result file %s: %w", ref, err)
		}
	case errors.Is(err, os.ErrNotExist):
		id, perr := interfaces.ParseContentID(ref)
		if perr != nil {
			return nil, fmt.Errorf("%s is neither a result file nor a result id: %w", ref, err)
		}
		if a.results == nil {
			return nil, interfaces.NewConfigurationError("result-store", "required to resume from a result id")
		}
		if res, err = a.results.Load(ctx, id); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if res.Network != "" && res.Network != a.cfg.Network {
		return nil, interfaces.NewConfigurationError("network", fmt.Sprintf("result was created on %s", res.Network))
	}
	return res.Checkpoint()
}

// printJSON writes v to the command output.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// finish pushes the run's metrics when a Pushgateway is configured.
func (a *app) finish(ctx context.Context) {
	if a.pushURL == "" {
		return
	}
	if err := a.metrics.Push(ctx, a.pushURL, metricsJob, a.cfg.Network.String()); err != nil {
		a.log.Warn("could not push metrics", slog.String("url", a.pushURL), "err", err)
	}
}

// action builds the app for a command and runs fn with it.
func action(fn func(ctx context.Context, cCtx *cli.Context, a *app) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		a, err := newApp(cCtx)
		if err != nil {
			return err
		}
		ctx := cCtx.Context
		err = fn(ctx, cCtx, a)
		a.finish(context.WithoutCancel(ctx))
		return err
	}
}
