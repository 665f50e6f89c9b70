package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"

	"github.com/ixoworld/oracle-provisioner/cmd/flags"
	"github.com/ixoworld/oracle-provisioner/common"
	"github.com/ixoworld/oracle-provisioner/config"
	"github.com/ixoworld/oracle-provisioner/cryptoutils"
	"github.com/ixoworld/oracle-provisioner/interfaces"
	"github.com/ixoworld/oracle-provisioner/messaging"
	"github.com/ixoworld/oracle-provisioner/provisioning"
	"github.com/ixoworld/oracle-provisioner/signx"
)

var flagPIN = &cli.StringFlag{
	Name:    "pin",
	EnvVars: []string{"ORACLE_PIN"},
	Usage:   "six digit PIN encrypting the Matrix mnemonic",
}

var flagResume = &cli.StringFlag{
	Name:  "resume",
	Usage: "result file or stored result id of an earlier run to continue",
}

var flagForceReset = &cli.BoolFlag{
	Name:  "force-reset",
	Usage: "bootstrap Matrix cross-signing again on a resumed account",
}

func main() {
	app := &cli.App{
		Name:    "oracles",
		Usage:   "Provision ixo oracle identities and entities",
		Version: common.Version,
		Flags:   append(append([]cli.Flag{}, flags.CommonFlags...), flags.NetworkFlags...),
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Log in with the IXO app and cache the wallet",
				Action: action(login),
			},
			{
				Name:   "logout",
				Usage:  "Forget the cached wallet",
				Action: action(logout),
			},
			{
				Name:  "create-user",
				Usage: "Create an account with a DID and a Matrix account",
				Flags: []cli.Flag{
					flagPIN,
					flagResume,
					flagForceReset,
					&cli.StringFlag{Name: "display-name", Usage: "Matrix display name"},
					&cli.StringFlag{Name: "avatar-url", Usage: "Matrix avatar, defaults to a generated avatar"},
					&cli.BoolFlag{Name: "logout-after", Usage: "invalidate the Matrix session once it is set up"},
				},
				Action: action(createUser),
			},
			{
				Name:  "create-entity",
				Usage: "Create an oracle identity and publish it as an entity",
				Flags: []cli.Flag{
					flagPIN,
					flagResume,
					flagForceReset,
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "YAML file describing the oracle"},
				},
				Action: action(createEntity),
			},
			{
				Name:  "update-entity",
				Usage: "Update an existing entity",
				Subcommands: []*cli.Command{
					{
						Name:  "add-controller",
						Usage: "Add a controller DID to an entity",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "entity-did", Required: true},
							&cli.StringFlag{Name: "controller-did", Required: true},
						},
						Action: action(addController),
					},
				},
			},
			{
				Name:  "send-tokens",
				Usage: "Send uixo from the cached wallet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Required: true, Usage: "recipient ixo address"},
					&cli.Int64Flag{Name: "amount", Required: true, Usage: "amount in uixo"},
				},
				Action: action(sendTokens),
			},
			{
				Name:  "decrypt-mnemonic",
				Usage: "Decrypt a PIN encrypted Matrix mnemonic",
				Flags: []cli.Flag{
					flagPIN,
					&cli.StringFlag{Name: "encrypted", Usage: "encrypted mnemonic"},
					&cli.StringFlag{Name: "result", Usage: "result file whose Matrix room holds the encrypted mnemonic"},
				},
				Action: action(decryptMnemonic),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func login(ctx context.Context, cCtx *cli.Context, a *app) error {
	wallet, err := a.session.Login(ctx)
	if err != nil {
		return err
	}
	if err := signx.SaveWallet(a.walletPath, wallet); err != nil {
		return err
	}
	a.log.Info("logged in",
		slog.String("address", wallet.Address),
		slog.String("did", wallet.DID),
		slog.String("wallet", a.walletPath))
	return a.printJSON(wallet)
}

func logout(ctx context.Context, cCtx *cli.Context, a *app) error {
	if err := signx.RemoveWallet(a.walletPath); err != nil {
		return err
	}
	a.log.Info("logged out", slog.String("wallet", a.walletPath))
	return nil
}

func createUser(ctx context.Context, cCtx *cli.Context, a *app) error {
	id, err := a.identity()
	if err != nil {
		return err
	}
	cp, err := a.checkpoint(ctx, cCtx.String(flagResume.Name))
	if err != nil {
		return err
	}

	displayName := cCtx.String("display-name")
	avatar := cCtx.String("avatar-url")
	if avatar == "" && displayName != "" {
		avatar = avatarURL(displayName)
	}

	res, err := a.orchestrator().CreateUser(ctx, provisioning.CreateUserParams{
		Identity:    id,
		PIN:         cCtx.String(flagPIN.Name),
		DisplayName: displayName,
		AvatarURL:   avatar,
		ForceReset:  cCtx.Bool(flagForceReset.Name),
		LogoutAfter: cCtx.Bool("logout-after"),
		Checkpoint:  cp,
	})
	if perr := a.printJSON(res); perr != nil {
		a.log.Error("could not print result", "err", perr)
	}
	return err
}

func createEntity(ctx context.Context, cCtx *cli.Context, a *app) error {
	in, err := loadEntityInput(cCtx.String("input"))
	if err != nil {
		return err
	}
	if in.APIURL != "" && !cCtx.IsSet(flags.APIURLFlag.Name) {
		a.cfg.APIURL = in.APIURL
	}
	if in.ParentProtocol != "" {
		a.cfg.ParentProtocol = in.ParentProtocol
	}
	pin := in.PIN
	if cCtx.IsSet(flagPIN.Name) {
		pin = cCtx.String(flagPIN.Name)
	}

	id, err := a.identity()
	if err != nil {
		return err
	}
	cp, err := a.checkpoint(ctx, cCtx.String(flagResume.Name))
	if err != nil {
		return err
	}

	var services []interfaces.Service
	if len(in.Services) > 0 {
		services = in.Services
	}

	res, err := a.orchestrator().CreateEntity(ctx, provisioning.CreateEntityParams{
		Identity:     id,
		PIN:          pin,
		Profile:      in.Profile,
		OracleConfig: in.OracleConfig,
		Services:     services,
		ForceReset:   cCtx.Bool(flagForceReset.Name),
		Checkpoint:   cp,
	})
	if perr := a.printJSON(res); perr != nil {
		a.log.Error("could not print result", "err", perr)
	}
	if err == nil {
		a.log.Info("entity created",
			slog.String("entityDid", res.EntityDID),
			slog.String("portal", config.EntityPortalURL(res.EntityDID)))
	}
	return err
}

func addController(ctx context.Context, cCtx *cli.Context, a *app) error {
	id, err := a.identity()
	if err != nil {
		return err
	}
	resp, err := a.orchestrator().AddController(ctx, id, cCtx.String("entity-did"), cCtx.String("controller-did"))
	if err != nil {
		return err
	}
	a.log.Info("controller added", slog.String("txHash", resp.TxHash))
	return nil
}

func sendTokens(ctx context.Context, cCtx *cli.Context, a *app) error {
	id, err := a.identity()
	if err != nil {
		return err
	}
	resp, err := a.orchestrator().SendTokens(ctx, id, cCtx.String("to"), cCtx.Int64("amount"))
	if err != nil {
		return err
	}
	a.log.Info("tokens sent", slog.String("txHash", resp.TxHash))
	return nil
}

func decryptMnemonic(ctx context.Context, cCtx *cli.Context, a *app) error {
	pin := cCtx.String(flagPIN.Name)
	if err := cryptoutils.ValidatePIN(pin); err != nil {
		return interfaces.NewConfigurationError("pin", err.Error())
	}

	var mnemonic string
	switch {
	case cCtx.String("encrypted") != "":
		m, err := cryptoutils.DecryptMnemonicWithPIN(cCtx.String("encrypted"), pin)
		if err != nil {
			return err
		}
		mnemonic = m
	case cCtx.String("result") != "":
		m, err := mnemonicFromRoom(ctx, a, cCtx.String("result"), pin)
		if err != nil {
			return err
		}
		mnemonic = m
	default:
		return interfaces.NewConfigurationError("encrypted", "pass --encrypted or --result")
	}

	_, err := fmt.Fprintln(a.out, mnemonic)
	return err
}

// mnemonicFromRoom reads the encrypted mnemonic from the Matrix room of a
// result record.
func mnemonicFromRoom(ctx context.Context, a *app, resultPath, pin string) (string, error) {
	cp, err := a.checkpoint(ctx, resultPath)
	if err != nil {
		return "", err
	}
	if cp.Messaging == nil {
		return "", interfaces.NewConfigurationError("result", "no Matrix account recorded")
	}

	hs := cp.Messaging.HomeServerURL
	if hs == "" {
		if hs, err = a.cfg.RequireHomeServer(); err != nil {
			return "", err
		}
	}
	client, err := messaging.NewMatrixClient(hs, &cp.Messaging.MatrixCredentials, a.httpClient, a.log)
	if err != nil {
		return "", err
	}
	defer client.Stop()

	return messaging.LoadMnemonic(ctx, client, cp.Messaging.RoomID, pin)
}
