package flags

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/ixoworld/oracle-provisioner/common"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

var NetworkFlag = &cli.StringFlag{
	Name:    "network",
	Value:   "devnet",
	EnvVars: []string{"NETWORK"},
	Usage:   "chain to provision on: devnet, testnet or mainnet",
}

var HomeServerFlag = &cli.StringFlag{
	Name:    "homeserver",
	EnvVars: []string{"MATRIX_BASE_URL"},
	Usage:   "Matrix homeserver URL, defaults to the network's homeserver",
}

var RoomBotURLFlag = &cli.StringFlag{
	Name:    "room-bot-url",
	EnvVars: []string{"MATRIX_ROOM_BOT_URL"},
	Usage:   "rooms bot URL, defaults to rooms.bot.<homeserver host>",
}

var APIURLFlag = &cli.StringFlag{
	Name:    "api-url",
	EnvVars: []string{"ORACLE_API_URL"},
	Usage:   "oracle service endpoint advertised in created entities",
}

var RESTURLFlag = &cli.StringFlag{
	Name:    "rest-url",
	EnvVars: []string{"CHAIN_REST_URL"},
	Usage:   "chain REST gateway, defaults to the network's gateway",
}

var WalletFlag = &cli.StringFlag{
	Name:    "wallet",
	EnvVars: []string{"ORACLES_WALLET"},
	Usage:   "file caching the SignX login, defaults to ~/.oracles-wallet.json",
}

var MirrorFlag = &cli.StringSliceFlag{
	Name:    "mirror",
	EnvVars: []string{"ORACLES_MIRROR"},
	Usage:   "storage URI receiving a copy of every entity document (file://, s3://, ipfs://, vault://)",
}

var ResultStoreFlag = &cli.StringSliceFlag{
	Name:    "result-store",
	EnvVars: []string{"ORACLES_RESULT_STORE"},
	Usage:   "storage URI receiving the result record of every run (file://, s3://, vault://)",
}

var MetricsPushURLFlag = &cli.StringFlag{
	Name:    "metrics-push-url",
	EnvVars: []string{"METRICS_PUSH_URL"},
	Usage:   "Prometheus Pushgateway receiving step metrics at the end of a run",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "oracles",
	Usage: "add 'service' tag to logs",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var NetworkFlags = []cli.Flag{
	NetworkFlag,
	HomeServerFlag,
	RoomBotURLFlag,
	APIURLFlag,
	RESTURLFlag,
	WalletFlag,
	MirrorFlag,
	ResultStoreFlag,
	MetricsPushURLFlag,
}
