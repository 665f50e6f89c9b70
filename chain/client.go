// Package chain talks to the ixo chain through its REST gateway and builds
// the protobuf transactions the provisioner signs.
package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ixoworld/oracle-provisioner/common"
	"github.com/ixoworld/oracle-provisioner/interfaces"
)

var errTxNotFound = errors.New("transaction not found")

// RESTClient implements interfaces.ChainClient over the cosmos REST (LCD)
// gateway of a node.
type RESTClient struct {
	baseURL string
	cli     *http.Client
	log     *slog.Logger

	// PollInterval paces inclusion checks after a broadcast.
	PollInterval time.Duration
	// PollAttempts bounds the number of inclusion checks.
	PollAttempts int

	mu      sync.Mutex
	chainID string
}

// NewRESTClient creates a client for the gateway at baseURL. A nil cli uses a
// retrying HTTP client.
func NewRESTClient(baseURL string, cli *http.Client, log *slog.Logger) *RESTClient {
	return &RESTClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		cli:          common.HTTPClient(cli),
		log:          log,
		PollInterval: time.Second,
		PollAttempts: 60,
	}
}

func (c *RESTClient) url(path string, segments ...string) string {
	escaped := make([]any, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + fmt.Sprintf(path, escaped...)
}

// DIDDocument returns the IID document of did or interfaces.ErrDIDNotFound.
func (c *RESTClient) DIDDocument(ctx context.Context, did string) (*interfaces.DIDDocument, error) {
	var resp struct {
		IidDocument *interfaces.DIDDocument `json:"iidDocument"`
	}

	err := common.DoJSON(ctx, c.cli, http.MethodGet, c.url("/ixo/iid/v1beta1/%s", did), nil, &resp)
	if isNotFound(err, "did document not found", "(22)") {
		return nil, fmt.Errorf("%s: %w", did, interfaces.ErrDIDNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("could not query did %s: %w", did, err)
	}
	if resp.IidDocument == nil || resp.IidDocument.ID == "" {
		return nil, fmt.Errorf("%s: %w", did, interfaces.ErrDIDNotFound)
	}
	return resp.IidDocument, nil
}

// FeeAllowances returns every fee grant of grantee. Grants of unknown types
// are skipped.
func (c *RESTClient) FeeAllowances(ctx context.Context, grantee string) ([]interfaces.Allowance, error) {
	var resp struct {
		Allowances []restGrant `json:"allowances"`
	}

	if err := common.DoJSON(ctx, c.cli, http.MethodGet, c.url("/cosmos/feegrant/v1beta1/allowances/%s", grantee), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not query allowances of %s: %w", grantee, err)
	}

	allowances := make([]interfaces.Allowance, 0, len(resp.Allowances))
	for _, g := range resp.Allowances {
		a, err := decodeGrant(g)
		if err != nil {
			c.log.Warn("skipping fee grant", slog.String("grantee", grantee), "err", err)
			continue
		}
		allowances = append(allowances, a)
	}
	return allowances, nil
}

type restBaseAccount struct {
	Address       string `json:"address"`
	AccountNumber string `json:"account_number"`
	Sequence      string `json:"sequence"`

	// Vesting accounts nest the base account.
	BaseAccount *restBaseAccount `json:"base_account"`
}

// Account returns the signing metadata of address.
func (c *RESTClient) Account(ctx context.Context, address string) (*interfaces.BaseAccount, error) {
	var resp struct {
		Account restBaseAccount `json:"account"`
	}

	if err := common.DoJSON(ctx, c.cli, http.MethodGet, c.url("/cosmos/auth/v1beta1/accounts/%s", address), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not query account %s: %w", address, err)
	}

	acc := resp.Account
	for acc.BaseAccount != nil {
		acc = *acc.BaseAccount
	}

	accountNumber, err := parseUint(acc.AccountNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid account number for %s: %w", address, err)
	}
	sequence, err := parseUint(acc.Sequence)
	if err != nil {
		return nil, fmt.Errorf("invalid sequence for %s: %w", address, err)
	}

	return &interfaces.BaseAccount{Address: address, AccountNumber: accountNumber, Sequence: sequence}, nil
}

// ChainID returns the network name reported by the node. The value is
// cached after the first successful query.
func (c *RESTClient) ChainID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chainID != "" {
		return c.chainID, nil
	}

	var resp struct {
		DefaultNodeInfo struct {
			Network string `json:"network"`
		} `json:"default_node_info"`
	}
	if err := common.DoJSON(ctx, c.cli, http.MethodGet, c.url("/cosmos/base/tendermint/v1beta1/node_info"), nil, &resp); err != nil {
		return "", fmt.Errorf("could not query node info: %w", err)
	}
	if resp.DefaultNodeInfo.Network == "" {
		return "", errors.New("node info carries no chain id")
	}

	c.chainID = resp.DefaultNodeInfo.Network
	return c.chainID, nil
}

type txBytesRequest struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode,omitempty"`
}

// Simulate returns the gas used by a signed transaction.
func (c *RESTClient) Simulate(ctx context.Context, txBytes []byte) (uint64, error) {
	var resp struct {
		GasInfo struct {
			GasUsed string `json:"gas_used"`
		} `json:"gas_info"`
	}

	req := txBytesRequest{TxBytes: base64.StdEncoding.EncodeToString(txBytes)}
	if err := common.DoJSON(ctx, c.cli, http.MethodPost, c.url("/cosmos/tx/v1beta1/simulate"), req, &resp); err != nil {
		return 0, fmt.Errorf("could not simulate transaction: %w", err)
	}

	gasUsed, err := parseUint(resp.GasInfo.GasUsed)
	if err != nil {
		return 0, fmt.Errorf("invalid simulated gas: %w", err)
	}
	return gasUsed, nil
}

// Broadcast submits a signed transaction in sync mode and polls until it is
// included in a block. A transaction rejected by CheckTx is returned as is,
// without waiting. If inclusion cannot be observed within PollAttempts the
// result is a ConfirmationTimeoutError.
func (c *RESTClient) Broadcast(ctx context.Context, txBytes []byte) (*interfaces.TxResponse, error) {
	var resp struct {
		TxResponse *interfaces.TxResponse `json:"tx_response"`
	}

	req := txBytesRequest{TxBytes: base64.StdEncoding.EncodeToString(txBytes), Mode: "BROADCAST_MODE_SYNC"}
	if err := common.DoJSON(ctx, c.cli, http.MethodPost, c.url("/cosmos/tx/v1beta1/txs"), req, &resp); err != nil {
		return nil, fmt.Errorf("could not broadcast transaction: %w", err)
	}
	if resp.TxResponse == nil {
		return nil, errors.New("broadcast returned no transaction response")
	}
	if resp.TxResponse.Failed() {
		return resp.TxResponse, nil
	}

	c.log.Debug("transaction broadcast", slog.String("txhash", resp.TxResponse.TxHash))
	return c.WaitForTx(ctx, resp.TxResponse.TxHash)
}

// WaitForTx polls for the result of a broadcast transaction.
func (c *RESTClient) WaitForTx(ctx context.Context, hash string) (*interfaces.TxResponse, error) {
	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.PollAttempts; attempt++ {
		resp, err := c.Tx(ctx, hash)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, errTxNotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return nil, &interfaces.ConfirmationTimeoutError{Resource: "transaction", ID: hash}
}

// Tx returns the result of an included transaction.
func (c *RESTClient) Tx(ctx context.Context, hash string) (*interfaces.TxResponse, error) {
	var resp struct {
		TxResponse *interfaces.TxResponse `json:"tx_response"`
	}

	err := common.DoJSON(ctx, c.cli, http.MethodGet, c.url("/cosmos/tx/v1beta1/txs/%s", hash), nil, &resp)
	if isNotFound(err, "not found") {
		return nil, errTxNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not query transaction %s: %w", hash, err)
	}
	if resp.TxResponse == nil {
		return nil, errTxNotFound
	}
	return resp.TxResponse, nil
}

// isNotFound recognizes the gateway's not found answers, which come as 404
// or as a gRPC error body with a 4xx/5xx status.
func isNotFound(err error, markers ...string) bool {
	var statusErr *common.HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	if statusErr.StatusCode == http.StatusNotFound {
		return true
	}
	for _, marker := range markers {
		if strings.Contains(statusErr.Body, marker) {
			return true
		}
	}
	return false
}

func parseUint(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}
