package signx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ixoworld/oracle-provisioner/common"
)

// Client is the HTTP transport of the SignX relay.
type Client struct {
	endpoint string
	cli      *http.Client
}

// NewClient creates a client for the relay at endpoint. A nil cli uses a
// retrying HTTP client.
func NewClient(endpoint string, cli *http.Client) *Client {
	return &Client{endpoint: strings.TrimSuffix(endpoint, "/"), cli: common.HTTPClient(cli)}
}

// post sends req and decodes the response envelope. Pending answers sent
// with a 418 status are folded into the envelope.
func (c *Client) post(ctx context.Context, path string, req any) (*envelope, error) {
	var resp envelope
	err := common.DoJSON(ctx, c.cli, http.MethodPost, c.endpoint+path, req, &resp)

	var statusErr *common.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == codePending {
		return &envelope{Code: codePending}, nil
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) createLogin(ctx context.Context, req *loginCreateRequest) error {
	resp, err := c.post(ctx, "/login/create", req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("login request rejected: %s", resp.Message)
	}
	return nil
}

func (c *Client) fetchLogin(ctx context.Context, req *loginFetchRequest) (*envelope, error) {
	return c.post(ctx, "/login/fetch", req)
}

func (c *Client) createTransaction(ctx context.Context, req *TransactRequest) error {
	resp, err := c.post(ctx, "/transaction/create", req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("transaction request rejected: %s", resp.Message)
	}
	return nil
}

func (c *Client) fetchTransaction(ctx context.Context, req *transactFetchRequest) (*envelope, error) {
	return c.post(ctx, "/transaction/fetch", req)
}
