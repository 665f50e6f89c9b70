package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, r chi.Router) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := NewRESTClient(srv.URL+"/rest/", srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	client.PollInterval = time.Millisecond
	client.PollAttempts = 5
	return client
}

func TestRESTClientDIDDocument(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/ixo/iid/v1beta1/{did}", func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "did") {
		case "did:ixo:ixo1exists":
			writeJSON(w, http.StatusOK, map[string]any{
				"iidDocument": map[string]any{
					"id":         "did:ixo:ixo1exists",
					"controller": []string{"did:ixo:ixo1exists"},
					"service":    []map[string]string{{"id": "{id}#api", "type": "oracleService", "serviceEndpoint": "http://localhost:4000"}},
				},
			})
		case "did:ixo:ixo1broken":
			writeJSON(w, http.StatusInternalServerError, map[string]any{"code": 13, "message": "internal"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"code": 2, "message": "did document not found (22)"})
		}
	})
	client := newTestClient(t, r)

	doc, err := client.DIDDocument(context.Background(), "did:ixo:ixo1exists")
	require.NoError(t, err)
	assert.Equal(t, "did:ixo:ixo1exists", doc.ID)
	assert.Equal(t, []string{"did:ixo:ixo1exists"}, doc.Controller)
	require.Len(t, doc.Service, 1)

	_, err = client.DIDDocument(context.Background(), "did:ixo:ixo1missing")
	require.ErrorIs(t, err, interfaces.ErrDIDNotFound)

	_, err = client.DIDDocument(context.Background(), "did:ixo:ixo1broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrDIDNotFound)
}

func TestRESTClientFeeAllowances(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/cosmos/feegrant/v1beta1/allowances/{grantee}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ixo1grantee", chi.URLParam(r, "grantee"))
		writeJSON(w, http.StatusOK, map[string]any{
			"allowances": []map[string]any{
				{"granter": "ixo1a", "grantee": "ixo1grantee", "allowance": map[string]any{"@type": basicAllowanceTypeURL}},
				{"granter": "ixo1b", "grantee": "ixo1grantee", "allowance": map[string]any{"@type": "/unknown"}},
			},
		})
	})
	client := newTestClient(t, r)

	allowances, err := client.FeeAllowances(context.Background(), "ixo1grantee")
	require.NoError(t, err)
	require.Len(t, allowances, 1)
	assert.Equal(t, "ixo1a", allowances[0].Granter)
}

func TestRESTClientAccountAndChainID(t *testing.T) {
	var nodeInfoCalls atomic.Int32

	r := chi.NewRouter()
	r.Get("/rest/cosmos/auth/v1beta1/accounts/{address}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"account": map[string]any{
				"@type":          "/cosmos.auth.v1beta1.BaseAccount",
				"address":        chi.URLParam(r, "address"),
				"account_number": "12",
				"sequence":       "3",
			},
		})
	})
	r.Get("/rest/cosmos/base/tendermint/v1beta1/node_info", func(w http.ResponseWriter, r *http.Request) {
		nodeInfoCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"default_node_info": map[string]any{"network": "devnet-1"}})
	})
	client := newTestClient(t, r)

	acc, err := client.Account(context.Background(), "ixo1abc")
	require.NoError(t, err)
	assert.Equal(t, &interfaces.BaseAccount{Address: "ixo1abc", AccountNumber: 12, Sequence: 3}, acc)

	for i := 0; i < 3; i++ {
		chainID, err := client.ChainID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "devnet-1", chainID)
	}
	assert.Equal(t, int32(1), nodeInfoCalls.Load())
}

func TestRESTClientSimulateAndBroadcast(t *testing.T) {
	txBytes := []byte("signed-tx")
	var txQueries atomic.Int32

	r := chi.NewRouter()
	r.Post("/rest/cosmos/tx/v1beta1/simulate", func(w http.ResponseWriter, r *http.Request) {
		var req txBytesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, base64.StdEncoding.EncodeToString(txBytes), req.TxBytes)
		writeJSON(w, http.StatusOK, map[string]any{"gas_info": map[string]any{"gas_used": "123456"}})
	})
	r.Post("/rest/cosmos/tx/v1beta1/txs", func(w http.ResponseWriter, r *http.Request) {
		var req txBytesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "BROADCAST_MODE_SYNC", req.Mode)
		writeJSON(w, http.StatusOK, map[string]any{"tx_response": map[string]any{"txhash": "ABCD", "code": 0, "height": "0"}})
	})
	r.Get("/rest/cosmos/tx/v1beta1/txs/{hash}", func(w http.ResponseWriter, r *http.Request) {
		// Not indexed on the first query.
		if txQueries.Add(1) == 1 {
			writeJSON(w, http.StatusNotFound, map[string]any{"code": 5, "message": "tx not found: ABCD"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tx_response": map[string]any{
			"txhash": "ABCD",
			"code":   0,
			"height": "77",
			"events": []map[string]any{{"type": "wasm", "attributes": []map[string]string{{"key": "token_id", "value": "did:ixo:entity:1"}}}},
		}})
	})
	client := newTestClient(t, r)

	gas, err := client.Simulate(context.Background(), txBytes)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), gas)

	resp, err := client.Broadcast(context.Background(), txBytes)
	require.NoError(t, err)
	assert.Equal(t, int64(77), resp.Height)
	assert.Equal(t, int32(2), txQueries.Load())

	tokenID, err := FindEventAttribute(resp, "wasm", "token_id")
	require.NoError(t, err)
	assert.Equal(t, "did:ixo:entity:1", tokenID)
}

func TestRESTClientBroadcastRejected(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/rest/cosmos/tx/v1beta1/txs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tx_response": map[string]any{"txhash": "ABCD", "code": 13, "raw_log": "insufficient fee"}})
	})
	client := newTestClient(t, r)

	resp, err := client.Broadcast(context.Background(), []byte("tx"))
	require.NoError(t, err)
	assert.True(t, resp.Failed())
	assert.Error(t, CheckTxResponse(resp))
}

func TestRESTClientWaitForTxTimeout(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/rest/cosmos/tx/v1beta1/txs/{hash}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	})
	client := newTestClient(t, r)

	_, err := client.WaitForTx(context.Background(), "ABCD")
	var timeoutErr *interfaces.ConfirmationTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "ABCD", timeoutErr.ID)
}
