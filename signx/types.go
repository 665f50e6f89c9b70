package signx

import (
	"encoding/json"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const (
	loginRequestType    = "SIGN_X_LOGIN"
	transactRequestType = "SIGN_X_TRANSACT"
	protocolVersion     = 1

	// codePending is answered while the wallet app has not responded yet.
	codePending = 418
)

// Endpoints of the SignX relay per network.
var Endpoints = map[interfaces.Network]string{
	interfaces.Devnet:  "https://signx.devnet.ixo.earth",
	interfaces.Testnet: "https://signx.testnet.ixo.earth",
	interfaces.Mainnet: "https://signx.ixo.earth",
}

// envelope wraps every SignX response.
type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *envelope) pending() bool {
	return !e.Success && e.Code == codePending
}

type loginCreateRequest struct {
	Hash       string `json:"hash"`
	SecureHash string `json:"secureHash"`
	Origin     string `json:"origin"`
	Network    string `json:"network"`
	Matrix     bool   `json:"matrix"`
}

type loginFetchRequest struct {
	Hash        string `json:"hash"`
	SecureNonce string `json:"secureNonce"`
}

// loginQR is scanned by the wallet app.
type loginQR struct {
	Type       string `json:"type"`
	Origin     string `json:"origin"`
	Network    string `json:"network"`
	Version    int    `json:"version"`
	Hash       string `json:"hash"`
	SecureHash string `json:"secureHash"`
	Matrix     bool   `json:"matrix"`
}

// TransactionEntry is one transaction body of a transact request.
type TransactionEntry struct {
	Sequence  uint64 `json:"sequence"`
	TxBodyHex string `json:"txBodyHex"`
}

// TransactRequest is the envelope the wallet app signs.
type TransactRequest struct {
	Hash         string             `json:"hash"`
	Origin       string             `json:"origin"`
	Network      string             `json:"network"`
	Address      string             `json:"address"`
	DID          string             `json:"did"`
	PubKey       string             `json:"pubkey"`
	Timestamp    string             `json:"timestamp"`
	Transactions []TransactionEntry `json:"transactions"`
}

type transactFetchRequest struct {
	Hash string `json:"hash"`
}

// transactQR is scanned by the wallet app.
type transactQR struct {
	Type    string `json:"type"`
	Origin  string `json:"origin"`
	Network string `json:"network"`
	Version int    `json:"version"`
	Hash    string `json:"hash"`
}

// deliverTxResponse is the broadcast result reported by the wallet app.
type deliverTxResponse struct {
	Height          int64              `json:"height"`
	TransactionHash string             `json:"transactionHash"`
	Code            uint32             `json:"code"`
	RawLog          string             `json:"rawLog"`
	GasUsed         int64              `json:"gasUsed"`
	GasWanted       int64              `json:"gasWanted"`
	Events          []interfaces.Event `json:"events"`
}

func (r *deliverTxResponse) txResponse() *interfaces.TxResponse {
	return &interfaces.TxResponse{
		Height:    r.Height,
		TxHash:    r.TransactionHash,
		Code:      r.Code,
		RawLog:    r.RawLog,
		GasUsed:   r.GasUsed,
		GasWanted: r.GasWanted,
		Events:    r.Events,
	}
}
