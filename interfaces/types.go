package interfaces

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Network selects the ixo chain a provisioning run targets.
type Network string

const (
	Devnet  Network = "devnet"
	Testnet Network = "testnet"
	Mainnet Network = "mainnet"
)

// ParseNetwork validates a network name.
func ParseNetwork(name string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(name))); n {
	case Devnet, Testnet, Mainnet:
		return n, nil
	default:
		return "", fmt.Errorf("invalid network %q: valid networks are devnet, testnet, mainnet", name)
	}
}

// String returns the network name.
func (n Network) String() string {
	return string(n)
}

// Coin is an amount of a single denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Service is a DID document service endpoint.
type Service struct {
	ID              string `json:"id" yaml:"id" validate:"required"`
	Type            string `json:"type" yaml:"type" validate:"required"`
	ServiceEndpoint string `json:"serviceEndpoint" yaml:"serviceEndpoint" validate:"required,url"`
}

// LinkedResource is an off-chain document referenced from a DID document by
// a content proof.
type LinkedResource struct {
	Type            string `json:"type"`
	ID              string `json:"id"`
	Description     string `json:"description"`
	MediaType       string `json:"mediaType"`
	ServiceEndpoint string `json:"serviceEndpoint"`
	Proof           string `json:"proof"`
	Encrypted       string `json:"encrypted"`
	Right           string `json:"right"`
}

// LinkedEntity relates a DID document to another DID.
type LinkedEntity struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Relationship string `json:"relationship"`
	Service      string `json:"service"`
}

// VerificationMethod carries key material or an account binding for a DID.
type VerificationMethod struct {
	ID                  string `json:"id"`
	Type                string `json:"type"`
	Controller          string `json:"controller"`
	BlockchainAccountID string `json:"blockchainAccountID,omitempty"`
	PublicKeyHex        string `json:"publicKeyHex,omitempty"`
	PublicKeyMultibase  string `json:"publicKeyMultibase,omitempty"`
}

// Verification binds a verification method to its relationships.
type Verification struct {
	Relationships []string           `json:"relationships"`
	Method        VerificationMethod `json:"method"`
	Context       []string           `json:"context,omitempty"`
}

// Context is a key/value JSON-LD context entry.
type Context struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// DIDDocument is the subset of an on-chain IID document the provisioner reads.
type DIDDocument struct {
	ID             string           `json:"id"`
	Controller     []string         `json:"controller"`
	Service        []Service        `json:"service"`
	LinkedResource []LinkedResource `json:"linkedResource"`
	LinkedEntity   []LinkedEntity   `json:"linkedEntity"`
}

// AllowanceKind distinguishes fee grant flavours.
type AllowanceKind string

const (
	BasicAllowance    AllowanceKind = "basic"
	PeriodicAllowance AllowanceKind = "periodic"
)

// Allowance is a decoded fee grant. A nil Expiration never expires and a nil
// Limit is unlimited. Limit is expressed in uixo.
type Allowance struct {
	Granter    string
	Grantee    string
	Kind       AllowanceKind
	Expiration *time.Time
	Limit      *float64
}

// BaseAccount holds the signing metadata of an on-chain account.
type BaseAccount struct {
	Address       string
	AccountNumber uint64
	Sequence      uint64
}

// EventAttribute is a key/value pair emitted by a transaction.
type EventAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a typed group of attributes emitted by a transaction.
type Event struct {
	Type       string           `json:"type"`
	Attributes []EventAttribute `json:"attributes"`
}

// TxResponse is the result of a broadcast transaction. Code 0 means success.
type TxResponse struct {
	Height    int64   `json:"height,string"`
	TxHash    string  `json:"txhash"`
	Code      uint32  `json:"code"`
	RawLog    string  `json:"raw_log"`
	GasWanted int64   `json:"gas_wanted,string"`
	GasUsed   int64   `json:"gas_used,string"`
	Events    []Event `json:"events"`
}

// Failed reports whether the chain rejected the transaction.
func (r *TxResponse) Failed() bool {
	return r.Code != 0
}

// MatrixLogin holds the Matrix sub-credentials returned by a SignX login.
type MatrixLogin struct {
	Address     string `json:"address"`
	AccessToken string `json:"accessToken"`
	RoomID      string `json:"roomId"`
	UserID      string `json:"userId"`
}

// Wallet is an operator wallet authenticated through SignX.
type Wallet struct {
	Address  string       `json:"address"`
	Algo     string       `json:"algo"`
	DID      string       `json:"did"`
	Network  Network      `json:"network"`
	Matrix   *MatrixLogin `json:"matrix"`
	Name     string       `json:"name"`
	PubKey   string       `json:"pubKey"`
	Ledgered bool         `json:"ledgered"`
}

// PubKeyBytes decodes the hex encoded public key of the wallet.
func (w *Wallet) PubKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimPrefix(w.PubKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid wallet public key: %w", err)
	}
	return key, nil
}

// KeyType returns the verification key flavour of the wallet.
func (w *Wallet) KeyType() string {
	if w.Algo == "ed25519" {
		return "ed"
	}
	return "secp"
}
