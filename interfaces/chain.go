package interfaces

import "context"

// Msg is a chain message that can be packed into a transaction body.
type Msg interface {
	// TypeURL returns the protobuf type URL, e.g. "/cosmos.bank.v1beta1.MsgSend".
	TypeURL() string

	// Marshal returns the protobuf encoding of the message.
	Marshal() []byte
}

// ChainQuerier reads chain state.
type ChainQuerier interface {
	// DIDDocument returns the document for did or ErrDIDNotFound.
	DIDDocument(ctx context.Context, did string) (*DIDDocument, error)

	// FeeAllowances returns every fee grant whose grantee is address.
	FeeAllowances(ctx context.Context, grantee string) ([]Allowance, error)

	// Account returns the account number and sequence of address.
	Account(ctx context.Context, address string) (*BaseAccount, error)
}

// TxBroadcaster submits signed transactions.
type TxBroadcaster interface {
	// Simulate returns the gas used by a signed transaction.
	Simulate(ctx context.Context, txBytes []byte) (uint64, error)

	// Broadcast submits a signed transaction and waits until it is included
	// in a block.
	Broadcast(ctx context.Context, txBytes []byte) (*TxResponse, error)
}

// ChainClient combines the query and broadcast sides of a chain endpoint.
type ChainClient interface {
	ChainQuerier
	TxBroadcaster
}

// TxSigner signs and broadcasts an ordered list of messages as a single
// transaction. Fee payment is delegated to granter when it is non-empty.
type TxSigner interface {
	SignAndBroadcast(ctx context.Context, msgs []Msg, memo string, granter string) (*TxResponse, error)
}

// RemoteSigner obtains a human wallet's authorization through an
// out-of-band confirmation channel.
type RemoteSigner interface {
	// Login authenticates a wallet. The returned wallet always carries
	// Matrix sub-credentials.
	Login(ctx context.Context) (*Wallet, error)

	// Transact asks wallet to sign and broadcast msgs as one transaction.
	Transact(ctx context.Context, wallet *Wallet, msgs []Msg, memo string) (*TxResponse, error)
}
