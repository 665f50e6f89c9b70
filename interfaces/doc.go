// Package interfaces defines the core types and collaborator contracts of the
// oracle provisioner, separating interface definitions from implementations.
//
// # Chain Interfaces
//
// ChainQuerier: Reads DID documents, fee allowances and account numbers from
// the chain REST gateway.
//
// TxBroadcaster: Simulates and broadcasts signed transactions and waits for
// their inclusion.
//
// RemoteSigner: Obtains a human wallet's authorization for a transaction
// through the SignX QR-code protocol.
//
// # Messaging Interfaces
//
// MatrixClient: The subset of the Matrix client-server API used to register,
// secure and populate an oracle's messaging account.
//
// # Storage Interfaces
//
// StorageBackend: Content-addressed storage used to mirror linked resources
// and to hand the provisioning result to secret stores.
//
// # Core Types
//
//   - ContentID: SHA-256 digest rendered as a CIDv1 (raw codec) proof string
//   - Wallet: the authenticated SignX wallet of the operator
//   - LinkedResource, LinkedEntity, Service: DID document building blocks
//   - Allowance: a decoded fee grant
//   - TxResponse: broadcast result with emitted events
package interfaces
