// Package storage keeps copies of what a provisioning run produces in
// content-addressed backends selected by URI:
//
//	file:///var/lib/oracles/
//	s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix/?region=eu-west-1&endpoint=minio.local:9000
//	ipfs://localhost:5001/
//	vault://vault.example.com:8200/secret/oracles?tls=false
//
// Content lives in two namespaces. ResourceType holds the public linked
// resource documents of an entity; backends may publish them. SecretType
// holds result records with mnemonics and access tokens; backends keep them
// private, and IPFS refuses them.
//
// A content ID is the SHA-256 digest of the stored bytes, so the ID of a
// mirrored resource equals the proof attached to the entity.
package storage
