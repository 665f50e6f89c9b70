package interfaces

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentID is the SHA-256 digest of a document. Its string form is a CIDv1
// with the raw codec, which is the proof format of linked resources.
type ContentID [32]byte

// ComputeID calculates the content ID of data.
func ComputeID(data []byte) ContentID {
	return ContentID(sha256.Sum256(data))
}

// ParseContentID decodes a CID string produced by ContentID.String.
func ParseContentID(s string) (ContentID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid content id: %w", err)
	}
	if c.Type() != cid.Raw {
		return ContentID{}, fmt.Errorf("invalid content id codec: %d", c.Type())
	}

	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return ContentID{}, fmt.Errorf("invalid content id multihash: %w", err)
	}
	if decoded.Code != multihash.SHA2_256 || len(decoded.Digest) != 32 {
		return ContentID{}, errors.New("invalid content id: not a sha2-256 digest")
	}

	var id ContentID
	copy(id[:], decoded.Digest)
	return id, nil
}

// CID returns the CIDv1 form of the content ID.
func (id ContentID) CID() cid.Cid {
	mh, err := multihash.Encode(id[:], multihash.SHA2_256)
	if err != nil {
		// Encode only fails for unknown codes or digest length mismatches.
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, mh)
}

// String returns the base32 CIDv1 representation.
func (id ContentID) String() string {
	return id.CID().String()
}

// Bytes returns the raw 32-byte digest.
func (id ContentID) Bytes() []byte {
	return id[:]
}

// Verify reports whether data hashes to id.
func (id ContentID) Verify(data []byte) bool {
	return ComputeID(data) == id
}

// ContentType indicates storage namespace.
type ContentType int

const (
	// ResourceType for public linked resource documents
	ResourceType ContentType = iota
	// SecretType for provisioning result records
	SecretType
)

// String returns type name.
func (ct ContentType) String() string {
	switch ct {
	case ResourceType:
		return "resource"
	case SecretType:
		return "secret"
	default:
		return "unknown"
	}
}

var (
	// ErrContentNotFound is returned when requested content cannot be found in the storage backend.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend provides content-addressed data storage.
type StorageBackend interface {
	// Fetch retrieves data by content ID and type.
	Fetch(ctx context.Context, id ContentID, contentType ContentType) ([]byte, error)

	// Store saves data and returns its content ID.
	Store(ctx context.Context, data []byte, contentType ContentType) (ContentID, error)

	// Available returns nil when the backend is reachable. A non-nil error
	// wraps ErrBackendUnavailable when the backend answered negatively and
	// carries the transport error when the check itself failed.
	Available(ctx context.Context) error

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, ipfs://, vault://
	StorageBackendFor(locationURI string) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locationURIs []string) (StorageBackend, error)
}
