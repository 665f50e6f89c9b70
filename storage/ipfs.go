package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// IPFSBackend publishes resource documents through an IPFS node's HTTP API.
// Documents are added as CIDv1 raw leaves, so the IPFS CID of a document
// that fits in a single block equals its content ID.
//
// IPFS content is public: secrets are refused.
type IPFSBackend struct {
	shell       *shell.Shell
	host        string
	port        string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates a backend using the IPFS API at host:port.
func NewIPFSBackend(host, port string, timeout time.Duration, log *slog.Logger) (*IPFSBackend, error) {
	apiURL := fmt.Sprintf("%s:%s", host, port)

	sh := shell.NewShell(apiURL)
	sh.SetTimeout(timeout)

	return &IPFSBackend{
		shell:       sh,
		host:        host,
		port:        port,
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s/?timeout=%s", apiURL, timeout),
	}, nil
}

// Fetch reads a resource from IPFS by its content identifier.
func (b *IPFSBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	if contentType != interfaces.ResourceType {
		return nil, interfaces.ErrContentNotFound
	}
	start := time.Now()
	ipfsPath := "/ipfs/" + id.String()

	reader, err := b.shell.Cat(ipfsPath)
	if err != nil {
		if !b.shell.IsUp() {
			return nil, interfaces.ErrBackendUnavailable
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrContentNotFound, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read data from IPFS: %w", err)
	}
	if !id.Verify(data) {
		return nil, fmt.Errorf("content of %s does not match its id", ipfsPath)
	}

	b.log.Debug("Fetched content from IPFS",
		slog.String("path", ipfsPath),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))
	return data, nil
}

// Store adds and pins a resource document.
func (b *IPFSBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	if contentType != interfaces.ResourceType {
		return id, fmt.Errorf("ipfs backend does not store %s content", contentType)
	}

	cid, err := b.shell.Add(bytes.NewReader(data),
		shell.CidVersion(1),
		shell.RawLeaves(true),
		shell.Pin(true))
	if err != nil {
		return id, fmt.Errorf("failed to add data to IPFS: %w", err)
	}

	if cid != id.String() {
		b.log.Debug("IPFS chunked the document",
			slog.String("ipfsCID", cid),
			slog.String("contentID", id.String()))
	}
	b.log.Debug("Stored content in IPFS",
		slog.String("ipfsCID", cid),
		slog.String("contentID", id.String()))
	return id, nil
}

// Available checks if the IPFS node is accessible.
func (b *IPFSBackend) Available(ctx context.Context) error {
	if !b.shell.IsUp() {
		return fmt.Errorf("%w: ipfs node %s:%s is down", interfaces.ErrBackendUnavailable, b.host, b.port)
	}
	return nil
}

// Name returns a unique identifier for this storage backend.
func (b *IPFSBackend) Name() string {
	return fmt.Sprintf("ipfs-%s-%s", b.host, b.port)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}
