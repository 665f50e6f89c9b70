package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

const (
	uploadContentType = "application/ld+json"
	resourceMediaType = "application/json"
)

// Uploaded is a document published to the Matrix media repository.
type Uploaded struct {
	MXC      string
	Endpoint string
	Proof    interfaces.ContentID
}

// Uploader publishes JSON documents with the media repository of a Matrix
// account and optionally mirrors them into a storage backend.
type Uploader struct {
	client interfaces.MatrixClient
	mirror interfaces.StorageBackend
	log    *slog.Logger
}

// NewUploader creates an Uploader. mirror may be nil.
func NewUploader(client interfaces.MatrixClient, mirror interfaces.StorageBackend, log *slog.Logger) *Uploader {
	return &Uploader{client: client, mirror: mirror, log: log}
}

// encodeDocument serializes doc the way browsers' JSON.stringify does: no
// HTML escaping and no trailing newline. The proof covers these bytes.
func encodeDocument(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Upload stores doc as <name>.json. A failed mirror write is logged and
// otherwise ignored.
func (u *Uploader) Upload(ctx context.Context, doc any, name string) (*Uploaded, error) {
	data, err := encodeDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("could not encode %s: %w", name, err)
	}

	fileName := name + ".json"
	mxc, err := u.client.Upload(ctx, data, uploadContentType, fileName)
	if err != nil {
		return nil, err
	}
	endpoint, err := u.client.DownloadURL(mxc)
	if err != nil {
		return nil, &interfaces.UploadError{Name: fileName, Err: err}
	}

	uploaded := &Uploaded{MXC: mxc, Endpoint: endpoint, Proof: interfaces.ComputeID(data)}
	u.log.Debug("uploaded document", slog.String("name", fileName), slog.String("mxc", mxc), slog.String("proof", uploaded.Proof.String()))

	if u.mirror != nil {
		if _, err := u.mirror.Store(ctx, data, interfaces.ResourceType); err != nil {
			u.log.Warn("could not mirror document", slog.String("name", fileName), slog.String("backend", u.mirror.Name()), "err", err)
		}
	}
	return uploaded, nil
}

// LinkedResource describes the upload as a linked resource with the given
// fragment, e.g. "dmn" for {id}#dmn.
func (up *Uploaded) LinkedResource(fragment, resourceType, description string) interfaces.LinkedResource {
	return interfaces.LinkedResource{
		ID:              "{id}#" + fragment,
		Type:            resourceType,
		Description:     description,
		MediaType:       resourceMediaType,
		ServiceEndpoint: up.Endpoint,
		Proof:           up.Proof.String(),
		Encrypted:       "false",
		Right:           "",
	}
}
