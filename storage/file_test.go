package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

func TestFileBackend(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)
	require.NoError(t, b.Available(context.Background()))

	data := []byte(`{"mnemonic":"abandon"}`)
	id, err := b.Store(context.Background(), data, interfaces.SecretType)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ComputeID(data), id)

	info, err := os.Stat(filepath.Join(dir, "secrets", id.String()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	fetched, err := b.Fetch(context.Background(), id, interfaces.SecretType)
	require.NoError(t, err)
	assert.Equal(t, data, fetched)

	// namespaces are separate
	_, err = b.Fetch(context.Background(), id, interfaces.ResourceType)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackendResources(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)

	data := []byte(`{"@context":"https://w3id.org/ixo/context/v1"}`)
	id, err := b.Store(context.Background(), data, interfaces.ResourceType)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "resources", id.String()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFileBackendCorruptContent(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir, discardLogger())
	require.NoError(t, err)

	id, err := b.Store(context.Background(), []byte("original"), interfaces.ResourceType)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resources", id.String()), []byte("tampered"), 0o644))

	_, err = b.Fetch(context.Background(), id, interfaces.ResourceType)
	assert.ErrorContains(t, err, "does not match")
}

func TestStorageBackendFor(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())
	dir := t.TempDir()

	tests := []struct {
		uri     string
		name    string
		wantErr bool
	}{
		{uri: "file://" + dir, name: "file-" + filepath.Base(dir)},
		{uri: "s3://key:secret@results/oracles?region=eu-west-1", name: "s3-results"},
		{uri: "ipfs://localhost:5001/?timeout=5s", name: "ipfs-localhost-5001"},
		{uri: "vault://localhost:8200/secret/oracles?tls=false", name: "vault-secret-oracles"},
		{uri: "ipfs://localhost/?timeout=soon", wantErr: true},
		{uri: "vault://localhost:8200/", wantErr: true},
		{uri: "s3:///prefix", wantErr: true},
		{uri: "ftp://example.com/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			backend, err := factory.StorageBackendFor(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, backend.Name())
		})
	}
}

func TestCreateMultiBackend(t *testing.T) {
	factory := NewStorageBackendFactory(discardLogger())

	single, err := factory.CreateMultiBackend([]string{"file://" + t.TempDir(), "ftp://nowhere/"})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, single)

	multi, err := factory.CreateMultiBackend([]string{"file://" + t.TempDir(), "file://" + t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &MultiStorageBackend{}, multi)

	_, err = factory.CreateMultiBackend([]string{"ftp://nowhere/"})
	assert.Error(t, err)
}
