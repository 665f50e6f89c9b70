package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ixoworld/oracle-provisioner/interfaces"
)

// FileBackend stores content below a local directory, one subdirectory per
// content type. Secrets are only readable by the owner.
type FileBackend struct {
	baseDir     string
	dirs        map[interfaces.ContentType]string
	log         *slog.Logger
	locationURI string
}

// file modes per content type
var (
	dirModes = map[interfaces.ContentType]os.FileMode{
		interfaces.ResourceType: 0o755,
		interfaces.SecretType:   0o700,
	}
	fileModes = map[interfaces.ContentType]os.FileMode{
		interfaces.ResourceType: 0o644,
		interfaces.SecretType:   0o600,
	}
)

// NewFileBackend creates a file backend rooted at baseDir, creating the
// directory layout when missing.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	b := &FileBackend{
		baseDir: baseDir,
		dirs: map[interfaces.ContentType]string{
			interfaces.ResourceType: filepath.Join(baseDir, "resources"),
			interfaces.SecretType:   filepath.Join(baseDir, "secrets"),
		},
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	for contentType, dir := range b.dirs {
		if err := os.MkdirAll(dir, dirModes[contentType]); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", contentType, err)
		}
	}
	return b, nil
}

// Fetch reads content by ID. Returns ErrContentNotFound if no such file
// exists.
func (b *FileBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	filePath, err := b.path(id, contentType)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !id.Verify(data) {
		return nil, fmt.Errorf("content of %s does not match its id", filePath)
	}

	b.log.Debug("Fetched content from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))
	return data, nil
}

// Store writes data under its content ID.
func (b *FileBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	filePath, err := b.path(id, contentType)
	if err != nil {
		return id, err
	}

	if err := os.WriteFile(filePath, data, fileModes[contentType]); err != nil {
		return id, fmt.Errorf("failed to write file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(filePath, fileModes[contentType]); err != nil {
		return id, fmt.Errorf("failed to set file mode: %w", err)
	}

	b.log.Debug("Stored content in file",
		slog.String("path", filePath),
		slog.String("contentID", id.String()))
	return id, nil
}

// Available checks that the base directory exists.
func (b *FileBackend) Available(ctx context.Context) error {
	info, err := os.Stat(b.baseDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", interfaces.ErrBackendUnavailable, b.baseDir)
	}
	return nil
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

func (b *FileBackend) path(id interfaces.ContentID, contentType interfaces.ContentType) (string, error) {
	dir, ok := b.dirs[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported content type: %v", contentType)
	}
	return filepath.Join(dir, id.String()), nil
}
