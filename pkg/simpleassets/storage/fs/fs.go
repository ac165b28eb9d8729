// Package fs provides a local-filesystem simpleassets.BlobStore. Blobs are
// laid out as <base>/<tenant_id>/<digest>.<extension>.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// Backend is a filesystem implementation of the simpleassets.BlobStore
// interface.
type Backend struct {
	baseDir string
	logger  *slog.Logger
}

// Config options for the filesystem backend.
type Config struct {
	BaseDir string       // Base directory for storing files
	Logger  *slog.Logger // Optional; defaults to slog.Default()
}

// New creates a new filesystem storage backend.
func New(config Config) (simpleassets.BlobStore, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Backend{
		baseDir: config.BaseDir,
		logger:  config.Logger,
	}, nil
}

func (b *Backend) tenantDir(tenantID int64) string {
	return filepath.Join(b.baseDir, strconv.FormatInt(tenantID, 10))
}

func (b *Backend) blobPath(tenantID int64, contentRef string) string {
	return filepath.Join(b.tenantDir(tenantID), contentRef)
}

// EnsureTenantScope creates the tenant's blob directory if missing.
func (b *Backend) EnsureTenantScope(ctx context.Context, tenantID int64) error {
	dir := b.tenantDir(tenantID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &simpleassets.StorageError{Backend: "fs", Key: dir, Op: "ensure tenant scope", Err: err}
	}
	return nil
}

// Save writes the content-addressed blob. A blob already stored under the
// same ref means byte-identical content and is rejected with ErrBlobExists;
// the computed ref is still returned.
func (b *Backend) Save(ctx context.Context, tenantID int64, data []byte, extension string) (string, error) {
	ref := simpleassets.ComputeRef(data, extension)
	path := b.blobPath(tenantID, ref)

	if _, err := os.Stat(path); err == nil {
		return ref, fmt.Errorf("%w: %s", simpleassets.ErrBlobExists, ref)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", &simpleassets.StorageError{Backend: "fs", Key: path, Op: "save", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &simpleassets.StorageError{Backend: "fs", Key: path, Op: "save", Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", &simpleassets.StorageError{Backend: "fs", Key: path, Op: "save", Err: err}
	}

	return ref, nil
}

// Delete removes the blob. A missing file is logged, not an error.
func (b *Backend) Delete(ctx context.Context, tenantID int64, contentRef string) error {
	path := b.blobPath(tenantID, contentRef)

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			b.logger.Warn("blob already absent", "path", path)
			return nil
		}
		return &simpleassets.StorageError{Backend: "fs", Key: path, Op: "delete", Err: err}
	}
	return nil
}

// Locate returns the blob's filesystem path without reading it.
func (b *Backend) Locate(ctx context.Context, tenantID int64, contentRef string) (string, error) {
	return b.blobPath(tenantID, contentRef), nil
}
