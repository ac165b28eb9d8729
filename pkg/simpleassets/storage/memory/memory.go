// Package memory provides an in-memory simpleassets.BlobStore, used for
// tests and development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// Backend is an in-memory implementation of the simpleassets.BlobStore
// interface.
type Backend struct {
	mu    sync.RWMutex
	blobs map[int64]map[string][]byte // tenant -> content ref -> bytes
}

// New creates a new in-memory storage backend.
func New() *Backend {
	return &Backend{
		blobs: make(map[int64]map[string][]byte),
	}
}

var _ simpleassets.BlobStore = (*Backend)(nil)

func (b *Backend) EnsureTenantScope(ctx context.Context, tenantID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.blobs[tenantID]; !ok {
		b.blobs[tenantID] = make(map[string][]byte)
	}
	return nil
}

func (b *Backend) Save(ctx context.Context, tenantID int64, data []byte, extension string) (string, error) {
	ref := simpleassets.ComputeRef(data, extension)

	b.mu.Lock()
	defer b.mu.Unlock()

	tenant, ok := b.blobs[tenantID]
	if !ok {
		tenant = make(map[string][]byte)
		b.blobs[tenantID] = tenant
	}
	if _, ok := tenant[ref]; ok {
		return ref, fmt.Errorf("%w: %s", simpleassets.ErrBlobExists, ref)
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	tenant[ref] = stored
	return ref, nil
}

func (b *Backend) Delete(ctx context.Context, tenantID int64, contentRef string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.blobs[tenantID], contentRef)
	return nil
}

func (b *Backend) Locate(ctx context.Context, tenantID int64, contentRef string) (string, error) {
	return fmt.Sprintf("memory://%d/%s", tenantID, contentRef), nil
}

// Contains reports whether the blob is stored. Used by tests.
func (b *Backend) Contains(tenantID int64, contentRef string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.blobs[tenantID][contentRef]
	return ok
}

// Len reports the number of blobs stored for a tenant. Used by tests.
func (b *Backend) Len(tenantID int64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.blobs[tenantID])
}
