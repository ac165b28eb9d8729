package simpleassets

import (
	"context"
)

// Service is the public operation contract for tenant asset management. Each
// operation is a short-lived linear pipeline ending in success or one typed
// error; no partially-applied side effect survives a failure path.
//
// A Service holds no mutable state beyond its collaborators and is safe for
// concurrent use. Operations block for the duration of their local I/O.
type Service interface {
	// Add registers a new named asset from an uploaded payload.
	Add(ctx context.Context, req UploadRequest) (*Asset, error)

	// Get returns the asset descriptor, or ErrAssetNotFound.
	Get(ctx context.Context, tenantID int64, name string) (*Asset, error)

	// Locate resolves the asset's blob to a retrieval path or URL.
	Locate(ctx context.Context, tenantID int64, name string) (string, error)

	// Delete removes the asset record and, best effort, its blob.
	Delete(ctx context.Context, tenantID int64, name string) error

	// Rename changes an asset's name, keeping its content and created_at.
	Rename(ctx context.Context, tenantID int64, oldName, newName string) error

	// Replace swaps the asset's content for a new payload, keeping its name
	// and created_at.
	Replace(ctx context.Context, req UploadRequest) (*Asset, error)

	// List returns the tenant's assets with usage counts for the requesting
	// user, ordered for deterministic pagination.
	List(ctx context.Context, tenantID, userID int64, keyword string) ([]ListEntry, error)

	// RecordUse bumps the per-user usage counter for an asset the caller
	// just resolved. Existence is not re-checked here.
	RecordUse(ctx context.Context, tenantID, userID int64, name string) error

	// EnsureTenantScope provisions the tenant's blob namespace. Idempotent.
	EnsureTenantScope(ctx context.Context, tenantID int64) error

	// NamePolicy exposes the tenant expression rules so dispatch
	// collaborators can extract references from message text.
	NamePolicy() *NamePolicy
}
