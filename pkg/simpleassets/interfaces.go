package simpleassets

import (
	"context"
)

// BlobStore defines the interface for content-addressed blob backends. Blobs
// live in a per-tenant scope; refs have the form <digest>.<extension>.
type BlobStore interface {
	// Save computes the content ref for data and persists the blob under the
	// tenant's scope. If a blob with that ref already exists the save is
	// rejected with ErrBlobExists; the computed ref is still returned so the
	// caller can resolve which asset owns the bytes.
	Save(ctx context.Context, tenantID int64, data []byte, extension string) (string, error)

	// Delete removes the blob if present. A missing blob is not an error.
	Delete(ctx context.Context, tenantID int64, contentRef string) error

	// Locate returns a caller-usable path or URL for the blob. No content is
	// read by this call.
	Locate(ctx context.Context, tenantID int64, contentRef string) (string, error)

	// EnsureTenantScope idempotently provisions the tenant's storage
	// namespace. Called once per tenant activation.
	EnsureTenantScope(ctx context.Context, tenantID int64) error
}

// MetadataStore defines the interface for durable asset metadata and usage
// counters. Implementations constructed with ignore-spaces enabled compare
// names in their folded form (FoldName) on every lookup while storing names
// verbatim.
type MetadataStore interface {
	// Get returns the asset, or ErrAssetNotFound.
	Get(ctx context.Context, tenantID int64, name string) (*Asset, error)

	// Exists reports whether an asset with the name exists in the tenant.
	Exists(ctx context.Context, tenantID int64, name string) (bool, error)

	// FindByContentRef returns the name of the asset referencing the blob,
	// or ErrAssetNotFound when no asset does.
	FindByContentRef(ctx context.Context, tenantID int64, contentRef string) (string, error)

	// Insert stores a new asset record. A (tenant_id, name) conflict is
	// reported as ErrAssetExists; this constraint is the arbiter for
	// concurrent adds of the same name.
	Insert(ctx context.Context, asset *Asset) error

	// Delete removes the asset record. Usage counters are left behind.
	Delete(ctx context.Context, tenantID int64, name string) error

	// Rename changes the asset's name, keeping created_at. Zero rows
	// affected is reported as ErrAssetNotFound, a name conflict as
	// ErrAssetExists.
	Rename(ctx context.Context, tenantID int64, oldName, newName string) error

	// ReplaceContent updates the asset's content ref and uploader.
	ReplaceContent(ctx context.Context, tenantID int64, name string, uploaderID int64, contentRef string) error

	// Count returns the number of live assets in the tenant.
	Count(ctx context.Context, tenantID int64) (int, error)

	// List returns the tenant's assets joined with usage counts for the
	// requesting user. Keyword, when non-empty, matches as a case-sensitive
	// substring against the stored name with LIKE metacharacters escaped.
	// Ordering is name ascending, then total use count descending, then
	// created_at ascending; pagination determinism depends on it.
	List(ctx context.Context, tenantID, userID int64, keyword string) ([]ListEntry, error)

	// IncrementUsage bumps the (tenant, user, name) counter by one, creating
	// it at zero first if absent. The upsert is atomic with respect to
	// concurrent increments for the same key.
	IncrementUsage(ctx context.Context, tenantID, userID int64, name string) error
}
