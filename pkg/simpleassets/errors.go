package simpleassets

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidName indicates a name that fails the tenant's name pattern
	ErrInvalidName = errors.New("invalid asset name")

	// ErrAssetExists indicates a conflicting asset name on Add or Rename
	ErrAssetExists = errors.New("asset already exists")

	// ErrAssetNotFound indicates an asset was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnsupportedFileType indicates content outside the image allow-list
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates content above the tenant's size limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrCapacityExceeded indicates the tenant is at its asset capacity
	ErrCapacityExceeded = errors.New("asset capacity exceeded")

	// ErrDuplicateContent indicates byte-identical content already stored
	// under another name in the tenant
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrBlobExists indicates a blob with the same content ref already
	// exists in the tenant's storage scope
	ErrBlobExists = errors.New("blob already exists")

	// ErrStorageIO indicates a blob store write/delete failure
	ErrStorageIO = errors.New("storage i/o failure")

	// ErrPersistence indicates a metadata store failure
	ErrPersistence = errors.New("metadata persistence failure")
)

// AssetError wraps an error from an asset operation with its tenant and name.
type AssetError struct {
	TenantID int64
	Name     string
	Op       string
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for %q in tenant %d: %v", e.Op, e.Name, e.TenantID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// StorageError wraps an error from a blob store operation.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorageIO so callers can classify without knowing the backend.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageIO
}

// PersistenceError wraps an error from a metadata store operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("metadata operation %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// DuplicateContentError reports byte-identical content already stored in the
// tenant, naming the asset that owns it. ExistingName is empty when the blob
// has no metadata row (an orphan left by an earlier failure).
type DuplicateContentError struct {
	ExistingName string
}

func (e *DuplicateContentError) Error() string {
	if e.ExistingName == "" {
		return "duplicate content: identical file already stored"
	}
	return fmt.Sprintf("duplicate content: identical file already stored as %q", e.ExistingName)
}

func (e *DuplicateContentError) Is(target error) bool {
	return target == ErrDuplicateContent
}
