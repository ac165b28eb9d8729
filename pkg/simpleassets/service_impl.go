package simpleassets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// service implements the Service interface
type service struct {
	metadata    MetadataStore
	blobs       BlobStore
	namePolicy  *NamePolicy
	constraints *ConstraintPolicy
	logger      *slog.Logger
	now         func() time.Time
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithMetadataStore sets the metadata store for the service
func WithMetadataStore(store MetadataStore) Option {
	return func(s *service) {
		s.metadata = store
	}
}

// WithBlobStore sets the blob store for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithNamePolicy sets the tenant expression rules for the service
func WithNamePolicy(policy *NamePolicy) Option {
	return func(s *service) {
		s.namePolicy = policy
	}
}

// WithConstraintPolicy sets the capacity/size constraints for the service
func WithConstraintPolicy(policy *ConstraintPolicy) Option {
	return func(s *service) {
		s.constraints = policy
	}
}

// WithLogger sets the structured logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options. A metadata
// store and a blob store are required; the name policy and constraint
// policy fall back to package defaults.
func New(options ...Option) (Service, error) {
	s := &service{
		now: time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.namePolicy == nil {
		policy, err := NewNamePolicy(NamePolicyConfig{IgnoreSpaces: true})
		if err != nil {
			return nil, err
		}
		s.namePolicy = policy
	}
	if s.constraints == nil {
		s.constraints = NewDefaultConstraintPolicy()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) NamePolicy() *NamePolicy {
	return s.namePolicy
}

// checkPayload runs the file-type and size guards shared by Add and Replace.
// It returns the derived file extension.
func (s *service) checkPayload(tenantID int64, req UploadRequest) (string, error) {
	ext, ok := ExtensionForMIME(req.MIMEType)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, req.MIMEType)
	}

	maxKB := s.constraints.MaxSizeFor(tenantID)
	if len(req.Data) > maxKB*1024 {
		return "", fmt.Errorf("%w: %d KB exceeds limit of %d KB", ErrFileTooLarge, len(req.Data)/1024, maxKB)
	}

	return ext, nil
}

// saveBlob writes the payload and maps a duplicate blob to the asset that
// owns it. On ErrBlobExists the blob store still reports the computed ref,
// which is resolved to a name through FindByContentRef.
func (s *service) saveBlob(ctx context.Context, tenantID int64, data []byte, ext string) (string, error) {
	ref, err := s.blobs.Save(ctx, tenantID, data, ext)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, ErrBlobExists) {
		return "", err
	}

	existing, ferr := s.metadata.FindByContentRef(ctx, tenantID, ref)
	if ferr != nil && !errors.Is(ferr, ErrAssetNotFound) {
		return "", ferr
	}
	return "", &DuplicateContentError{ExistingName: existing}
}

func (s *service) Add(ctx context.Context, req UploadRequest) (*Asset, error) {
	if err := s.namePolicy.Validate(req.Name); err != nil {
		return nil, err
	}

	exists, err := s.metadata.Exists(ctx, req.TenantID, req.Name)
	if err != nil {
		return nil, &AssetError{TenantID: req.TenantID, Name: req.Name, Op: "add", Err: err}
	}
	if exists {
		return nil, fmt.Errorf("%w: %q", ErrAssetExists, req.Name)
	}

	ext, err := s.checkPayload(req.TenantID, req)
	if err != nil {
		return nil, err
	}

	if capacity := s.constraints.CapacityFor(req.TenantID); capacity != CapacityUnlimited {
		count, err := s.metadata.Count(ctx, req.TenantID)
		if err != nil {
			return nil, &AssetError{TenantID: req.TenantID, Name: req.Name, Op: "add", Err: err}
		}
		if count >= capacity {
			return nil, fmt.Errorf("%w: tenant limit is %d", ErrCapacityExceeded, capacity)
		}
	}

	ref, err := s.saveBlob(ctx, req.TenantID, req.Data, ext)
	if err != nil {
		return nil, err
	}

	asset := &Asset{
		TenantID:   req.TenantID,
		Name:       req.Name,
		UploaderID: req.UploaderID,
		ContentRef: ref,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.metadata.Insert(ctx, asset); err != nil {
		// Compensate: the blob was written first, remove it so a failed add
		// leaves nothing behind.
		if derr := s.blobs.Delete(ctx, req.TenantID, ref); derr != nil {
			s.logger.Error("compensating blob delete failed",
				"tenant_id", req.TenantID, "content_ref", ref, "error", derr)
		}
		return nil, &AssetError{TenantID: req.TenantID, Name: req.Name, Op: "add", Err: err}
	}

	s.logger.Info("asset added",
		"tenant_id", req.TenantID, "name", req.Name,
		"uploader_id", req.UploaderID, "content_ref", ref, "size", len(req.Data))

	return asset, nil
}

func (s *service) Get(ctx context.Context, tenantID int64, name string) (*Asset, error) {
	return s.metadata.Get(ctx, tenantID, name)
}

func (s *service) Locate(ctx context.Context, tenantID int64, name string) (string, error) {
	asset, err := s.metadata.Get(ctx, tenantID, name)
	if err != nil {
		return "", err
	}
	return s.blobs.Locate(ctx, tenantID, asset.ContentRef)
}

func (s *service) Delete(ctx context.Context, tenantID int64, name string) error {
	asset, err := s.metadata.Get(ctx, tenantID, name)
	if err != nil {
		return err
	}

	// Metadata first: if this fails the blob is still referenced, so it must
	// stay put.
	if err := s.metadata.Delete(ctx, tenantID, name); err != nil {
		return &AssetError{TenantID: tenantID, Name: name, Op: "delete", Err: err}
	}

	if err := s.blobs.Delete(ctx, tenantID, asset.ContentRef); err != nil {
		s.logger.Warn("orphaned blob delete failed",
			"tenant_id", tenantID, "content_ref", asset.ContentRef, "error", err)
	}

	s.logger.Info("asset deleted", "tenant_id", tenantID, "name", name)
	return nil
}

func (s *service) Rename(ctx context.Context, tenantID int64, oldName, newName string) error {
	exists, err := s.metadata.Exists(ctx, tenantID, oldName)
	if err != nil {
		return &AssetError{TenantID: tenantID, Name: oldName, Op: "rename", Err: err}
	}
	if !exists {
		return fmt.Errorf("%w: %q", ErrAssetNotFound, oldName)
	}

	if err := s.namePolicy.Validate(newName); err != nil {
		return err
	}

	exists, err = s.metadata.Exists(ctx, tenantID, newName)
	if err != nil {
		return &AssetError{TenantID: tenantID, Name: newName, Op: "rename", Err: err}
	}
	if exists {
		return fmt.Errorf("%w: %q", ErrAssetExists, newName)
	}

	if err := s.metadata.Rename(ctx, tenantID, oldName, newName); err != nil {
		if errors.Is(err, ErrAssetNotFound) || errors.Is(err, ErrAssetExists) {
			return err
		}
		return &AssetError{TenantID: tenantID, Name: oldName, Op: "rename", Err: err}
	}

	s.logger.Info("asset renamed", "tenant_id", tenantID, "old_name", oldName, "new_name", newName)
	return nil
}

func (s *service) Replace(ctx context.Context, req UploadRequest) (*Asset, error) {
	prior, err := s.metadata.Get(ctx, req.TenantID, req.Name)
	if err != nil {
		return nil, err
	}

	ext, err := s.checkPayload(req.TenantID, req)
	if err != nil {
		return nil, err
	}

	// The duplicate check covers the whole tenant, the replaced asset
	// included: re-uploading its current bytes is rejected too.
	ref, err := s.saveBlob(ctx, req.TenantID, req.Data, ext)
	if err != nil {
		return nil, err
	}

	if err := s.metadata.ReplaceContent(ctx, req.TenantID, req.Name, req.UploaderID, ref); err != nil {
		if derr := s.blobs.Delete(ctx, req.TenantID, ref); derr != nil {
			s.logger.Error("compensating blob delete failed",
				"tenant_id", req.TenantID, "content_ref", ref, "error", derr)
		}
		return nil, &AssetError{TenantID: req.TenantID, Name: req.Name, Op: "replace", Err: err}
	}

	if err := s.blobs.Delete(ctx, req.TenantID, prior.ContentRef); err != nil {
		s.logger.Warn("prior blob delete failed",
			"tenant_id", req.TenantID, "content_ref", prior.ContentRef, "error", err)
	}

	s.logger.Info("asset replaced",
		"tenant_id", req.TenantID, "name", req.Name,
		"uploader_id", req.UploaderID, "content_ref", ref)

	return &Asset{
		TenantID:   req.TenantID,
		Name:       prior.Name,
		UploaderID: req.UploaderID,
		ContentRef: ref,
		CreatedAt:  prior.CreatedAt,
	}, nil
}

func (s *service) List(ctx context.Context, tenantID, userID int64, keyword string) ([]ListEntry, error) {
	return s.metadata.List(ctx, tenantID, userID, keyword)
}

func (s *service) RecordUse(ctx context.Context, tenantID, userID int64, name string) error {
	if err := s.metadata.IncrementUsage(ctx, tenantID, userID, name); err != nil {
		return &AssetError{TenantID: tenantID, Name: name, Op: "record use", Err: err}
	}
	return nil
}

func (s *service) EnsureTenantScope(ctx context.Context, tenantID int64) error {
	if err := s.blobs.EnsureTenantScope(ctx, tenantID); err != nil {
		return err
	}
	s.logger.Info("tenant scope ready", "tenant_id", tenantID)
	return nil
}
