package simpleassets_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	memoryrepo "github.com/tendant/simple-assets/pkg/simpleassets/repo/memory"
	memorystorage "github.com/tendant/simple-assets/pkg/simpleassets/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simpleassets.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simpleassets.Option{},
			expectError: true,
		},
		{
			name: "metadata store alone should fail",
			options: []simpleassets.Option{
				simpleassets.WithMetadataStore(memoryrepo.New()),
			},
			expectError: true,
		},
		{
			name: "metadata and blob stores should succeed",
			options: []simpleassets.Option{
				simpleassets.WithMetadataStore(memoryrepo.New()),
				simpleassets.WithBlobStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simpleassets.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

type fixture struct {
	svc   simpleassets.Service
	meta  simpleassets.MetadataStore
	blobs *memorystorage.Backend
}

func setupTestService(t *testing.T, opts ...simpleassets.Option) fixture {
	t.Helper()

	meta := memoryrepo.New()
	blobs := memorystorage.New()

	options := append([]simpleassets.Option{
		simpleassets.WithMetadataStore(meta),
		simpleassets.WithBlobStore(blobs),
	}, opts...)

	svc, err := simpleassets.New(options...)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return fixture{svc: svc, meta: meta, blobs: blobs}
}

func pngUpload(tenantID int64, name string, content []byte) simpleassets.UploadRequest {
	return simpleassets.UploadRequest{
		TenantID:   tenantID,
		Name:       name,
		UploaderID: 1001,
		Data:       content,
		MIMEType:   "image/png",
	}
}

func TestAddAsset(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	asset, err := f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("png bytes")))
	require.NoError(t, err)

	assert.Equal(t, int64(1), asset.TenantID)
	assert.Equal(t, "sadcat", asset.Name)
	assert.Equal(t, int64(1001), asset.UploaderID)
	assert.Equal(t, simpleassets.ComputeRef([]byte("png bytes"), "png"), asset.ContentRef)
	assert.False(t, asset.CreatedAt.IsZero())

	assert.True(t, f.blobs.Contains(1, asset.ContentRef))

	got, err := f.svc.Get(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.Equal(t, asset.ContentRef, got.ContentRef)
}

func TestAddDuplicateName(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("first")))
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("second")))
	assert.ErrorIs(t, err, simpleassets.ErrAssetExists)

	// The failed attempt must not change the count or write a blob.
	count, err := f.meta.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, f.blobs.Len(1))
}

func TestAddInvalidNameLeavesNoTrace(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, pngUpload(1, "bad!name", []byte("content")))
	assert.ErrorIs(t, err, simpleassets.ErrInvalidName)

	count, err := f.meta.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, f.blobs.Len(1))
}

func TestAddUnsupportedFileType(t *testing.T) {
	f := setupTestService(t)

	req := pngUpload(1, "doc", []byte("content"))
	req.MIMEType = "application/pdf"

	_, err := f.svc.Add(context.Background(), req)
	assert.ErrorIs(t, err, simpleassets.ErrUnsupportedFileType)
	assert.Equal(t, 0, f.blobs.Len(1))
}

func TestAddFileTooLarge(t *testing.T) {
	f := setupTestService(t, simpleassets.WithConstraintPolicy(
		simpleassets.NewConstraintPolicy(
			simpleassets.Constraint{Capacity: 10, MaxFileSizeKB: 1}, nil)))

	_, err := f.svc.Add(context.Background(),
		pngUpload(1, "big", bytes.Repeat([]byte("x"), 2*1024)))
	assert.ErrorIs(t, err, simpleassets.ErrFileTooLarge)
	assert.Equal(t, 0, f.blobs.Len(1))
}

func TestAddCapacity(t *testing.T) {
	f := setupTestService(t, simpleassets.WithConstraintPolicy(
		simpleassets.NewConstraintPolicy(
			simpleassets.Constraint{Capacity: 2, MaxFileSizeKB: 1024},
			map[int64]simpleassets.Constraint{
				9: {Capacity: simpleassets.CapacityUnlimited, MaxFileSizeKB: 1024},
			})))
	ctx := context.Background()

	_, err := f.svc.Add(ctx, pngUpload(1, "one", []byte("one")))
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, pngUpload(1, "two", []byte("two")))
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, pngUpload(1, "three", []byte("three")))
	assert.ErrorIs(t, err, simpleassets.ErrCapacityExceeded)

	// Unlimited tenant never hits the limit.
	for i := 0; i < 5; i++ {
		_, err = f.svc.Add(ctx, pngUpload(9, fmt.Sprintf("asset%d", i), []byte(fmt.Sprintf("content %d", i))))
		require.NoError(t, err)
	}
}

func TestAddDuplicateContent(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	content := []byte("identical bytes")
	_, err := f.svc.Add(ctx, pngUpload(1, "original", content))
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, pngUpload(1, "copy", content))
	assert.ErrorIs(t, err, simpleassets.ErrDuplicateContent)

	var dup *simpleassets.DuplicateContentError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "original", dup.ExistingName)

	// Exactly one blob for that content.
	assert.Equal(t, 1, f.blobs.Len(1))

	// Same bytes in a different tenant are fine: dedup is tenant-scoped.
	_, err = f.svc.Add(ctx, pngUpload(2, "copy", content))
	assert.NoError(t, err)
}

// failingMetadataStore wraps a real store and fails selected writes.
type failingMetadataStore struct {
	simpleassets.MetadataStore
	failInsert  bool
	failReplace bool
}

func (s *failingMetadataStore) Insert(ctx context.Context, asset *simpleassets.Asset) error {
	if s.failInsert {
		return &simpleassets.PersistenceError{Op: "insert asset", Err: errors.New("disk full")}
	}
	return s.MetadataStore.Insert(ctx, asset)
}

func (s *failingMetadataStore) ReplaceContent(ctx context.Context, tenantID int64, name string, uploaderID int64, contentRef string) error {
	if s.failReplace {
		return &simpleassets.PersistenceError{Op: "replace asset content", Err: errors.New("disk full")}
	}
	return s.MetadataStore.ReplaceContent(ctx, tenantID, name, uploaderID, contentRef)
}

func TestAddCompensatesBlobOnMetadataFailure(t *testing.T) {
	meta := &failingMetadataStore{MetadataStore: memoryrepo.New(), failInsert: true}
	blobs := memorystorage.New()

	svc, err := simpleassets.New(
		simpleassets.WithMetadataStore(meta),
		simpleassets.WithBlobStore(blobs),
	)
	require.NoError(t, err)

	_, err = svc.Add(context.Background(), pngUpload(1, "sadcat", []byte("content")))
	assert.ErrorIs(t, err, simpleassets.ErrPersistence)

	// The just-written blob must have been cleaned up.
	assert.Equal(t, 0, blobs.Len(1))
}

func TestDeleteAsset(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	asset, err := f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("content")))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, 1, "sadcat"))

	_, err = f.svc.Get(ctx, 1, "sadcat")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)
	assert.False(t, f.blobs.Contains(1, asset.ContentRef))

	// Deleting again reports not found.
	assert.ErrorIs(t, f.svc.Delete(ctx, 1, "sadcat"), simpleassets.ErrAssetNotFound)
}

func TestRenameAsset(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Add(ctx, pngUpload(1, "oldname", []byte("content")))
	require.NoError(t, err)

	require.NoError(t, f.svc.Rename(ctx, 1, "oldname", "newname"))

	_, err = f.svc.Get(ctx, 1, "oldname")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)

	renamed, err := f.svc.Get(ctx, 1, "newname")
	require.NoError(t, err)
	assert.Equal(t, created.ContentRef, renamed.ContentRef)
	assert.Equal(t, created.CreatedAt, renamed.CreatedAt)
}

func TestRenameRejections(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, pngUpload(1, "first", []byte("first")))
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, pngUpload(1, "second", []byte("second")))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Rename(ctx, 1, "missing", "other"), simpleassets.ErrAssetNotFound)
	assert.ErrorIs(t, f.svc.Rename(ctx, 1, "first", "bad!name"), simpleassets.ErrInvalidName)
	assert.ErrorIs(t, f.svc.Rename(ctx, 1, "first", "second"), simpleassets.ErrAssetExists)

	// A rejected rename leaves the source untouched.
	got, err := f.svc.Get(ctx, 1, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
}

func TestReplaceAsset(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	created, err := f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("old content")))
	require.NoError(t, err)

	req := pngUpload(1, "sadcat", []byte("new content"))
	req.UploaderID = 2002
	replaced, err := f.svc.Replace(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "sadcat", replaced.Name)
	assert.Equal(t, int64(2002), replaced.UploaderID)
	assert.Equal(t, created.CreatedAt, replaced.CreatedAt)
	assert.NotEqual(t, created.ContentRef, replaced.ContentRef)

	// Old blob gone, new blob present.
	assert.False(t, f.blobs.Contains(1, created.ContentRef))
	assert.True(t, f.blobs.Contains(1, replaced.ContentRef))
}

func TestReplaceRejections(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, pngUpload(1, "first", []byte("first content")))
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, pngUpload(1, "second", []byte("second content")))
	require.NoError(t, err)

	_, err = f.svc.Replace(ctx, pngUpload(1, "missing", []byte("anything")))
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)

	// Byte-identical to another asset in the tenant.
	_, err = f.svc.Replace(ctx, pngUpload(1, "first", []byte("second content")))
	assert.ErrorIs(t, err, simpleassets.ErrDuplicateContent)

	// Byte-identical to its own current content is a duplicate too.
	_, err = f.svc.Replace(ctx, pngUpload(1, "first", []byte("first content")))
	assert.ErrorIs(t, err, simpleassets.ErrDuplicateContent)
}

func TestReplaceCompensatesOnMetadataFailure(t *testing.T) {
	meta := &failingMetadataStore{MetadataStore: memoryrepo.New()}
	blobs := memorystorage.New()

	svc, err := simpleassets.New(
		simpleassets.WithMetadataStore(meta),
		simpleassets.WithBlobStore(blobs),
	)
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Add(ctx, pngUpload(1, "sadcat", []byte("old content")))
	require.NoError(t, err)

	meta.failReplace = true
	_, err = svc.Replace(ctx, pngUpload(1, "sadcat", []byte("new content")))
	assert.ErrorIs(t, err, simpleassets.ErrPersistence)

	// New blob compensated away, old blob kept.
	newRef := simpleassets.ComputeRef([]byte("new content"), "png")
	assert.False(t, blobs.Contains(1, newRef))
	assert.True(t, blobs.Contains(1, created.ContentRef))
}

func TestRecordUse(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	_, err := f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("content")))
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordUse(ctx, 1, 501, "sadcat"))
	require.NoError(t, f.svc.RecordUse(ctx, 1, 501, "sadcat"))
	require.NoError(t, f.svc.RecordUse(ctx, 1, 502, "sadcat"))

	entries, err := f.svc.List(ctx, 1, 501, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].UserUseCount)
	assert.Equal(t, int64(3), entries[0].TotalUseCount)

	entries, err = f.svc.List(ctx, 1, 502, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].UserUseCount)
	assert.Equal(t, int64(3), entries[0].TotalUseCount)
}

func TestLocate(t *testing.T) {
	f := setupTestService(t)
	ctx := context.Background()

	asset, err := f.svc.Add(ctx, pngUpload(1, "sadcat", []byte("content")))
	require.NoError(t, err)

	loc, err := f.svc.Locate(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.Contains(t, loc, asset.ContentRef)

	_, err = f.svc.Locate(ctx, 1, "missing")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)
}

func TestIgnoreSpacesLookups(t *testing.T) {
	meta := memoryrepo.New(memoryrepo.WithIgnoreSpaces())
	blobs := memorystorage.New()
	policy, err := simpleassets.NewNamePolicy(simpleassets.NamePolicyConfig{IgnoreSpaces: true})
	require.NoError(t, err)

	svc, err := simpleassets.New(
		simpleassets.WithMetadataStore(meta),
		simpleassets.WithBlobStore(blobs),
		simpleassets.WithNamePolicy(policy),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Add(ctx, pngUpload(1, "sad cat", []byte("content")))
	require.NoError(t, err)

	// Lookup with spaces removed finds the asset; the stored name keeps its
	// spacing.
	got, err := svc.Get(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.Equal(t, "sad cat", got.Name)

	// A second add that differs only in spacing collides.
	_, err = svc.Add(ctx, pngUpload(1, "s adcat", []byte("other content")))
	assert.ErrorIs(t, err, simpleassets.ErrAssetExists)
}

// Capacity 2, max size 1024 KB: the full admission walk from add through
// delete and re-add.
func TestQuotaLifecycleScenario(t *testing.T) {
	f := setupTestService(t, simpleassets.WithConstraintPolicy(
		simpleassets.NewConstraintPolicy(
			simpleassets.Constraint{Capacity: 2, MaxFileSizeKB: 1024}, nil)))
	ctx := context.Background()

	small := func(seed string) []byte {
		return append(bytes.Repeat([]byte("x"), 10*1024), []byte(seed)...)
	}

	_, err := f.svc.Add(ctx, pngUpload(1, "ok1", small("a")))
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, pngUpload(1, "ok2", small("b")))
	require.NoError(t, err)

	_, err = f.svc.Add(ctx, pngUpload(1, "ok3", small("c")))
	assert.ErrorIs(t, err, simpleassets.ErrCapacityExceeded)

	_, err = f.svc.Add(ctx, pngUpload(1, "ok1", small("d")))
	assert.ErrorIs(t, err, simpleassets.ErrAssetExists)

	_, err = f.svc.Replace(ctx, pngUpload(1, "ok1", bytes.Repeat([]byte("x"), 2048*1024)))
	assert.ErrorIs(t, err, simpleassets.ErrFileTooLarge)

	require.NoError(t, f.svc.Delete(ctx, 1, "ok1"))

	_, err = f.svc.Add(ctx, pngUpload(1, "ok3", small("c")))
	assert.NoError(t, err)
}
