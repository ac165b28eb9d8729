package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/repo/memory"
)

func insert(t *testing.T, store *memory.Store, tenantID int64, name string, createdAt time.Time) {
	t.Helper()
	err := store.Insert(context.Background(), &simpleassets.Asset{
		TenantID:   tenantID,
		Name:       name,
		UploaderID: 1001,
		ContentRef: "ref-" + name + ".png",
		CreatedAt:  createdAt,
	})
	require.NoError(t, err)
}

func TestInsertAndGet(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now().UTC()

	insert(t, store, 1, "sadcat", now)

	asset, err := store.Get(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.Equal(t, "sadcat", asset.Name)
	assert.Equal(t, "ref-sadcat.png", asset.ContentRef)
	assert.Equal(t, now, asset.CreatedAt)

	// The returned asset is a copy.
	asset.Name = "mutated"
	again, err := store.Get(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.Equal(t, "sadcat", again.Name)

	_, err = store.Get(ctx, 2, "sadcat")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)
}

func TestInsertDuplicate(t *testing.T) {
	store := memory.New()
	insert(t, store, 1, "sadcat", time.Now())

	err := store.Insert(context.Background(), &simpleassets.Asset{
		TenantID: 1, Name: "sadcat", ContentRef: "other.png",
	})
	assert.ErrorIs(t, err, simpleassets.ErrAssetExists)
}

func TestExistsAndCount(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	ok, err := store.Exists(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.False(t, ok)

	insert(t, store, 1, "sadcat", time.Now())
	insert(t, store, 1, "happycat", time.Now())
	insert(t, store, 2, "sadcat", time.Now())

	ok, err = store.Exists(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := store.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = store.Count(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFindByContentRef(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	insert(t, store, 1, "sadcat", time.Now())

	name, err := store.FindByContentRef(ctx, 1, "ref-sadcat.png")
	require.NoError(t, err)
	assert.Equal(t, "sadcat", name)

	// Same ref, other tenant: not visible.
	_, err = store.FindByContentRef(ctx, 2, "ref-sadcat.png")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)
}

func TestDelete(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	insert(t, store, 1, "sadcat", time.Now())

	require.NoError(t, store.IncrementUsage(ctx, 1, 501, "sadcat"))
	require.NoError(t, store.Delete(ctx, 1, "sadcat"))
	assert.ErrorIs(t, store.Delete(ctx, 1, "sadcat"), simpleassets.ErrAssetNotFound)

	// Counters survive deletion and come back if the name is reused.
	insert(t, store, 1, "sadcat", time.Now())
	entries, err := store.List(ctx, 1, 501, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].TotalUseCount)
}

func TestRename(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	created := time.Now().UTC()
	insert(t, store, 1, "oldname", created)
	insert(t, store, 1, "taken", created)

	assert.ErrorIs(t, store.Rename(ctx, 1, "missing", "x"), simpleassets.ErrAssetNotFound)
	assert.ErrorIs(t, store.Rename(ctx, 1, "oldname", "taken"), simpleassets.ErrAssetExists)

	require.NoError(t, store.Rename(ctx, 1, "oldname", "newname"))

	asset, err := store.Get(ctx, 1, "newname")
	require.NoError(t, err)
	assert.Equal(t, "newname", asset.Name)
	assert.Equal(t, created, asset.CreatedAt)

	_, err = store.Get(ctx, 1, "oldname")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)
}

func TestReplaceContent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	created := time.Now().UTC()
	insert(t, store, 1, "sadcat", created)

	err := store.ReplaceContent(ctx, 1, "missing", 2002, "new.png")
	assert.ErrorIs(t, err, simpleassets.ErrAssetNotFound)

	require.NoError(t, store.ReplaceContent(ctx, 1, "sadcat", 2002, "new.png"))

	asset, err := store.Get(ctx, 1, "sadcat")
	require.NoError(t, err)
	assert.Equal(t, "new.png", asset.ContentRef)
	assert.Equal(t, int64(2002), asset.UploaderID)
	assert.Equal(t, created, asset.CreatedAt)
}

func TestIgnoreSpaces(t *testing.T) {
	store := memory.New(memory.WithIgnoreSpaces())
	ctx := context.Background()
	insert(t, store, 1, "sad cat", time.Now())

	// All spacings of the same letters hit the same asset.
	for _, lookup := range []string{"sad cat", "sadcat", "s a d c a t"} {
		asset, err := store.Get(ctx, 1, lookup)
		require.NoError(t, err, "lookup %q", lookup)
		assert.Equal(t, "sad cat", asset.Name)
	}

	err := store.Insert(ctx, &simpleassets.Asset{TenantID: 1, Name: "sadcat"})
	assert.ErrorIs(t, err, simpleassets.ErrAssetExists)

	// Renaming to a different spacing of the same name is allowed.
	require.NoError(t, store.Rename(ctx, 1, "sad cat", "sadcat"))
	asset, err := store.Get(ctx, 1, "sad cat")
	require.NoError(t, err)
	assert.Equal(t, "sadcat", asset.Name)
}

func TestListOrdering(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	insert(t, store, 1, "charlie", base)
	insert(t, store, 1, "alpha", base.Add(time.Hour))
	insert(t, store, 1, "bravo", base.Add(2*time.Hour))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementUsage(ctx, 1, 501, "bravo"))
	}
	require.NoError(t, store.IncrementUsage(ctx, 1, 502, "charlie"))

	entries, err := store.List(ctx, 1, 501, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Name ascending dominates use counts.
	assert.Equal(t, "alpha", entries[0].Name)
	assert.Equal(t, "bravo", entries[1].Name)
	assert.Equal(t, "charlie", entries[2].Name)

	assert.Equal(t, int64(3), entries[1].UserUseCount)
	assert.Equal(t, int64(3), entries[1].TotalUseCount)
	assert.Equal(t, int64(0), entries[2].UserUseCount)
	assert.Equal(t, int64(1), entries[2].TotalUseCount)
}

func TestListKeyword(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	now := time.Now()

	insert(t, store, 1, "sadcat", now)
	insert(t, store, 1, "happycat", now)
	insert(t, store, 1, "dog", now)

	entries, err := store.List(ctx, 1, 501, "cat")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "happycat", entries[0].Name)
	assert.Equal(t, "sadcat", entries[1].Name)

	entries, err = store.List(ctx, 1, 501, "bird")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Keyword matching is case sensitive.
	insert(t, store, 1, "SadCat", now)
	entries, err = store.List(ctx, 1, 501, "Cat")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "SadCat", entries[0].Name)
}

func TestIncrementUsageConcurrent(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	insert(t, store, 1, "sadcat", time.Now())

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = store.IncrementUsage(ctx, 1, 501, "sadcat")
			}
		}()
	}
	wg.Wait()

	entries, err := store.List(ctx, 1, 501, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(workers*perWorker), entries[0].TotalUseCount)
}
