package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/storage/memory"
)

func TestSaveAndContains(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	data := []byte("png bytes")

	ref, err := backend.Save(ctx, 42, data, "png")
	if err != nil {
		t.Fatalf("failed to save blob: %v", err)
	}
	if want := simpleassets.ComputeRef(data, "png"); ref != want {
		t.Errorf("expected ref %s, got %s", want, ref)
	}
	if !backend.Contains(42, ref) {
		t.Error("expected blob to be stored")
	}
	if backend.Contains(43, ref) {
		t.Error("blob must not leak across tenants")
	}

	// Mutating the caller's slice must not change the stored copy.
	data[0] = 'x'
	if !backend.Contains(42, ref) {
		t.Error("expected blob to survive caller mutation")
	}
}

func TestSaveDuplicate(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	data := []byte("png bytes")

	first, err := backend.Save(ctx, 42, data, "png")
	if err != nil {
		t.Fatalf("failed to save blob: %v", err)
	}

	ref, err := backend.Save(ctx, 42, data, "png")
	if !errors.Is(err, simpleassets.ErrBlobExists) {
		t.Fatalf("expected ErrBlobExists, got %v", err)
	}
	if ref != first {
		t.Errorf("duplicate save should still report the ref, got %q", ref)
	}
	if backend.Len(42) != 1 {
		t.Errorf("expected 1 blob, got %d", backend.Len(42))
	}
}

func TestDeleteIdempotent(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	ref, err := backend.Save(ctx, 42, []byte("png bytes"), "png")
	if err != nil {
		t.Fatalf("failed to save blob: %v", err)
	}

	if err := backend.Delete(ctx, 42, ref); err != nil {
		t.Fatalf("failed to delete blob: %v", err)
	}
	if err := backend.Delete(ctx, 42, ref); err != nil {
		t.Fatalf("expected second delete to be a no-op, got %v", err)
	}
	if backend.Contains(42, ref) {
		t.Error("expected blob to be gone")
	}
}

func TestLocate(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	ref, err := backend.Save(ctx, 42, []byte("png bytes"), "png")
	if err != nil {
		t.Fatalf("failed to save blob: %v", err)
	}

	loc, err := backend.Locate(ctx, 42, ref)
	if err != nil {
		t.Fatalf("failed to locate blob: %v", err)
	}
	if !strings.HasPrefix(loc, "memory://42/") || !strings.HasSuffix(loc, ref) {
		t.Errorf("unexpected location %q", loc)
	}
}

func TestEnsureTenantScope(t *testing.T) {
	backend := memory.New()
	if err := backend.EnsureTenantScope(context.Background(), 42); err != nil {
		t.Fatalf("failed to ensure tenant scope: %v", err)
	}
	if backend.Len(42) != 0 {
		t.Errorf("expected empty tenant scope, got %d blobs", backend.Len(42))
	}
}
