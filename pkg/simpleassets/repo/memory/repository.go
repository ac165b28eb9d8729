// Package memory provides an in-memory simpleassets.MetadataStore, used for
// tests and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

type usageKey struct {
	tenantID int64
	userID   int64
	name     string
}

// Store implements simpleassets.MetadataStore using in-memory maps.
type Store struct {
	mu           sync.RWMutex
	assets       map[int64]map[string]*simpleassets.Asset // tenant -> comparison key -> asset
	usage        map[usageKey]int64
	ignoreSpaces bool
}

var _ simpleassets.MetadataStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIgnoreSpaces makes name comparisons fold spaces, matching the tenant
// expression option. Stored names keep their spacing.
func WithIgnoreSpaces() Option {
	return func(s *Store) {
		s.ignoreSpaces = true
	}
}

// New creates a new in-memory metadata store.
func New(opts ...Option) *Store {
	s := &Store{
		assets: make(map[int64]map[string]*simpleassets.Asset),
		usage:  make(map[usageKey]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(name string) string {
	if s.ignoreSpaces {
		return simpleassets.FoldName(name)
	}
	return name
}

func (s *Store) Get(ctx context.Context, tenantID int64, name string) (*simpleassets.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[tenantID][s.key(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}

	// Return a copy to prevent external modifications
	assetCopy := *asset
	return &assetCopy, nil
}

func (s *Store) Exists(ctx context.Context, tenantID int64, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.assets[tenantID][s.key(name)]
	return ok, nil
}

func (s *Store) FindByContentRef(ctx context.Context, tenantID int64, contentRef string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, asset := range s.assets[tenantID] {
		if asset.ContentRef == contentRef {
			return asset.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no asset references %s", simpleassets.ErrAssetNotFound, contentRef)
}

func (s *Store) Insert(ctx context.Context, asset *simpleassets.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.assets[asset.TenantID]
	if !ok {
		tenant = make(map[string]*simpleassets.Asset)
		s.assets[asset.TenantID] = tenant
	}

	key := s.key(asset.Name)
	if _, ok := tenant[key]; ok {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetExists, asset.Name)
	}

	assetCopy := *asset
	tenant[key] = &assetCopy
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(name)
	if _, ok := s.assets[tenantID][key]; !ok {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}

	// Usage counters are left behind on purpose.
	delete(s.assets[tenantID], key)
	return nil
}

func (s *Store) Rename(ctx context.Context, tenantID int64, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant := s.assets[tenantID]
	oldKey, newKey := s.key(oldName), s.key(newName)

	asset, ok := tenant[oldKey]
	if !ok {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, oldName)
	}
	if _, ok := tenant[newKey]; ok && newKey != oldKey {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetExists, newName)
	}

	asset.Name = newName
	delete(tenant, oldKey)
	tenant[newKey] = asset
	return nil
}

func (s *Store) ReplaceContent(ctx context.Context, tenantID int64, name string, uploaderID int64, contentRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[tenantID][s.key(name)]
	if !ok {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}

	asset.UploaderID = uploaderID
	asset.ContentRef = contentRef
	return nil
}

func (s *Store) Count(ctx context.Context, tenantID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.assets[tenantID]), nil
}

func (s *Store) List(ctx context.Context, tenantID, userID int64, keyword string) ([]simpleassets.ListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]simpleassets.ListEntry, 0, len(s.assets[tenantID]))
	for _, asset := range s.assets[tenantID] {
		if keyword != "" && !strings.Contains(asset.Name, keyword) {
			continue
		}

		entry := simpleassets.ListEntry{
			Name:       asset.Name,
			UploaderID: asset.UploaderID,
			CreatedAt:  asset.CreatedAt,
		}
		for key, count := range s.usage {
			if key.tenantID != tenantID || key.name != asset.Name {
				continue
			}
			entry.TotalUseCount += count
			if key.userID == userID {
				entry.UserUseCount += count
			}
		}
		entries = append(entries, entry)
	}

	// Name ascending, then total use count descending, then created_at
	// ascending. Pagination depends on this exact order.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		if entries[i].TotalUseCount != entries[j].TotalUseCount {
			return entries[i].TotalUseCount > entries[j].TotalUseCount
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

func (s *Store) IncrementUsage(ctx context.Context, tenantID, userID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usage[usageKey{tenantID: tenantID, userID: userID, name: name}]++
	return nil
}
