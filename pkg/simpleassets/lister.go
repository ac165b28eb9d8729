package simpleassets

import (
	"context"
)

// DefaultPageSize is the row count per display page.
const DefaultPageSize = 10

// ListSource is the read side the lister projects. Both MetadataStore and
// Service satisfy it.
type ListSource interface {
	List(ctx context.Context, tenantID, userID int64, keyword string) ([]ListEntry, error)
}

// Lister builds ordered, page-grouped views of a tenant's assets. The row
// ordering itself comes from MetadataStore.List; the lister only groups.
type Lister struct {
	store    ListSource
	pageSize int
}

// ListerOption configures a Lister.
type ListerOption func(*Lister)

// WithPageSize overrides the default page size.
func WithPageSize(size int) ListerOption {
	return func(l *Lister) {
		if size > 0 {
			l.pageSize = size
		}
	}
}

// NewLister creates a Lister over a list source.
func NewLister(store ListSource, opts ...ListerOption) *Lister {
	l := &Lister{
		store:    store,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PageSize returns the configured rows-per-page.
func (l *Lister) PageSize() int {
	return l.pageSize
}

// BuildPage returns the tenant's assets for the requesting user, optionally
// filtered by keyword, grouped into pages of the configured size. An empty
// result yields no pages.
func (l *Lister) BuildPage(ctx context.Context, tenantID, userID int64, keyword string) ([][]ListEntry, error) {
	entries, err := l.store.List(ctx, tenantID, userID, keyword)
	if err != nil {
		return nil, err
	}
	return l.Paginate(entries), nil
}

// Paginate groups already-ordered entries into pages.
func (l *Lister) Paginate(entries []ListEntry) [][]ListEntry {
	if len(entries) == 0 {
		return nil
	}

	pages := make([][]ListEntry, 0, (len(entries)+l.pageSize-1)/l.pageSize)
	for start := 0; start < len(entries); start += l.pageSize {
		end := start + l.pageSize
		if end > len(entries) {
			end = len(entries)
		}
		pages = append(pages, entries[start:end])
	}
	return pages
}
