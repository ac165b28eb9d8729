// Package sqlite provides a SQLite simpleassets.MetadataStore suitable for
// single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-assets/pkg/simpleassets"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS asset (
    tenant_id   INTEGER NOT NULL,
    name        TEXT    NOT NULL,
    uploader_id INTEGER NOT NULL,
    content_ref TEXT    NOT NULL,
    created_at  TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, name)
);

CREATE TABLE IF NOT EXISTS asset_use (
    tenant_id  INTEGER NOT NULL,
    user_id    INTEGER NOT NULL,
    asset_name TEXT    NOT NULL,
    use_count  INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (tenant_id, user_id, asset_name)
);
`

// Store implements simpleassets.MetadataStore using SQLite.
type Store struct {
	db           *sql.DB
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

// Open opens (creating if needed) a SQLite metadata store at path and
// bootstraps the schema.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Pragmas ride on the DSN so every pooled connection gets them.
	// case_sensitive_like keeps keyword matching aligned with the other
	// backends; SQLite's LIKE is case-insensitive for ASCII by default.
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=case_sensitive_like(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func (s *Store) wrapError(op string, err error) error {
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %v", simpleassets.ErrAssetExists, err)
	}
	return &simpleassets.PersistenceError{Op: op, Err: err}
}

func (s *Store) nameExpr(column, name string) (string, string) {
	if s.ignoreSpaces {
		return fmt.Sprintf("replace(%s, ' ', '')", column), simpleassets.FoldName(name)
	}
	return column, name
}

func (s *Store) Get(ctx context.Context, tenantID int64, name string) (*simpleassets.Asset, error) {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(`
        SELECT tenant_id, name, uploader_id, content_ref, created_at
        FROM asset WHERE tenant_id = ? AND %s = ?`, expr)

	var asset simpleassets.Asset
	err := s.db.QueryRowContext(ctx, query, tenantID, param).Scan(
		&asset.TenantID, &asset.Name, &asset.UploaderID, &asset.ContentRef, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
		}
		return nil, s.wrapError("get asset", err)
	}

	return &asset, nil
}

func (s *Store) Exists(ctx context.Context, tenantID int64, name string) (bool, error) {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM asset WHERE tenant_id = ? AND %s = ?)`, expr)

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, tenantID, param).Scan(&exists); err != nil {
		return false, s.wrapError("asset exists", err)
	}
	return exists, nil
}

func (s *Store) FindByContentRef(ctx context.Context, tenantID int64, contentRef string) (string, error) {
	query := `SELECT name FROM asset WHERE tenant_id = ? AND content_ref = ?`

	var name string
	err := s.db.QueryRowContext(ctx, query, tenantID, contentRef).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: no asset references %s", simpleassets.ErrAssetNotFound, contentRef)
		}
		return "", s.wrapError("find by content ref", err)
	}
	return name, nil
}

func (s *Store) Insert(ctx context.Context, asset *simpleassets.Asset) error {
	query := `
        INSERT INTO asset (tenant_id, name, uploader_id, content_ref, created_at)
        VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		asset.TenantID, asset.Name, asset.UploaderID, asset.ContentRef, asset.CreatedAt)
	if err != nil {
		return s.wrapError("insert asset", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID int64, name string) error {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(`DELETE FROM asset WHERE tenant_id = ? AND %s = ?`, expr)

	res, err := s.db.ExecContext(ctx, query, tenantID, param)
	if err != nil {
		return s.wrapError("delete asset", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, tenantID int64, oldName, newName string) error {
	expr, param := s.nameExpr("name", oldName)
	query := fmt.Sprintf(`UPDATE asset SET name = ? WHERE tenant_id = ? AND %s = ?`, expr)

	res, err := s.db.ExecContext(ctx, query, newName, tenantID, param)
	if err != nil {
		return s.wrapError("rename asset", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, oldName)
	}
	return nil
}

func (s *Store) ReplaceContent(ctx context.Context, tenantID int64, name string, uploaderID int64, contentRef string) error {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(`
        UPDATE asset SET uploader_id = ?, content_ref = ?
        WHERE tenant_id = ? AND %s = ?`, expr)

	res, err := s.db.ExecContext(ctx, query, uploaderID, contentRef, tenantID, param)
	if err != nil {
		return s.wrapError("replace asset content", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset WHERE tenant_id = ?`, tenantID).Scan(&count)
	if err != nil {
		return 0, s.wrapError("count assets", err)
	}
	return count, nil
}

func escapeLike(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(keyword)
}

func (s *Store) List(ctx context.Context, tenantID, userID int64, keyword string) ([]simpleassets.ListEntry, error) {
	query := `
        SELECT a.name, a.uploader_id, a.created_at,
               COALESCE(SUM(CASE WHEN u.user_id = ? THEN u.use_count ELSE 0 END), 0),
               COALESCE(SUM(u.use_count), 0) AS total_uses
        FROM asset a
        LEFT JOIN asset_use u
               ON u.tenant_id = a.tenant_id AND u.asset_name = a.name
        WHERE a.tenant_id = ?`
	args := []interface{}{userID, tenantID}

	if keyword != "" {
		query += ` AND a.name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(keyword)+"%")
	}

	query += `
        GROUP BY a.tenant_id, a.name
        ORDER BY a.name ASC, total_uses DESC, a.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError("list assets", err)
	}
	defer rows.Close()

	var entries []simpleassets.ListEntry
	for rows.Next() {
		var entry simpleassets.ListEntry
		if err := rows.Scan(
			&entry.Name, &entry.UploaderID, &entry.CreatedAt,
			&entry.UserUseCount, &entry.TotalUseCount); err != nil {
			return nil, s.wrapError("scan list entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrapError("iterate list rows", err)
	}

	return entries, nil
}

func (s *Store) IncrementUsage(ctx context.Context, tenantID, userID int64, name string) error {
	query := `
        INSERT INTO asset_use (tenant_id, user_id, asset_name, use_count)
        VALUES (?, ?, ?, 1)
        ON CONFLICT (tenant_id, user_id, asset_name)
        DO UPDATE SET use_count = use_count + 1`

	if _, err := s.db.ExecContext(ctx, query, tenantID, userID, name); err != nil {
		return s.wrapError("increment usage", err)
	}
	return nil
}
