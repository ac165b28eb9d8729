// Package postgres provides a PostgreSQL simpleassets.MetadataStore backed by
// pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// Schema creates the asset tables. Apply it once per database before
// constructing a Store.
const Schema = `
CREATE TABLE IF NOT EXISTS asset (
    tenant_id   BIGINT       NOT NULL,
    name        TEXT         NOT NULL,
    uploader_id BIGINT       NOT NULL,
    content_ref TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL,
    PRIMARY KEY (tenant_id, name)
);

CREATE TABLE IF NOT EXISTS asset_use (
    tenant_id  BIGINT  NOT NULL,
    user_id    BIGINT  NOT NULL,
    asset_name TEXT    NOT NULL,
    use_count  BIGINT  NOT NULL DEFAULT 0,
    PRIMARY KEY (tenant_id, user_id, asset_name)
);
`

// DBTX is satisfied by both a pgx connection pool and a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements simpleassets.MetadataStore using PostgreSQL.
type Store struct {
	db           DBTX
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

// New creates a new PostgreSQL metadata store.
func New(db DBTX, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithPool creates a new PostgreSQL metadata store over a connection pool.
func NewWithPool(pool *pgxpool.Pool, opts ...Option) *Store {
	return New(pool, opts...)
}

// EnsureSchema applies Schema. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return s.wrapError("ensure schema", err)
	}
	return nil
}

// nameExpr returns the comparison expression for a name column and the
// matching parameter value.
func (s *Store) nameExpr(column, name string) (string, string) {
	if s.ignoreSpaces {
		return fmt.Sprintf("replace(%s, ' ', '')", column), simpleassets.FoldName(name)
	}
	return column, name
}

func (s *Store) wrapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", simpleassets.ErrAssetExists, pgErr.ConstraintName)
	}
	return &simpleassets.PersistenceError{Op: op, Err: err}
}

func (s *Store) Get(ctx context.Context, tenantID int64, name string) (*simpleassets.Asset, error) {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(`
        SELECT tenant_id, name, uploader_id, content_ref, created_at
        FROM asset WHERE tenant_id = $1 AND %s = $2`, expr)

	var asset simpleassets.Asset
	err := s.db.QueryRow(ctx, query, tenantID, param).Scan(
		&asset.TenantID, &asset.Name, &asset.UploaderID, &asset.ContentRef, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
		}
		return nil, s.wrapError("get asset", err)
	}

	return &asset, nil
}

func (s *Store) Exists(ctx context.Context, tenantID int64, name string) (bool, error) {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM asset WHERE tenant_id = $1 AND %s = $2)`, expr)

	var exists bool
	if err := s.db.QueryRow(ctx, query, tenantID, param).Scan(&exists); err != nil {
		return false, s.wrapError("asset exists", err)
	}
	return exists, nil
}

func (s *Store) FindByContentRef(ctx context.Context, tenantID int64, contentRef string) (string, error) {
	query := `SELECT name FROM asset WHERE tenant_id = $1 AND content_ref = $2`

	var name string
	err := s.db.QueryRow(ctx, query, tenantID, contentRef).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: no asset references %s", simpleassets.ErrAssetNotFound, contentRef)
		}
		return "", s.wrapError("find by content ref", err)
	}
	return name, nil
}

func (s *Store) Insert(ctx context.Context, asset *simpleassets.Asset) error {
	query := `
        INSERT INTO asset (tenant_id, name, uploader_id, content_ref, created_at)
        VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query,
		asset.TenantID, asset.Name, asset.UploaderID, asset.ContentRef, asset.CreatedAt)
	if err != nil {
		return s.wrapError("insert asset", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID int64, name string) error {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(`DELETE FROM asset WHERE tenant_id = $1 AND %s = $2`, expr)

	tag, err := s.db.Exec(ctx, query, tenantID, param)
	if err != nil {
		return s.wrapError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, tenantID int64, oldName, newName string) error {
	expr, param := s.nameExpr("name", oldName)
	query := fmt.Sprintf(`UPDATE asset SET name = $1 WHERE tenant_id = $2 AND %s = $3`, expr)

	tag, err := s.db.Exec(ctx, query, newName, tenantID, param)
	if err != nil {
		return s.wrapError("rename asset", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, oldName)
	}
	return nil
}

func (s *Store) ReplaceContent(ctx context.Context, tenantID int64, name string, uploaderID int64, contentRef string) error {
	expr, param := s.nameExpr("name", name)
	query := fmt.Sprintf(`
        UPDATE asset SET uploader_id = $1, content_ref = $2
        WHERE tenant_id = $3 AND %s = $4`, expr)

	tag, err := s.db.Exec(ctx, query, uploaderID, contentRef, tenantID, param)
	if err != nil {
		return s.wrapError("replace asset content", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", simpleassets.ErrAssetNotFound, name)
	}
	return nil
}

func (s *Store) Count(ctx context.Context, tenantID int64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM asset WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		return 0, s.wrapError("count assets", err)
	}
	return count, nil
}

// escapeLike escapes LIKE metacharacters so a keyword matches literally.
func escapeLike(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(keyword)
}

func (s *Store) List(ctx context.Context, tenantID, userID int64, keyword string) ([]simpleassets.ListEntry, error) {
	query := `
        SELECT a.name, a.uploader_id, a.created_at,
               COALESCE(SUM(u.use_count) FILTER (WHERE u.user_id = $2), 0),
               COALESCE(SUM(u.use_count), 0)
        FROM asset a
        LEFT JOIN asset_use u
               ON u.tenant_id = a.tenant_id AND u.asset_name = a.name
        WHERE a.tenant_id = $1`
	args := []interface{}{tenantID, userID}

	if keyword != "" {
		query += ` AND a.name LIKE $3 ESCAPE '\'`
		args = append(args, "%"+escapeLike(keyword)+"%")
	}

	query += `
        GROUP BY a.name, a.uploader_id, a.created_at
        ORDER BY a.name ASC, COALESCE(SUM(u.use_count), 0) DESC, a.created_at ASC`

	rows, err := s.db.Query(ctx, query, args...)
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
        VALUES ($1, $2, $3, 1)
        ON CONFLICT (tenant_id, user_id, asset_name)
        DO UPDATE SET use_count = asset_use.use_count + 1`

	if _, err := s.db.Exec(ctx, query, tenantID, userID, name); err != nil {
		return s.wrapError("increment usage", err)
	}
	return nil
}
