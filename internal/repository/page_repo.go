package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/spacetraveling/internal/database"
	"github.com/spacetraveling/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var pageColumns = []string{"path", "kind", "uid", "content_type", "body", "prebuilt", "build_id", "built_at"}

// pageRepo is the postgres implementation of PageRepository
type pageRepo struct {
	db *database.DB
}

// NewPageRepo creates a new page repository
func NewPageRepo(db *database.DB) PageRepository {
	return &pageRepo{db: db}
}

// Get retrieves the page stored at path
func (r *pageRepo) Get(ctx context.Context, path string) (*models.Page, error) {
	query, args, err := psql.Select(pageColumns...).
		From("pages").
		Where(sq.Eq{"path": path}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var page models.Page
	var uid, buildID sql.NullString
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&page.Path, &page.Kind, &uid, &page.ContentType, &page.Body,
		&page.Prebuilt, &buildID, &page.BuiltAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	page.UID = uid.String
	page.BuildID = buildID.String
	return &page, nil
}

// Save upserts a page. A page generated on demand never replaces a
// prebuilt one.
func (r *pageRepo) Save(ctx context.Context, page *models.Page) error {
	if page.BuiltAt.IsZero() {
		page.BuiltAt = time.Now()
	}

	query, args, err := psql.Insert("pages").
		Columns(pageColumns...).
		Values(page.Path, page.Kind, nullString(page.UID), page.ContentType, page.Body,
			page.Prebuilt, nullString(page.BuildID), page.BuiltAt).
		Suffix(`ON CONFLICT (path) DO UPDATE SET
			kind = EXCLUDED.kind, uid = EXCLUDED.uid, content_type = EXCLUDED.content_type,
			body = EXCLUDED.body, prebuilt = EXCLUDED.prebuilt, build_id = EXCLUDED.build_id,
			built_at = EXCLUDED.built_at
			WHERE EXCLUDED.prebuilt OR NOT pages.prebuilt`).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// ListPaths returns every stored route in lexical order
func (r *pageRepo) ListPaths(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("path").From("pages").OrderBy("path").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// CountByKind returns the number of stored pages per kind
func (r *pageRepo) CountByKind(ctx context.Context) (map[models.PageKind]int, error) {
	query, args, err := psql.Select("kind", "COUNT(*)").From("pages").GroupBy("kind").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.PageKind]int)
	for rows.Next() {
		var kind models.PageKind
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// DeleteStale drops post rows left over from earlier builds
func (r *pageRepo) DeleteStale(ctx context.Context, buildID string) (int, error) {
	query, args, err := psql.Delete("pages").
		Where(sq.Eq{"kind": models.PageKindPost}).
		Where(sq.Or{sq.Eq{"build_id": nil}, sq.NotEq{"build_id": buildID}}).
		ToSql()
	if err != nil {
		return 0, err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
