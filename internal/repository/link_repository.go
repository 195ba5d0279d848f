package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kosench/shortlinks/internal/database"
	"github.com/Kosench/shortlinks/internal/model"
)

var (
	_ LinkRepository = (*SQLLinkRepository)(nil)
	_ Reclaimer      = (*SQLLinkRepository)(nil)
)

const linkColumns = `
	l.id, l.short_code, l.original_url, l.owner_id, l.tag_id, t.name,
	l.clicks, l.created_at, l.last_used_at, l.expires_at, l.is_active
	FROM links l
	LEFT JOIN tags t ON t.id = l.tag_id`

type SQLLinkRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewLinkRepository(db *sql.DB, dialect database.Dialect) *SQLLinkRepository {
	return &SQLLinkRepository{db: db, dialect: dialect}
}

// Create создает новую ссылку
func (r *SQLLinkRepository) Create(ctx context.Context, link *model.Link) error {
	// Атомарная вставка
	query := r.dialect.Rebind(`
	INSERT INTO links (short_code, original_url, owner_id, tag_id, created_at, clicks, expires_at, is_active)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (short_code) DO NOTHING
	RETURNING id
	`)

	err := conn(ctx, r.db).QueryRowContext(
		ctx,
		query,
		link.ShortCode,
		link.OriginalURL,
		nullString(link.OwnerID),
		nullInt64(link.TagID),
		link.CreatedAt.UTC(),
		link.ClickCount,
		link.ExpiresAt.UTC(),
		link.IsActive,
	).Scan(&link.ID)

	if errors.Is(err, sql.ErrNoRows) || database.IsUniqueViolation(err) {
		return ErrShortCodeExists
	}
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// ExistsByShortCode проверяет существование короткого кода, включая неактивные ссылки
func (r *SQLLinkRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	query := r.dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM links WHERE short_code = ?)`)

	var exists bool
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, shortCode).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code existence: %w", err)
	}

	return exists, nil
}

func (r *SQLLinkRepository) GetByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	return r.getOne(ctx, `WHERE l.short_code = ?`, shortCode)
}

func (r *SQLLinkRepository) GetActiveByShortCode(ctx context.Context, shortCode string) (*model.Link, error) {
	return r.getOne(ctx, `WHERE l.short_code = ? AND l.is_active = TRUE`, shortCode)
}

func (r *SQLLinkRepository) GetByShortCodeAndOwner(ctx context.Context, shortCode, ownerID string) (*model.Link, error) {
	return r.getOne(ctx, `WHERE l.short_code = ? AND l.owner_id = ?`, shortCode, ownerID)
}

func (r *SQLLinkRepository) getOne(ctx context.Context, where string, args ...any) (*model.Link, error) {
	query := r.dialect.Rebind(`SELECT ` + linkColumns + ` ` + where)

	link, err := scanLink(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

func (r *SQLLinkRepository) Update(ctx context.Context, link *model.Link) error {
	query := r.dialect.Rebind(`
	UPDATE links
	SET original_url = ?, tag_id = ?, expires_at = ?, is_active = ?
	WHERE id = ?
	`)

	res, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		link.OriginalURL,
		nullInt64(link.TagID),
		link.ExpiresAt.UTC(),
		link.IsActive,
		link.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}

	return expectAffected(res, "update link")
}

func (r *SQLLinkRepository) Delete(ctx context.Context, id int64) error {
	query := r.dialect.Rebind(`DELETE FROM links WHERE id = ?`)

	res, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	return expectAffected(res, "delete link")
}

func (r *SQLLinkRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	query := r.dialect.Rebind(`UPDATE links SET is_active = FALSE WHERE id = ? AND is_active = TRUE`)

	res, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate link: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to deactivate link: %w", err)
	}
	return n > 0, nil
}

// RecordClick увеличивает счетчик кликов и возвращает текущий URL
func (r *SQLLinkRepository) RecordClick(ctx context.Context, id int64, at time.Time) (string, error) {
	query := r.dialect.Rebind(`
	UPDATE links
	SET clicks = clicks + 1, last_used_at = ?
	WHERE id = ?
	RETURNING original_url
	`)

	var originalURL string
	err := conn(ctx, r.db).QueryRowContext(ctx, query, at.UTC(), id).Scan(&originalURL)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrLinkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to record click: %w", err)
	}

	return originalURL, nil
}

func (r *SQLLinkRepository) Search(ctx context.Context, filter model.SearchFilter) ([]model.Link, error) {
	var (
		where []string
		args  []any
	)

	if filter.OriginalURL != "" {
		where = append(where, `LOWER(l.original_url) LIKE LOWER(?) ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.OriginalURL)+"%")
	}
	if filter.TagName != "" {
		where = append(where, `LOWER(t.name) = LOWER(?)`)
		args = append(args, filter.TagName)
	}

	query := `SELECT ` + linkColumns
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY l.created_at DESC, l.id DESC`

	return r.list(ctx, query, args...)
}

func (r *SQLLinkRepository) ListInactiveByOwner(ctx context.Context, ownerID string) ([]model.Link, error) {
	query := `SELECT ` + linkColumns + `
	WHERE l.owner_id = ? AND l.is_active = FALSE
	ORDER BY l.created_at DESC, l.id DESC`

	return r.list(ctx, query, ownerID)
}

func (r *SQLLinkRepository) list(ctx context.Context, query string, args ...any) ([]model.Link, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []model.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}

	return links, nil
}

// DeactivateExpired снимает флаг активности со всех просроченных ссылок одним запросом
func (r *SQLLinkRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := r.dialect.Rebind(`UPDATE links SET is_active = FALSE WHERE is_active = TRUE AND expires_at <= ?`)

	res, err := conn(ctx, r.db).ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired links: %w", err)
	}
	return res.RowsAffected()
}

// PurgeInactive удаляет неактивные ссылки, истекшие до expiredBefore
func (r *SQLLinkRepository) PurgeInactive(ctx context.Context, expiredBefore time.Time) (int64, error) {
	query := r.dialect.Rebind(`DELETE FROM links WHERE is_active = FALSE AND expires_at <= ?`)

	res, err := conn(ctx, r.db).ExecContext(ctx, query, expiredBefore.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge inactive links: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*model.Link, error) {
	var (
		link     model.Link
		ownerID  sql.NullString
		tagID    sql.NullInt64
		tagName  sql.NullString
		lastUsed sql.NullTime
	)

	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&ownerID,
		&tagID,
		&tagName,
		&link.ClickCount,
		&link.CreatedAt,
		&lastUsed,
		&link.ExpiresAt,
		&link.IsActive,
	)
	if err != nil {
		return nil, err
	}

	if ownerID.Valid {
		link.OwnerID = &ownerID.String
	}
	if tagID.Valid {
		link.TagID = &tagID.Int64
	}
	if tagName.Valid {
		link.TagName = &tagName.String
	}
	if lastUsed.Valid {
		t := lastUsed.Time.UTC()
		link.LastUsedAt = &t
	}
	link.CreatedAt = link.CreatedAt.UTC()
	link.ExpiresAt = link.ExpiresAt.UTC()

	return &link, nil
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return ErrLinkNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
