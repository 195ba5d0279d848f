package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kosench/shortlinks/internal/database"
	"github.com/Kosench/shortlinks/internal/model"
)

type SQLTagRepository struct {
	db      *sql.DB
	dialect database.Dialect
}

func NewTagRepository(db *sql.DB, dialect database.Dialect) *SQLTagRepository {
	return &SQLTagRepository{db: db, dialect: dialect}
}

// GetByName ищет тег без учета регистра
func (r *SQLTagRepository) GetByName(ctx context.Context, name string) (*model.Tag, error) {
	query := r.dialect.Rebind(`SELECT id, name FROM tags WHERE LOWER(name) = LOWER(?)`)

	tag := &model.Tag{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, name).Scan(&tag.ID, &tag.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %q: %w", name, ErrTagNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	return tag, nil
}

func (r *SQLTagRepository) Create(ctx context.Context, tag *model.Tag) error {
	// Атомарная вставка: конфликт по lower(name) не возвращает строк
	query := r.dialect.Rebind(`
	INSERT INTO tags (name)
	VALUES (?)
	ON CONFLICT DO NOTHING
	RETURNING id
	`)

	err := conn(ctx, r.db).QueryRowContext(ctx, query, tag.Name).Scan(&tag.ID)
	if errors.Is(err, sql.ErrNoRows) || database.IsUniqueViolation(err) {
		return ErrTagExists
	}
	if err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}
