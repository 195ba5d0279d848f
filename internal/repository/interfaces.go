package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kosench/shortlinks/internal/model"
)

var (
	ErrLinkNotFound    = errors.New("link not found")
	ErrShortCodeExists = errors.New("short code already exists")
	ErrTagExists       = errors.New("tag already exists")
	ErrTagNotFound     = errors.New("tag not found")
)

type LinkRepository interface {
	// Create inserts link and fills its ID. ErrShortCodeExists on a taken code.
	Create(ctx context.Context, link *model.Link) error
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)
	GetByShortCode(ctx context.Context, shortCode string) (*model.Link, error)
	GetActiveByShortCode(ctx context.Context, shortCode string) (*model.Link, error)
	GetByShortCodeAndOwner(ctx context.Context, shortCode, ownerID string) (*model.Link, error)
	// Update persists original URL, tag and expiry of an existing link.
	Update(ctx context.Context, link *model.Link) error
	Delete(ctx context.Context, id int64) error
	// Deactivate clears the active flag. Returns false if the link was already inactive.
	Deactivate(ctx context.Context, id int64) (bool, error)
	RecordClick(ctx context.Context, id int64, at time.Time) (string, error)
	Search(ctx context.Context, filter model.SearchFilter) ([]model.Link, error)
	ListInactiveByOwner(ctx context.Context, ownerID string) ([]model.Link, error)
}

type TagRepository interface {
	GetByName(ctx context.Context, name string) (*model.Tag, error)
	// Create inserts tag and fills its ID. ErrTagExists if the name is taken in any case.
	Create(ctx context.Context, tag *model.Tag) error
}

// Reclaimer is the bulk side of the link store used by the sweeper.
type Reclaimer interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	PurgeInactive(ctx context.Context, expiredBefore time.Time) (int64, error)
}

type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
