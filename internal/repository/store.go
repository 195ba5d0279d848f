package repository

import (
	"database/sql"

	"github.com/Kosench/shortlinks/internal/database"
)

// Store groups the record store collaborators sharing one database.
type Store struct {
	Links     LinkRepository
	Tags      TagRepository
	Reclaimer Reclaimer
	Tx        TxManager
}

func NewStore(db *sql.DB, dialect database.Dialect) *Store {
	links := NewLinkRepository(db, dialect)
	return &Store{
		Links:     links,
		Tags:      NewTagRepository(db, dialect),
		Reclaimer: links,
		Tx:        NewTxManager(db),
	}
}
