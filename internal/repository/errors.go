package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by single-row lookups that match nothing,
// whichever driver backs the repository.
var ErrNotFound = errors.New("record not found")

// ErrNeedsServicePrivilege is returned by schema changes on an anon store.
var ErrNeedsServicePrivilege = errors.New("schema changes need service privilege")

func translateNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
