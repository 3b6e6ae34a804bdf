package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the index store: the failure conditions a
// derived SQLite layer sitting over another source of truth (the
// Markdown corpus) needs to distinguish from each other.
var (
	ErrNotFound  = errors.New("index: not found")
	ErrConflict  = errors.New("index: conflict")
	ErrReadOnly  = errors.New("index: read-only")
	ErrValidation = errors.New("index: validation failed")
)

// wrapDBError converts sql.ErrNoRows into ErrNotFound and attaches op
// context to every other error, so callers can errors.Is against the
// sentinels regardless of which query produced them.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
