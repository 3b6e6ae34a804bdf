// Package sqlite implements the derived index: a reconciling, query-only
// shadow of the Markdown corpus. Every row in it can be rebuilt from the
// files on disk; the database itself is never the source of truth.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofrs/flock"
)

// schemaVersion is the index's current migration level. Store.Open
// refuses to operate against a database stamped with a newer version than
// this binary knows about.
const schemaVersion = 1

// Store wraps the index database connection pool plus a single-writer
// lock file (writeMu, taken through withWriteLock). None of Store's write
// methods call withWriteLock, so concurrent writers, in this process or
// another, are serialized only by SQLite's own locking and busy timeout.
type Store struct {
	db       *sql.DB
	writeMu  *flock.Flock
	path     string
	log      *slog.Logger
}

// Open creates (if necessary) and migrates the index database at path,
// enabling WAL mode and a busy timeout tuned for multi-process contention.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(8)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("index: ping %s: %w", path, err)
	}

	s := &Store{
		db:      db,
		writeMu: flock.New(path + ".writelock"),
		path:    path,
		log:     log,
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWriteLock runs fn while holding the cross-process write lock file.
// Readers never take this lock, since SQLite's own WAL readers don't block
// on it; no write method in this package calls it either.
func (s *Store) withWriteLock(ctx context.Context, fn func() error) error {
	locked, err := s.writeMu.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("index: acquire write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("index: write lock busy")
	}
	defer s.writeMu.Unlock()
	return fn()
}

// withTx runs fn inside a transaction, rolling back on error or panic and
// committing otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("index: create schema_meta: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, `SELECT value FROM schema_meta WHERE key = 'version'`)
	var v string
	if err := row.Scan(&v); err == nil {
		fmt.Sscanf(v, "%d", &current)
	}

	if current > schemaVersion {
		return fmt.Errorf("index: database is at schema version %d, binary supports up to %d", current, schemaVersion)
	}

	for version := current + 1; version <= schemaVersion; version++ {
		stmts, ok := migrations[version]
		if !ok {
			continue
		}
		if err := s.withTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("index: migration %d: %w", version, err)
				}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO schema_meta (key, value) VALUES ('version', ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fmt.Sprintf("%d", version))
			return err
		}); err != nil {
			return err
		}
		s.log.Info("index migrated", "version", version)
	}
	return nil
}

// splitStatements is a small helper migrations use to keep their SQL as a
// single readable block instead of a slice literal of one-liners.
func splitStatements(block string) []string {
	var out []string
	for _, stmt := range strings.Split(block, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
