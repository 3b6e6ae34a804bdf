package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RegisterKB upserts the kb table row describing one knowledge base's
// static configuration. Called once at full-reindex time and whenever
// global config changes a KB's declared properties.
func (s *Store) RegisterKB(ctx context.Context, name, rootPath, kbType, description string, readOnly bool, shortname string, ephemeral bool, ttlSeconds int64, createdAtTS time.Time, repoName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kb (name, root_path, kb_type, description, read_only, shortname, ephemeral, ttl_seconds, created_at_ts, repo_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			root_path = excluded.root_path,
			kb_type = excluded.kb_type,
			description = excluded.description,
			read_only = excluded.read_only,
			shortname = excluded.shortname,
			ephemeral = excluded.ephemeral,
			ttl_seconds = excluded.ttl_seconds,
			created_at_ts = excluded.created_at_ts,
			repo_name = excluded.repo_name
	`, name, rootPath, kbType, description, readOnly, shortname, ephemeral, ttlSeconds,
		createdAtTS.UTC().Format(time.RFC3339Nano), repoName)
	if err != nil {
		return fmt.Errorf("index: register kb %s: %w", name, err)
	}
	return nil
}

// DeregisterKB removes a KB row and every entry row (and their derived
// rows, via cascade) belonging to it. Used for ephemeral KB garbage
// collection once Expired returns true.
func (s *Store) DeregisterKB(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry WHERE kb_name = ?`, name); err != nil {
			return fmt.Errorf("index: deregister kb %s entries: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM entry_fts WHERE kb_name = ?`, name); err != nil {
			return fmt.Errorf("index: deregister kb %s fts rows: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kb WHERE name = ?`, name); err != nil {
			return fmt.Errorf("index: deregister kb %s: %w", name, err)
		}
		return nil
	})
}

// ShortnameIndex returns the shortname -> full-name map over every
// registered KB with a non-empty shortname, for wikilink.Context.
func (s *Store) ShortnameIndex(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, shortname FROM kb WHERE shortname IS NOT NULL AND shortname != ''`)
	if err != nil {
		return nil, fmt.Errorf("index: shortname index: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, shortname string
		if err := rows.Scan(&name, &shortname); err != nil {
			return nil, fmt.Errorf("index: scan shortname row: %w", err)
		}
		out[shortname] = name
	}
	return out, rows.Err()
}

// KnownKBNames returns the set of registered full KB names.
func (s *Store) KnownKBNames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM kb`)
	if err != nil {
		return nil, fmt.Errorf("index: known kb names: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("index: scan kb name: %w", err)
		}
		out[name] = true
	}
	return out, rows.Err()
}

// IndexState is the minimal snapshot reconciliation needs per entry:
// its file path and the UTC instant it was last indexed.
type IndexState struct {
	ID        string
	FilePath  string
	IndexedAt time.Time
}

// IndexStateForKB returns {id -> (file_path, indexed_at)} for every entry
// currently indexed under kbName, the baseline incremental sync diffs
// the filesystem walk against.
func (s *Store) IndexStateForKB(ctx context.Context, kbName string) (map[string]IndexState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, file_path, indexed_at FROM entry WHERE kb_name = ?`, kbName)
	if err != nil {
		return nil, fmt.Errorf("index: index state for %s: %w", kbName, err)
	}
	defer rows.Close()

	out := map[string]IndexState{}
	for rows.Next() {
		var st IndexState
		var indexedAt string
		if err := rows.Scan(&st.ID, &st.FilePath, &indexedAt); err != nil {
			return nil, fmt.Errorf("index: scan index state: %w", err)
		}
		st.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
		out[st.ID] = st
	}
	return out, rows.Err()
}
