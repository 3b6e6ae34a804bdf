package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// markDirty records that (id, kbName) changed, for consumers that export
// or react to incremental changes without re-scanning the whole corpus.
func markDirty(ctx context.Context, tx *sql.Tx, id, kbName string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO dirty_entry (entry_id, kb_name, marked_at) VALUES (?, ?, ?)
		ON CONFLICT(entry_id, kb_name) DO UPDATE SET marked_at = excluded.marked_at
	`, id, kbName, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("index: mark dirty: %w", err)
	}
	return nil
}

func clearDirty(ctx context.Context, tx *sql.Tx, id, kbName string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM dirty_entry WHERE entry_id = ? AND kb_name = ?`, id, kbName); err != nil {
		return fmt.Errorf("index: clear dirty: %w", err)
	}
	return nil
}

// DirtyEntry is one row from GetDirtyEntries.
type DirtyEntry struct {
	ID       string
	KBName   string
	MarkedAt time.Time
}

// GetDirtyEntries returns every dirty-marked entry, oldest mark first.
func (s *Store) GetDirtyEntries(ctx context.Context) ([]DirtyEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entry_id, kb_name, marked_at FROM dirty_entry ORDER BY marked_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("index: query dirty entries: %w", err)
	}
	defer rows.Close()

	var out []DirtyEntry
	for rows.Next() {
		var d DirtyEntry
		var marked string
		if err := rows.Scan(&d.ID, &d.KBName, &marked); err != nil {
			return nil, fmt.Errorf("index: scan dirty entry: %w", err)
		}
		d.MarkedAt, _ = time.Parse(time.RFC3339Nano, marked)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ClearDirty removes a dirty mark once a consumer has processed it.
func (s *Store) ClearDirty(ctx context.Context, id, kbName string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dirty_entry WHERE entry_id = ? AND kb_name = ?`, id, kbName)
	if err != nil {
		return fmt.Errorf("index: clear dirty: %w", err)
	}
	return nil
}
