package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// syncFTS keeps entry_fts in lockstep with the entry row it mirrors. The
// virtual table's own "content" column carries the body text so it
// participates in full-text matching, but Search never projects it back
// out — callers get title/summary/snippet, not the raw body.
func syncFTS(ctx context.Context, tx *sql.Tx, rec EntryRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_fts WHERE entry_id = ? AND kb_name = ?`, rec.ID, rec.KBName); err != nil {
		return fmt.Errorf("index: clear fts row: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO entry_fts (entry_id, kb_name, title, summary, tags, content)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.KBName, rec.Title, rec.Summary, strings.Join(rec.Tags, " "), rec.Body)
	if err != nil {
		return fmt.Errorf("index: insert fts row: %w", err)
	}
	return nil
}

// SearchHit is one full-text match, deliberately body-free: the body
// column backs ranking and snippet generation only.
type SearchHit struct {
	ID      string
	KBName  string
	Title   string
	Summary string
	Snippet string
}

// Search runs an FTS5 MATCH query scoped to kbName ("" searches every KB)
// and returns up to limit hits ranked by FTS5's bm25 relevance.
func (s *Store) Search(ctx context.Context, kbName, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 50
	}
	args := []any{query}
	where := ""
	if kbName != "" {
		where = "AND kb_name = ?"
		args = append(args, kbName)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT entry_id, kb_name, title, summary, snippet(entry_fts, 5, '[', ']', '...', 10)
		FROM entry_fts
		WHERE entry_fts MATCH ? %s
		ORDER BY bm25(entry_fts)
		LIMIT ?
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ID, &h.KBName, &h.Title, &h.Summary, &h.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan search hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
