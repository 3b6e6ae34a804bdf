package sqlite

import (
	"context"
	"fmt"
)

// RecordVersion inserts one commit-level version row, ignoring the insert
// if that (entry, commit) pair is already recorded.
func (s *Store) RecordVersion(ctx context.Context, entryID, kbName, commitHash, authorName, authorEmail, commitDate, message, changeType string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entry_version (entry_id, kb_name, commit_hash, author_name, author_email, commit_date, message, change_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id, kb_name, commit_hash) DO NOTHING
	`, entryID, kbName, commitHash, authorName, authorEmail, commitDate, message, changeType)
	if err != nil {
		return fmt.Errorf("index: record version %s: %w", commitHash, err)
	}
	return nil
}

// SetAttribution sets created_by only if it is currently unset, and
// always overwrites modified_by, matching Base.SetAttribution's
// preserve-on-update semantics for the index-side copy of those columns.
func (s *Store) SetAttribution(ctx context.Context, entryID, kbName, createdBy, modifiedBy string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE entry
		SET created_by = CASE WHEN created_by = '' THEN ? ELSE created_by END,
		    modified_by = ?
		WHERE id = ? AND kb_name = ?
	`, createdBy, modifiedBy, entryID, kbName)
	if err != nil {
		return fmt.Errorf("index: set attribution for %s: %w", entryID, err)
	}
	return nil
}

// Versions returns every recorded commit for (entryID, kbName), oldest
// first.
func (s *Store) Versions(ctx context.Context, entryID, kbName string) ([]map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT commit_hash, author_name, author_email, commit_date, message, change_type
		FROM entry_version WHERE entry_id = ? AND kb_name = ? ORDER BY commit_date ASC
	`, entryID, kbName)
	if err != nil {
		return nil, fmt.Errorf("index: versions for %s: %w", entryID, err)
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var hash, author, email, date, message, changeType string
		if err := rows.Scan(&hash, &author, &email, &date, &message, &changeType); err != nil {
			return nil, fmt.Errorf("index: scan version: %w", err)
		}
		out = append(out, map[string]string{
			"commit_hash": hash, "author_name": author, "author_email": email,
			"commit_date": date, "message": message, "change_type": changeType,
		})
	}
	return out, rows.Err()
}
