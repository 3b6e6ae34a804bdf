package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ClaimTask performs the compare-and-swap claim primitive: metadata.status
// and metadata.assignee are set only where the current status is "open"
// or absent, via a single UPDATE ... WHERE so the database itself
// arbitrates the race rather than a read-then-write round trip.
// claimed reports whether this call won the race; when it didn't,
// currentStatus carries what the loser observed so the caller can report
// it without parsing an error string.
func (s *Store) ClaimTask(ctx context.Context, id, kbName, assignee string) (claimed bool, currentStatus string, err error) {
	txErr := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, execErr := tx.ExecContext(ctx, `
			UPDATE entry
			SET metadata = json_set(metadata, '$.status', 'claimed', '$.assignee', ?),
			    updated_at = ?
			WHERE id = ? AND kb_name = ?
			  AND (json_extract(metadata, '$.status') IS NULL OR json_extract(metadata, '$.status') = 'open')
		`, assignee, now, id, kbName)
		if execErr != nil {
			return fmt.Errorf("index: claim update: %w", execErr)
		}

		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return fmt.Errorf("index: claim rows affected: %w", raErr)
		}
		if affected == 0 {
			var current sql.NullString
			scanErr := tx.QueryRowContext(ctx,
				`SELECT json_extract(metadata, '$.status') FROM entry WHERE id = ? AND kb_name = ?`,
				id, kbName).Scan(&current)
			if scanErr != nil {
				return wrapDBError(fmt.Sprintf("claim %s", id), scanErr)
			}
			currentStatus = current.String
			if currentStatus == "" {
				currentStatus = "open"
			}
			return nil
		}

		claimed = true
		return markDirty(ctx, tx, id, kbName)
	})
	return claimed, currentStatus, txErr
}

// RevertClaim undoes a winning ClaimTask when the caller's subsequent file
// mirror write fails: it resets status back to "open" and clears assignee,
// conditioned on the row still showing status=claimed so a revert can
// never clobber a state some other writer has already moved past.
func (s *Store) RevertClaim(ctx context.Context, id, kbName string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err := tx.ExecContext(ctx, `
			UPDATE entry
			SET metadata = json_set(metadata, '$.status', 'open', '$.assignee', ''),
			    updated_at = ?
			WHERE id = ? AND kb_name = ? AND json_extract(metadata, '$.status') = 'claimed'
		`, now, id, kbName)
		if err != nil {
			return fmt.Errorf("index: revert claim: %w", err)
		}
		return markDirty(ctx, tx, id, kbName)
	})
}

// SiblingStatuses returns the metadata.status value of every entry in
// kbName whose parent_task equals parentID, for rollup_parent's
// all-children-done check.
func (s *Store) SiblingStatuses(ctx context.Context, parentID, kbName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT json_extract(metadata, '$.status')
		FROM entry
		WHERE kb_name = ? AND json_extract(metadata, '$.parent_task') = ?
	`, kbName, parentID)
	if err != nil {
		return nil, fmt.Errorf("index: sibling statuses: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var status sql.NullString
		if err := rows.Scan(&status); err != nil {
			return nil, fmt.Errorf("index: scan sibling status: %w", err)
		}
		out = append(out, status.String)
	}
	return out, rows.Err()
}
