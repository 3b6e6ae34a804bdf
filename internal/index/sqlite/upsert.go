package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// EntryRecord is the flattened shape the index stores and reads back,
// independent of which concrete Entry variant produced it.
type EntryRecord struct {
	ID          string
	KBName      string
	EntryType   string
	Title       string
	Body        string
	Summary     string
	FilePath    string
	Metadata    map[string]any
	CreatedBy   string
	ModifiedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tags        []string
	Sources     []entrymodel.Source
	Links       []entrymodel.Link
	ObjectRefs  []entrymodel.ObjectRef
}

// Upsert replaces the entry row identified by (id, kb_name) and
// resynchronizes every derived table, all inside one transaction so
// readers never observe partial state. created_by and created_at are
// preserved from the existing row when one exists; every other column is
// replaced wholesale.
func (s *Store) Upsert(ctx context.Context, rec EntryRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		createdBy, createdAt, err := existingAttribution(ctx, tx, rec.ID, rec.KBName)
		if err != nil {
			return err
		}
		if createdBy != "" {
			rec.CreatedBy = createdBy
		}
		if !createdAt.IsZero() {
			rec.CreatedAt = createdAt
		}

		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("index: marshal metadata: %w", err)
		}

		now := time.Now().UTC()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entry (id, kb_name, entry_type, title, body, summary, file_path,
				metadata, created_by, modified_by, created_at, updated_at, indexed_at, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id, kb_name) DO UPDATE SET
				entry_type = excluded.entry_type,
				title = excluded.title,
				body = excluded.body,
				summary = excluded.summary,
				file_path = excluded.file_path,
				metadata = excluded.metadata,
				created_by = excluded.created_by,
				modified_by = excluded.modified_by,
				created_at = excluded.created_at,
				updated_at = excluded.updated_at,
				indexed_at = excluded.indexed_at,
				content_hash = excluded.content_hash
		`, rec.ID, rec.KBName, rec.EntryType, rec.Title, rec.Body, rec.Summary, rec.FilePath,
			string(metaJSON), rec.CreatedBy, rec.ModifiedBy,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano), rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano), contentHash(rec))
		if err != nil {
			return fmt.Errorf("index: upsert entry: %w", err)
		}

		if err := syncTags(ctx, tx, rec.ID, rec.KBName, rec.Tags); err != nil {
			return err
		}
		if err := syncSources(ctx, tx, rec.ID, rec.KBName, rec.Sources); err != nil {
			return err
		}
		if err := syncLinks(ctx, tx, rec.ID, rec.KBName, rec.Links); err != nil {
			return err
		}
		if err := syncRefs(ctx, tx, rec.ID, rec.KBName, rec.ObjectRefs); err != nil {
			return err
		}
		if err := syncBlocks(ctx, tx, rec.ID, rec.KBName, rec.Body); err != nil {
			return err
		}
		if err := syncFTS(ctx, tx, rec); err != nil {
			return err
		}
		return markDirty(ctx, tx, rec.ID, rec.KBName)
	})
}

func existingAttribution(ctx context.Context, tx *sql.Tx, id, kbName string) (string, time.Time, error) {
	var createdBy, createdAt string
	err := tx.QueryRowContext(ctx,
		`SELECT created_by, created_at FROM entry WHERE id = ? AND kb_name = ?`, id, kbName,
	).Scan(&createdBy, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, fmt.Errorf("index: read existing attribution: %w", err)
	}
	parsed, _ := time.Parse(time.RFC3339Nano, createdAt)
	return createdBy, parsed, nil
}

// contentHash is a cheap fingerprint stored in the content_hash column, not
// a security hash: it is the sum of the body, title and summary lengths, so
// an edit that keeps those lengths yields the same value. Nothing reads the
// column back; incremental sync classifies files by mtime instead.
func contentHash(rec EntryRecord) string {
	return fmt.Sprintf("%x", len(rec.Body)+len(rec.Title)+len(rec.Summary))
}

// Delete removes the entry row and, via ON DELETE CASCADE, every derived
// row that referenced it.
func (s *Store) Delete(ctx context.Context, id, kbName string) (bool, error) {
	var removed bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM entry WHERE id = ? AND kb_name = ?`, id, kbName)
		if err != nil {
			return fmt.Errorf("index: delete entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("index: rows affected: %w", err)
		}
		removed = n > 0
		_, err = tx.ExecContext(ctx, `DELETE FROM entry_fts WHERE entry_id = ? AND kb_name = ?`, id, kbName)
		return err
	})
	return removed, err
}
