package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/markramm/pyrite/internal/wikilink"
)

// WikilinkLookup adapts a Store to wikilink.Lookup, binding it to a fixed
// context so resolution runs synchronously without a context.Context
// threaded through the interface (resolution is called from hot loops
// during reindex; a bound background context keeps the call sites terse).
type WikilinkLookup struct {
	Store *Store
	Ctx   context.Context
}

func (l WikilinkLookup) FindByID(kbName, id string) (wikilink.Candidate, bool) {
	var title string
	err := l.Store.db.QueryRowContext(l.Ctx,
		`SELECT title FROM entry WHERE id = ? AND kb_name = ?`, id, kbName).Scan(&title)
	if err != nil {
		return wikilink.Candidate{}, false
	}
	return wikilink.Candidate{ID: id, KBName: kbName, Title: title}, true
}

func (l WikilinkLookup) FindByTitle(kbName, title string) []wikilink.Candidate {
	rows, err := l.Store.db.QueryContext(l.Ctx,
		`SELECT id, title FROM entry WHERE kb_name = ? AND title = ? COLLATE NOCASE ORDER BY id`, kbName, title)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []wikilink.Candidate
	for rows.Next() {
		var c wikilink.Candidate
		if err := rows.Scan(&c.ID, &c.Title); err == nil {
			c.KBName = kbName
			out = append(out, c)
		}
	}
	return out
}

// FindByIDs reports which of ids exist in kbName via one IN (...) query,
// the batch-resolution fast path.
func (l WikilinkLookup) FindByIDs(kbName string, ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out
	}
	for _, id := range ids {
		out[id] = false
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, kbName)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`SELECT id FROM entry WHERE kb_name = ? AND id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := l.Store.db.QueryContext(l.Ctx, query, args...)
	if err != nil {
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			out[id] = true
		}
	}
	return out
}

func (l WikilinkLookup) FindByAlias(kbName, alias string) []wikilink.Candidate {
	rows, err := l.Store.db.QueryContext(l.Ctx, `
		SELECT id, title FROM entry
		WHERE kb_name = ?
		  AND EXISTS (
			SELECT 1 FROM json_each(json_extract(metadata, '$.aliases'))
			WHERE value = ? COLLATE NOCASE
		  )
		ORDER BY id
	`, kbName, alias)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []wikilink.Candidate
	for rows.Next() {
		var c wikilink.Candidate
		if err := rows.Scan(&c.ID, &c.Title); err == nil {
			c.KBName = kbName
			out = append(out, c)
		}
	}
	return out
}

// Backlink is one entry that links to a given target.
type Backlink struct {
	SourceID string
	SourceKB string
	Relation string
	Note     string
}

// Backlinks returns every link row pointing at (targetID, targetKB).
func (s *Store) Backlinks(ctx context.Context, targetID, targetKB string) ([]Backlink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, source_kb, relation, note FROM link
		WHERE target_id = ? AND target_kb = ?
		ORDER BY source_kb, source_id
	`, targetID, targetKB)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []Backlink
	for rows.Next() {
		var b Backlink
		if err := rows.Scan(&b.SourceID, &b.SourceKB, &b.Relation, &b.Note); err != nil {
			return nil, fmt.Errorf("index: scan backlink: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// WantedPages finds every link target with no corresponding entry row and
// aggregates them via wikilink.AggregateWanted.
func (s *Store) WantedPages(ctx context.Context) ([]wikilink.WantedPage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.target_id, l.target_kb, l.source_id
		FROM link l
		LEFT JOIN entry e ON e.id = l.target_id AND e.kb_name = l.target_kb
		WHERE e.id IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("index: wanted pages: %w", err)
	}
	defer rows.Close()

	var refs []wikilink.UnresolvedRef
	for rows.Next() {
		var r wikilink.UnresolvedRef
		if err := rows.Scan(&r.TargetID, &r.TargetKB, &r.SourceEntryID); err != nil {
			return nil, fmt.Errorf("index: scan wanted ref: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return wikilink.AggregateWanted(refs), nil
}

// GetEntry returns the stored record for (id, kbName), with Metadata
// unmarshaled back into a map and the timestamp columns parsed, so a
// caller sees the same shape Upsert was given.
func (s *Store) GetEntry(ctx context.Context, id, kbName string) (EntryRecord, error) {
	var rec EntryRecord
	var metaJSON, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kb_name, entry_type, title, body, summary, file_path, metadata,
		       created_by, modified_by, created_at, updated_at
		FROM entry WHERE id = ? AND kb_name = ?
	`, id, kbName).Scan(&rec.ID, &rec.KBName, &rec.EntryType, &rec.Title, &rec.Body, &rec.Summary,
		&rec.FilePath, &metaJSON, &rec.CreatedBy, &rec.ModifiedBy, &createdAt, &updatedAt)
	if err != nil {
		return EntryRecord{}, wrapDBError(fmt.Sprintf("get entry %s", id), err)
	}

	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return EntryRecord{}, fmt.Errorf("index: unmarshal metadata for %s: %w", id, err)
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}

	tags, err := s.entryTags(ctx, id, kbName)
	if err != nil {
		return EntryRecord{}, err
	}
	rec.Tags = tags

	return rec, nil
}

func (s *Store) entryTags(ctx context.Context, id, kbName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag_name FROM entry_tag WHERE entry_id = ? AND kb_name = ? ORDER BY tag_name`, id, kbName)
	if err != nil {
		return nil, fmt.Errorf("index: read tags for %s: %w", id, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("index: scan tag for %s: %w", id, err)
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}
