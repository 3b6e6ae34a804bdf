package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/frontmatter"
	"github.com/markramm/pyrite/internal/wikilink"
)

// syncTags replaces the full set of entry_tag rows for (id, kbName),
// ensuring each tag name exists in the tag table first.
func syncTags(ctx context.Context, tx *sql.Tx, id, kbName string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_tag WHERE entry_id = ? AND kb_name = ?`, id, kbName); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	seen := map[string]bool{}
	for _, tag := range tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		if _, err := tx.ExecContext(ctx, `INSERT INTO tag (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, tag); err != nil {
			return fmt.Errorf("index: insert tag %s: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_tag (entry_id, kb_name, tag_name) VALUES (?, ?, ?)`, id, kbName, tag); err != nil {
			return fmt.Errorf("index: link tag %s: %w", tag, err)
		}
	}
	return nil
}

// syncSources replaces the source rows wholesale, preserving declared order
// via the position column.
func syncSources(ctx context.Context, tx *sql.Tx, id, kbName string, sources []entrymodel.Source) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM source WHERE entry_id = ? AND kb_name = ?`, id, kbName); err != nil {
		return fmt.Errorf("index: clear sources: %w", err)
	}
	for i, src := range sources {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO source (entry_id, kb_name, position, title, url, verified, note)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, kbName, i, src.Title, src.URL, src.Verified, src.Note); err != nil {
			return fmt.Errorf("index: insert source %d: %w", i, err)
		}
	}
	return nil
}

// syncLinks replaces the link rows with the frontmatter-declared links;
// body wikilinks/transclusions are added afterwards by syncLinksFromBody
// (called from syncBlocks). Duplicates (same source, target, relation) are
// deduplicated on insert since link is keyed on that tuple.
func syncLinks(ctx context.Context, tx *sql.Tx, id, kbName string, declared []entrymodel.Link) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM link WHERE source_id = ? AND source_kb = ?`, id, kbName); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}

	type linkKey struct{ targetID, targetKB, relation string }
	seen := map[linkKey]bool{}

	insert := func(targetID, targetKB, relation, note string) error {
		if targetID == "" {
			return nil
		}
		if targetKB == "" {
			targetKB = kbName
		}
		if targetID == id && targetKB == kbName {
			return nil
		}
		k := linkKey{targetID, targetKB, relation}
		if seen[k] {
			return nil
		}
		seen[k] = true
		_, err := tx.ExecContext(ctx, `
			INSERT INTO link (source_id, source_kb, target_id, target_kb, relation, note)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, kbName, targetID, targetKB, relation, note)
		if err != nil {
			return fmt.Errorf("index: insert link to %s: %w", targetID, err)
		}
		return nil
	}

	for _, l := range declared {
		if err := insert(l.Target, l.TargetKB, l.Relation, l.Note); err != nil {
			return err
		}
	}

	return nil
}

// syncLinksFromBody extracts wikilinks/transclusions from an entry's body
// and syncs them on top of declared links; separated from syncLinks so
// the derived-table writer can be exercised without re-parsing the body
// when only frontmatter-declared links changed (not currently used that
// way, but kept as the natural split point).
func syncLinksFromBody(ctx context.Context, tx *sql.Tx, id, kbName, body string) error {
	for _, l := range wikilink.Parse(body) {
		relation := "wikilink"
		if l.Kind == wikilink.KindTransclude {
			relation = "transclusion"
		}
		note := ""
		switch {
		case l.Heading != "":
			note = "#" + l.Heading
		case l.BlockID != "":
			note = "^" + l.BlockID
		}
		targetKB := l.KBPrefix
		if targetKB == "" {
			targetKB = kbName
		}
		if l.Target == id && targetKB == kbName {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO link (source_id, source_kb, target_id, target_kb, relation, note)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_id, source_kb, target_id, target_kb, relation) DO UPDATE SET note = excluded.note
		`, id, kbName, l.Target, targetKB, relation, note)
		if err != nil {
			return fmt.Errorf("index: insert body link to %s: %w", l.Target, err)
		}
	}
	return nil
}

func syncRefs(ctx context.Context, tx *sql.Tx, id, kbName string, refs []entrymodel.ObjectRef) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_ref WHERE entry_id = ? AND kb_name = ?`, id, kbName); err != nil {
		return fmt.Errorf("index: clear refs: %w", err)
	}
	for _, r := range refs {
		targetKB := r.TargetKB
		if targetKB == "" {
			targetKB = kbName
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entry_ref (entry_id, kb_name, field_name, target_id, target_kb, target_type)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, kbName, r.FieldName, r.TargetID, targetKB, r.TargetType); err != nil {
			return fmt.Errorf("index: insert ref %s: %w", r.FieldName, err)
		}
	}
	return nil
}

// syncBlocks re-extracts blocks from body and replaces the block rows,
// and also resyncs body-derived links (the two derive from the same parse
// pass and must land together for readers to see consistent state).
func syncBlocks(ctx context.Context, tx *sql.Tx, id, kbName, body string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM block WHERE entry_id = ? AND kb_name = ?`, id, kbName); err != nil {
		return fmt.Errorf("index: clear blocks: %w", err)
	}
	for _, b := range frontmatter.ExtractBlocks(id, kbName, body) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO block (entry_id, kb_name, position, block_type, heading, content, block_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, kbName, b.Position, string(b.Type), b.Heading, b.Content, b.BlockID); err != nil {
			return fmt.Errorf("index: insert block %d: %w", b.Position, err)
		}
	}
	return syncLinksFromBody(ctx, tx, id, kbName, body)
}
