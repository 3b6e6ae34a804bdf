package sqlite

// migrations maps schema version to the statements that move the database
// from version-1 to that version. Collected into one map rather than one
// file per step since this is the version-1 bootstrap only so far.
var migrations = map[int][]string{
	1: splitStatements(`
		CREATE TABLE kb (
			name        TEXT PRIMARY KEY,
			root_path   TEXT NOT NULL,
			kb_type     TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			read_only   INTEGER NOT NULL DEFAULT 0,
			shortname   TEXT,
			ephemeral   INTEGER NOT NULL DEFAULT 0,
			ttl_seconds INTEGER NOT NULL DEFAULT 0,
			created_at_ts TEXT,
			repo_name   TEXT
		);

		CREATE TABLE entry (
			id           TEXT NOT NULL,
			kb_name      TEXT NOT NULL,
			entry_type   TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			body         TEXT NOT NULL DEFAULT '',
			summary      TEXT NOT NULL DEFAULT '',
			file_path    TEXT NOT NULL DEFAULT '',
			metadata     TEXT NOT NULL DEFAULT '{}',
			created_by   TEXT NOT NULL DEFAULT '',
			modified_by  TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL,
			indexed_at   TEXT NOT NULL,
			content_hash TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (id, kb_name)
		);
		CREATE INDEX idx_entry_kb_type ON entry(kb_name, entry_type);
		CREATE INDEX idx_entry_updated ON entry(updated_at);

		CREATE TABLE tag (
			name TEXT PRIMARY KEY
		);

		CREATE TABLE entry_tag (
			entry_id TEXT NOT NULL,
			kb_name  TEXT NOT NULL,
			tag_name TEXT NOT NULL,
			PRIMARY KEY (entry_id, kb_name, tag_name),
			FOREIGN KEY (entry_id, kb_name) REFERENCES entry(id, kb_name) ON DELETE CASCADE
		);
		CREATE INDEX idx_entry_tag_tag ON entry_tag(tag_name);

		CREATE TABLE source (
			entry_id TEXT NOT NULL,
			kb_name  TEXT NOT NULL,
			position INTEGER NOT NULL,
			title    TEXT NOT NULL DEFAULT '',
			url      TEXT NOT NULL DEFAULT '',
			verified INTEGER NOT NULL DEFAULT 0,
			note     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entry_id, kb_name, position),
			FOREIGN KEY (entry_id, kb_name) REFERENCES entry(id, kb_name) ON DELETE CASCADE
		);

		CREATE TABLE link (
			source_id TEXT NOT NULL,
			source_kb TEXT NOT NULL,
			target_id TEXT NOT NULL,
			target_kb TEXT NOT NULL,
			relation  TEXT NOT NULL DEFAULT '',
			note      TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (source_id, source_kb, target_id, target_kb, relation),
			FOREIGN KEY (source_id, source_kb) REFERENCES entry(id, kb_name) ON DELETE CASCADE
		);
		CREATE INDEX idx_link_target ON link(target_id, target_kb);

		CREATE TABLE entry_ref (
			entry_id    TEXT NOT NULL,
			kb_name     TEXT NOT NULL,
			field_name  TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			target_kb   TEXT NOT NULL,
			target_type TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entry_id, kb_name, field_name, target_id, target_kb),
			FOREIGN KEY (entry_id, kb_name) REFERENCES entry(id, kb_name) ON DELETE CASCADE
		);

		CREATE TABLE block (
			entry_id TEXT NOT NULL,
			kb_name  TEXT NOT NULL,
			position INTEGER NOT NULL,
			block_type TEXT NOT NULL,
			heading  TEXT NOT NULL DEFAULT '',
			content  TEXT NOT NULL DEFAULT '',
			block_id TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entry_id, kb_name, position),
			FOREIGN KEY (entry_id, kb_name) REFERENCES entry(id, kb_name) ON DELETE CASCADE
		);
		CREATE INDEX idx_block_block_id ON block(block_id) WHERE block_id != '';

		CREATE TABLE entry_version (
			entry_id     TEXT NOT NULL,
			kb_name      TEXT NOT NULL,
			commit_hash  TEXT NOT NULL,
			author_name  TEXT NOT NULL DEFAULT '',
			author_email TEXT NOT NULL DEFAULT '',
			commit_date  TEXT NOT NULL,
			message      TEXT NOT NULL DEFAULT '',
			change_type  TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (entry_id, kb_name, commit_hash)
		);

		CREATE TABLE setting (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE dirty_entry (
			entry_id  TEXT NOT NULL,
			kb_name   TEXT NOT NULL,
			marked_at TEXT NOT NULL,
			PRIMARY KEY (entry_id, kb_name)
		);

		CREATE VIRTUAL TABLE entry_fts USING fts5(
			entry_id UNINDEXED,
			kb_name UNINDEXED,
			title,
			summary,
			tags,
			content
		);
	`),
}
