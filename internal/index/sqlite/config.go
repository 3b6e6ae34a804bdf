package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// SetSetting upserts a single key/value pair in the setting table.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO setting (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("index: set setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the value for key and whether it was present.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM setting WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("index: get setting %s: %w", key, err)
	}
	return value, true, nil
}

// GetAllSettings returns every key/value pair, for diagnostics and export.
func (s *Store) GetAllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM setting`)
	if err != nil {
		return nil, fmt.Errorf("index: get all settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("index: scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// DeleteSetting removes key if present.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM setting WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("index: delete setting %s: %w", key, err)
	}
	return nil
}

// CustomStatusesSettingKey and NonBlockingStatusesSettingKey are the
// comma-separated-list settings a KB can use to extend the fixed task
// workflow vocabulary.
const (
	CustomStatusesSettingKey     = "custom_task_statuses"
	NonBlockingStatusesSettingKey = "non_blocking_task_statuses"
)
