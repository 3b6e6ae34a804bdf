package pyrite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	kbDir := filepath.Join(dir, "kb", "notes")
	require.NoError(t, os.MkdirAll(kbDir, 0o755))

	configPath := filepath.Join(dir, "pyrite.yaml")
	content := `
knowledge_bases:
  - name: notes
    path: kb/notes
    kb_type: generic
settings:
  index_path: ` + filepath.Join(dir, "index.db") + `
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	return configPath
}

func TestOpenRegistersConfiguredKnowledgeBases(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)

	engine, err := pyrite.Open(context.Background(), configPath)
	require.NoError(t, err)
	defer engine.Close()

	assert.Equal(t, 1, len(engine.Config.KnowledgeBases))
	assert.NotNil(t, engine.Service)
	assert.NotNil(t, engine.Tasks)
}

func TestOpenWritesAndClaimsThroughTheFacade(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)

	engine, err := pyrite.Open(context.Background(), configPath)
	require.NoError(t, err)
	defer engine.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	result := engine.Service.CreateEntry(ctx, "notes", pyrite.EntrySpec{
		ID: "task-1", Title: "Write the facade", Type: "task",
		Fields: map[string]any{"status": "open"},
	}, now)
	require.True(t, result.OK, "%+v", result.Error)

	claim := engine.Tasks.Claim(ctx, "notes", "task-1", "alice", now)
	assert.True(t, claim.Claimed)
}
