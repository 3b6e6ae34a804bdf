package reconcile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/reconcile"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := sqlite.Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeNote(t *testing.T, root, id, title string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0o755))
	content := "---\nid: " + id + "\ntitle: " + title + "\ntype: note\n---\n\nBody for " + id + ".\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", id+".md"), []byte(content), 0o644))
}

func TestFullReindexIndexesAllFiles(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "note-1", "First")
	writeNote(t, root, "note-2", "Second")

	store := openStore(t)
	r := reconcile.New(store, nil)
	kb := &entrymodel.KB{Name: "home", RootPath: root}

	result, err := r.FullReindex(context.Background(), kb)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)
	assert.Empty(t, result.Errors)
}

func TestIncrementalSyncClassifiesAddedUpdatedRemoved(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "note-1", "First")

	store := openStore(t)
	r := reconcile.New(store, nil)
	kb := &entrymodel.KB{Name: "home", RootPath: root}

	_, err := r.FullReindex(context.Background(), kb)
	require.NoError(t, err)

	// No changes: everything should be unchanged.
	result, err := r.IncrementalSync(context.Background(), kb)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unchanged)

	// Touch the file so its mtime moves forward, then add a new one.
	time.Sleep(10 * time.Millisecond)
	path := filepath.Join(root, "notes", "note-1.md")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	writeNote(t, root, "note-2", "Second")

	result, err = r.IncrementalSync(context.Background(), kb)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)

	// Remove the first note entirely.
	require.NoError(t, os.Remove(path))
	result, err = r.IncrementalSync(context.Background(), kb)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Removed)
}

func TestCheckReportsUnindexedFile(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "note-1", "First")

	store := openStore(t)
	r := reconcile.New(store, nil)
	kb := &entrymodel.KB{Name: "home", RootPath: root}

	_, err := r.FullReindex(context.Background(), kb)
	require.NoError(t, err)

	writeNote(t, root, "note-2", "Second")
	report, err := r.Check(context.Background(), kb)
	require.NoError(t, err)
	assert.Len(t, report.UnindexedFiles, 1)
}
