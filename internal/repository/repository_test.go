package repository_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/repository"
)

func newKB(t *testing.T, readOnly bool) *entrymodel.KB {
	t.Helper()
	root := t.TempDir()
	return &entrymodel.KB{Name: "home", RootPath: root, ReadOnly: readOnly}
}

func TestSaveInfersSubdirectoryFromType(t *testing.T) {
	kb := newKB(t, false)
	repo := repository.New(kb)

	note := &entrymodel.Note{Base: entrymodel.Base{ID_: "note-1", Title_: "First"}}
	path, err := repo.Save(note, time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(kb.RootPath, "notes", "note-1.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "id: note-1")
}

func TestSaveRejectedOnReadOnlyKB(t *testing.T) {
	kb := newKB(t, true)
	repo := repository.New(kb)
	note := &entrymodel.Note{Base: entrymodel.Base{ID_: "note-1", Title_: "First"}}
	_, err := repo.Save(note, time.Now())
	assert.ErrorIs(t, err, repository.ErrReadOnly)
}

func TestLoadFindDeleteRoundTrip(t *testing.T) {
	kb := newKB(t, false)
	repo := repository.New(kb)
	note := &entrymodel.Note{Base: entrymodel.Base{ID_: "note-2", Title_: "Second"}}
	_, err := repo.Save(note, time.Now())
	require.NoError(t, err)

	doc, path, err := repo.Load("note-2")
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Equal(t, "note-2", doc.Fields["id"])

	removed, err := repo.Delete("note-2")
	require.NoError(t, err)
	assert.True(t, removed)

	_, _, err = repo.Load("note-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListSkipsHiddenAndTemplateDirs(t *testing.T) {
	kb := newKB(t, false)
	require.NoError(t, os.MkdirAll(filepath.Join(kb.RootPath, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kb.RootPath, ".git", "stray.md"), []byte("---\nid: x\n---\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(kb.RootPath, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kb.RootPath, "templates", "note-template.md"), []byte("---\nid: t\n---\n"), 0o644))

	repo := repository.New(kb)
	note := &entrymodel.Note{Base: entrymodel.Base{ID_: "note-3", Title_: "Third"}}
	_, err := repo.Save(note, time.Now())
	require.NoError(t, err)

	listing, err := repo.List()
	require.NoError(t, err)
	require.Len(t, listing, 1)
	assert.Equal(t, "note-3", listing[0].Doc.Fields["id"])
}
