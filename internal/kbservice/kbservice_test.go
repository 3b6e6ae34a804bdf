package kbservice_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/kbservice"
	"github.com/markramm/pyrite/internal/schema"
)

func newService(t *testing.T) (*kbservice.Service, *entrymodel.KB, *sqlite.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := kbservice.New(store, schema.NewRegistry(), hooks.NewRegistry(nil), nil)
	kb := &entrymodel.KB{Name: "home", RootPath: root, Type: "generic"}
	require.NoError(t, svc.RegisterKB(context.Background(), kb))
	return svc, kb, store
}

func TestCreateEntryWritesFileAndIndexRow(t *testing.T) {
	svc, kb, _ := newService(t)
	now := time.Now().UTC()

	result := svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "note-1", Title: "First", Type: "note", Body: "hello world",
	}, now)

	require.True(t, result.OK, "%+v", result.Error)
	assert.Equal(t, "note-1", result.ID)

	path := filepath.Join(kb.RootPath, "notes", "note-1.md")
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateEntryStoresSummaryForSearch(t *testing.T) {
	svc, kb, store := newService(t)
	now := time.Now().UTC()

	result := svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "note-1", Title: "First", Type: "note", Body: "hello world", Summary: "a short summary",
	}, now)
	require.True(t, result.OK, "%+v", result.Error)

	rec, err := store.GetEntry(context.Background(), "note-1", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "a short summary", rec.Summary)
}

func TestCreateEntryRejectedOnUnknownKB(t *testing.T) {
	svc, _, _ := newService(t)
	result := svc.CreateEntry(context.Background(), "missing", kbservice.EntrySpec{ID: "x", Type: "note"}, time.Now())
	require.NotNil(t, result.Error)
	assert.Equal(t, kbservice.CodeKBNotFound, result.Error.Code)
}

func TestCreateEntryRejectedOnReadOnlyKB(t *testing.T) {
	svc, kb, _ := newService(t)
	kb.ReadOnly = true

	result := svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{ID: "x", Type: "note"}, time.Now())
	require.NotNil(t, result.Error)
	assert.Equal(t, kbservice.CodeKBReadOnly, result.Error.Code)
}

func TestUpdateEntryPreservesCreatedAtAndBumpsUpdatedAt(t *testing.T) {
	svc, kb, store := newService(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	result := svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "note-1", Title: "First", Type: "note", Body: "v1",
	}, created)
	require.True(t, result.OK)

	later := created.Add(24 * time.Hour)
	result = svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "note-1", Title: "First", Type: "note", Body: "v2",
	}, later)
	require.True(t, result.OK, "%+v", result.Error)

	rec, err := store.GetEntry(context.Background(), "note-1", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "v2", rec.Body)
	assert.WithinDuration(t, created, rec.CreatedAt, time.Second)
	assert.WithinDuration(t, later, rec.UpdatedAt, time.Second)
}

func TestUpdateEntryNotFound(t *testing.T) {
	svc, kb, _ := newService(t)
	result := svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{ID: "nope", Type: "note"}, time.Now())
	require.NotNil(t, result.Error)
	assert.Equal(t, kbservice.CodeEntryNotFound, result.Error.Code)
}

func TestDeleteEntryRemovesFileAndIndexRow(t *testing.T) {
	svc, kb, store := newService(t)
	now := time.Now().UTC()
	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "note-1", Title: "First", Type: "note", Body: "hi",
	}, now).OK)

	result := svc.DeleteEntry(context.Background(), kb.Name, "note-1")
	require.True(t, result.OK, "%+v", result.Error)

	_, err := store.GetEntry(context.Background(), "note-1", kb.Name)
	assert.Error(t, err)
}

func TestBulkCreateIsolatesPerItemFailures(t *testing.T) {
	svc, kb, _ := newService(t)
	now := time.Now().UTC()

	results := svc.BulkCreate(context.Background(), kb.Name, []kbservice.EntrySpec{
		{ID: "good-1", Title: "Good", Type: "note", Body: "ok"},
		{ID: "qa-bad", Title: "Bad", Type: "qa-assessment", Body: "missing target"},
		{ID: "good-2", Title: "Good Too", Type: "note", Body: "ok"},
	}, now)

	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.True(t, results[2].OK)
}

func TestSearchReportsIndexEmptyBeforeAnyKBRegistered(t *testing.T) {
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	svc := kbservice.New(store, schema.NewRegistry(), hooks.NewRegistry(nil), nil)
	result := svc.Search(context.Background(), "", "anything", 10)
	require.NotNil(t, result.Error)
	assert.Equal(t, kbservice.CodeIndexEmpty, result.Error.Code)
}
