package sqlite_test

import (
	"context"
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

func newStoreAndService(t *testing.T) (*sqlite.Store, *kbservice.Service, *entrymodel.KB) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := kbservice.New(store, schema.NewRegistry(), hooks.NewRegistry(nil), nil)
	kb := &entrymodel.KB{Name: "notes", RootPath: root, Type: "generic"}
	require.NoError(t, svc.RegisterKB(context.Background(), kb))
	return store, svc, kb
}

func TestSyncLinksExcludesSelfLinksFromFrontmatter(t *testing.T) {
	store, svc, kb := newStoreAndService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	result := svc.CreateEntry(ctx, kb.Name, kbservice.EntrySpec{
		ID: "self", Title: "Self", Type: "note",
		Links: []entrymodel.Link{{Target: "self"}, {Target: "other"}},
	}, now)
	require.True(t, result.OK, "%+v", result.Error)

	backlinks, err := store.Backlinks(ctx, "self", kb.Name)
	require.NoError(t, err)
	assert.Empty(t, backlinks, "a self-referencing link must not be indexed")

	backlinksOther, err := store.Backlinks(ctx, "other", kb.Name)
	require.NoError(t, err)
	require.Len(t, backlinksOther, 1)
	assert.Equal(t, "self", backlinksOther[0].SourceID)
}

func TestSyncLinksFromBodyExcludesSelfLinks(t *testing.T) {
	store, svc, kb := newStoreAndService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	result := svc.CreateEntry(ctx, kb.Name, kbservice.EntrySpec{
		ID: "loop", Title: "Loop", Type: "note",
		Body: "see [[loop]] and [[other]]",
	}, now)
	require.True(t, result.OK, "%+v", result.Error)

	backlinks, err := store.Backlinks(ctx, "loop", kb.Name)
	require.NoError(t, err)
	assert.Empty(t, backlinks)

	backlinksOther, err := store.Backlinks(ctx, "other", kb.Name)
	require.NoError(t, err)
	require.Len(t, backlinksOther, 1)
	assert.Equal(t, "loop", backlinksOther[0].SourceID)
}

func TestWikilinkLookupFindByIDsBatchesOneQuery(t *testing.T) {
	store, svc, kb := newStoreAndService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(ctx, kb.Name, kbservice.EntrySpec{ID: "a", Title: "A", Type: "note"}, now).OK)
	require.True(t, svc.CreateEntry(ctx, kb.Name, kbservice.EntrySpec{ID: "b", Title: "B", Type: "note"}, now).OK)

	lookup := sqlite.WikilinkLookup{Store: store, Ctx: ctx}
	existing := lookup.FindByIDs(kb.Name, []string{"a", "b", "missing"})
	assert.Equal(t, map[string]bool{"a": true, "b": true, "missing": false}, existing)
}

func TestWikilinkLookupFindByIDsEmptyInput(t *testing.T) {
	store, _, _ := newStoreAndService(t)
	lookup := sqlite.WikilinkLookup{Store: store, Ctx: context.Background()}
	assert.Empty(t, lookup.FindByIDs("notes", nil))
}
