package taskengine_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/kbservice"
	"github.com/markramm/pyrite/internal/schema"
	"github.com/markramm/pyrite/internal/taskengine"
)

func newEngine(t *testing.T) (*taskengine.Engine, *kbservice.Service, *entrymodel.KB, *sqlite.Store) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "index.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := kbservice.New(store, schema.NewRegistry(), hooks.NewRegistry(nil), nil)
	kb := &entrymodel.KB{Name: "tasks", RootPath: root, Type: "generic"}
	require.NoError(t, svc.RegisterKB(context.Background(), kb))

	eng := taskengine.New(svc, store, nil)
	require.NoError(t, eng.Register())
	return eng, svc, kb, store
}

func TestClaimIsSingleWinnerUnderConcurrentCallers(t *testing.T) {
	eng, svc, kb, _ := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "claim-me", Title: "Claim me", Type: "task", Fields: map[string]any{"status": "open"},
	}, now).OK)

	var wg sync.WaitGroup
	results := make([]taskengine.ClaimResult, 2)
	assignees := []string{"alice", "bob"}
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = eng.Claim(context.Background(), kb.Name, "claim-me", assignees[i], now)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r.Claimed {
			wins++
		} else {
			assert.Equal(t, "claimed", r.CurrentStatus)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestClaimRejectsAlreadyClaimedTask(t *testing.T) {
	eng, svc, kb, _ := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t1", Title: "T1", Type: "task", Fields: map[string]any{"status": "open"},
	}, now).OK)

	first := eng.Claim(context.Background(), kb.Name, "t1", "alice", now)
	require.True(t, first.Claimed)

	second := eng.Claim(context.Background(), kb.Name, "t1", "bob", now)
	assert.False(t, second.Claimed)
	assert.Equal(t, "claimed", second.CurrentStatus)
}

func TestDecomposeRejectsUnknownParent(t *testing.T) {
	eng, _, kb, _ := newEngine(t)
	results := eng.Decompose(context.Background(), kb.Name, "missing-parent", []taskengine.ChildSpec{
		{Title: "Child"},
	}, time.Now().UTC())
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Error)
	assert.Equal(t, kbservice.CodeEntryNotFound, results[0].Error.Code)
}

func TestDecomposeCreatesChildrenWithParentTaskAndOpenStatus(t *testing.T) {
	eng, svc, kb, store := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "parent-1", Title: "Parent", Type: "task", Fields: map[string]any{"status": "open"},
	}, now).OK)

	results := eng.Decompose(context.Background(), kb.Name, "parent-1", []taskengine.ChildSpec{
		{ID: "child-1", Title: "Child One"},
		{ID: "child-2", Title: "Child Two"},
	}, now)
	require.Len(t, results, 2)
	for _, r := range results {
		require.True(t, r.OK, "%+v", r.Error)
	}

	rec, err := store.GetEntry(context.Background(), "child-1", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "open", rec.Metadata["status"])
	assert.Equal(t, "parent-1", rec.Metadata["parent_task"])
}

func TestCheckpointAppendsBodySectionAndMergesEvidence(t *testing.T) {
	eng, svc, kb, store := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t2", Title: "T2", Type: "task", Body: "Initial body.",
		Fields: map[string]any{"status": "open", "evidence": []string{"https://example.com/a"}},
	}, now).OK)

	result := eng.Checkpoint(context.Background(), kb.Name, "t2", "made progress", 80,
		[]string{"https://example.com/b"}, now.Add(time.Hour))
	require.True(t, result.OK, "%+v", result.Error)

	rec, err := store.GetEntry(context.Background(), "t2", kb.Name)
	require.NoError(t, err)
	assert.Contains(t, rec.Body, "Initial body.")
	assert.Contains(t, rec.Body, "## Checkpoint")
	assert.Contains(t, rec.Body, "made progress")

	agentContext, ok := rec.Metadata["agent_context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "made progress", agentContext["last_message"])

	evidence := rec.Metadata["evidence"]
	assert.Contains(t, evidence, "https://example.com/a")
	assert.Contains(t, evidence, "https://example.com/b")
}

func TestRollupMarksParentDoneOnlyWhenAllChildrenDone(t *testing.T) {
	eng, svc, kb, store := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "p1", Title: "Parent", Type: "task", Fields: map[string]any{"status": "in_progress"},
	}, now).OK)
	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "c1", Title: "Child 1", Type: "task",
		Fields: map[string]any{"status": "in_progress", "parent_task": "p1"},
	}, now).OK)
	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "c2", Title: "Child 2", Type: "task",
		Fields: map[string]any{"status": "in_progress", "parent_task": "p1"},
	}, now).OK)

	require.True(t, svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "c1", Title: "Child 1", Type: "task",
		Fields: map[string]any{"status": "done", "parent_task": "p1"},
	}, now).OK)

	parentRec, err := store.GetEntry(context.Background(), "p1", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", parentRec.Metadata["status"], "parent should stay unchanged while a sibling is not done")

	require.True(t, svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "c2", Title: "Child 2", Type: "task",
		Fields: map[string]any{"status": "done", "parent_task": "p1"},
	}, now).OK)

	parentRec, err = store.GetEntry(context.Background(), "p1", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "done", parentRec.Metadata["status"])
}

func TestRollupCascadesToGrandparent(t *testing.T) {
	eng, svc, kb, store := newEngine(t)
	now := time.Now().UTC()
	_ = eng

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "gp", Title: "Grandparent", Type: "task", Fields: map[string]any{"status": "in_progress"},
	}, now).OK)
	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "p", Title: "Parent", Type: "task",
		Fields: map[string]any{"status": "in_progress", "parent_task": "gp"},
	}, now).OK)
	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "c", Title: "Child", Type: "task",
		Fields: map[string]any{"status": "in_progress", "parent_task": "p"},
	}, now).OK)

	require.True(t, svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "c", Title: "Child", Type: "task",
		Fields: map[string]any{"status": "done", "parent_task": "p"},
	}, now).OK)

	parentRec, err := store.GetEntry(context.Background(), "p", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "done", parentRec.Metadata["status"])

	grandparentRec, err := store.GetEntry(context.Background(), "gp", kb.Name)
	require.NoError(t, err)
	assert.Equal(t, "done", grandparentRec.Metadata["status"])
}

func TestWorkflowHookRejectsUndeclaredTransition(t *testing.T) {
	_, svc, kb, _ := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t3", Title: "T3", Type: "task", Fields: map[string]any{"status": "open"},
	}, now).OK)

	result := svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t3", Title: "T3", Type: "task", Fields: map[string]any{"status": "done"},
	}, now)
	require.NotNil(t, result.Error)
	assert.Equal(t, kbservice.CodeInvalidTransition, result.Error.Code)
}

func TestWorkflowHookRequiresReasonForFailedToOpen(t *testing.T) {
	_, svc, kb, _ := newEngine(t)
	now := time.Now().UTC()

	require.True(t, svc.CreateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t4", Title: "T4", Type: "task", Fields: map[string]any{"status": "failed"},
	}, now).OK)

	rejected := svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t4", Title: "T4", Type: "task", Fields: map[string]any{"status": "open"},
	}, now)
	require.NotNil(t, rejected.Error)
	assert.Equal(t, kbservice.CodeInvalidTransition, rejected.Error.Code)

	accepted := svc.UpdateEntry(context.Background(), kb.Name, kbservice.EntrySpec{
		ID: "t4", Title: "T4", Type: "task", Fields: map[string]any{"status": "open", "reason": "retrying"},
	}, now)
	assert.True(t, accepted.OK, "%+v", accepted.Error)
}
