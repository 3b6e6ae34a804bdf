package taskengine

import (
	"context"
	"fmt"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/kbservice"
)

// RollupParent implements the parent-completion cascade: when every
// sibling of parentID is done, parentID itself is marked done, and if
// parentID has its own parent_task, the cascade continues recursively.
// A parent with no children (an empty sibling set), an already
// done/failed parent, or any non-done sibling is a no-op.
func (e *Engine) RollupParent(ctx context.Context, kbName, parentID string) error {
	statuses, err := e.index.SiblingStatuses(ctx, parentID, kbName)
	if err != nil {
		return fmt.Errorf("taskengine: sibling statuses for %s: %w", parentID, err)
	}
	if len(statuses) == 0 {
		return nil
	}
	for _, s := range statuses {
		if s != string(entrymodel.StatusDone) {
			return nil
		}
	}

	repo, kb, ok := e.svc.Repository(kbName)
	if !ok {
		return fmt.Errorf("taskengine: unknown kb %q", kbName)
	}
	doc, path, err := repo.Load(parentID)
	if err != nil {
		return fmt.Errorf("taskengine: load parent %s: %w", parentID, err)
	}
	currentStatus, _ := doc.Fields["status"].(string)
	if currentStatus == string(entrymodel.StatusDone) || currentStatus == string(entrymodel.StatusFailed) {
		return nil
	}

	now := time.Now().UTC()
	base, fields := loadTaskBase(doc, kbName, parentID)
	fields["status"] = string(entrymodel.StatusDone)
	base.Path = path

	entry, err := entrymodel.BuildEntry("task", fields, base)
	if err != nil {
		return fmt.Errorf("taskengine: build parent %s: %w", parentID, err)
	}
	savedPath, err := repo.Save(entry, now)
	if err != nil {
		return fmt.Errorf("taskengine: mark %s done: %w", parentID, err)
	}
	if err := e.index.Upsert(ctx, kbservice.ToRecord(entry, kb, savedPath)); err != nil {
		return fmt.Errorf("taskengine: index %s: %w", parentID, err)
	}

	grandparent, _ := doc.Fields["parent_task"].(string)
	if grandparent == "" {
		return nil
	}
	if err := e.RollupParent(ctx, kbName, grandparent); err != nil {
		e.log.Warn("taskengine: recursive rollup failed", "parent", grandparent, "error", err)
	}
	return nil
}

// RollupHook triggers RollupParent whenever an after_save invocation shows
// a task entering status "done" with a parent_task set. Registered as an
// after_save hook, so it fires only once the triggering write has already
// committed, matching after_save's logged-not-surfaced failure semantics.
type RollupHook struct {
	hooks.BaseHook
	Engine *Engine
}

func (h RollupHook) AfterSave(ctx context.Context, inv *hooks.Invocation) error {
	if inv.EntryType != "task" {
		return nil
	}
	status, _ := inv.Fields["status"].(string)
	if status != string(entrymodel.StatusDone) {
		return nil
	}
	parent, _ := inv.Fields["parent_task"].(string)
	if parent == "" {
		return nil
	}
	return h.Engine.RollupParent(ctx, inv.KBName, parent)
}
