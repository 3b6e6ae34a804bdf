package taskengine

import (
	"context"
	"fmt"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
)

// transitionGraph declares, for each task status, the set of statuses a
// single write may move it to. A status not present as a key has no
// declared outgoing edges (a terminal state for this graph).
var transitionGraph = map[string][]string{
	string(entrymodel.StatusOpen):       {string(entrymodel.StatusClaimed)},
	string(entrymodel.StatusClaimed):    {string(entrymodel.StatusInProgress)},
	string(entrymodel.StatusInProgress): {
		string(entrymodel.StatusBlocked), string(entrymodel.StatusReview),
		string(entrymodel.StatusDone), string(entrymodel.StatusFailed),
	},
	string(entrymodel.StatusBlocked): {string(entrymodel.StatusInProgress)},
	string(entrymodel.StatusReview):  {string(entrymodel.StatusDone), string(entrymodel.StatusInProgress)},
	string(entrymodel.StatusFailed):  {string(entrymodel.StatusOpen)},
}

// WorkflowHook enforces the task status transition graph as a before_save
// hook, reading old_status from the invocation context. Only task entries
// carry a workflow; every other entry type passes through untouched.
type WorkflowHook struct {
	hooks.BaseHook
}

func (WorkflowHook) BeforeSave(ctx context.Context, inv *hooks.Invocation) error {
	if inv.EntryType != "task" {
		return nil
	}
	newStatus, ok := inv.Fields["status"].(string)
	if !ok || newStatus == "" {
		return nil
	}

	// A creation (no prior state) or a write that doesn't touch status is
	// not a transition and needs no graph check.
	if inv.OldStatus == "" || inv.OldStatus == newStatus {
		return nil
	}

	if newStatus == string(entrymodel.StatusOpen) && inv.OldStatus == string(entrymodel.StatusFailed) {
		reason, _ := inv.Fields["reason"].(string)
		if reason == "" {
			return fmt.Errorf("%w: failed -> open requires a reason", hooks.ErrInvalidTransition)
		}
	}

	allowed := transitionGraph[inv.OldStatus]
	for _, next := range allowed {
		if next == newStatus {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s is not a declared edge", hooks.ErrInvalidTransition, inv.OldStatus, newStatus)
}
