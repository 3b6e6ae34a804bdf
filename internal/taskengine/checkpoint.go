package taskengine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/markramm/pyrite/internal/kbservice"
)

// Checkpoint appends a progress note to taskID's body, merges evidence
// into agent_context and the top-level evidence field, and issues one
// write through the same validated pipeline every other mutation goes
// through (schema validation, before_save/after_save hooks, file-then-
// index ordering). Unlike Claim, a checkpoint carries no exclusivity
// requirement, so there's no reason to bypass that pipeline the way
// mirrorStatusToFile does.
func (e *Engine) Checkpoint(ctx context.Context, kbName, taskID, message string, confidence int, evidence []string, now time.Time) kbservice.Result {
	repo, _, ok := e.svc.Repository(kbName)
	if !ok {
		return kbservice.Result{Error: &kbservice.ResultError{
			Code: kbservice.CodeKBNotFound, Message: fmt.Sprintf("unknown knowledge base %q", kbName),
		}}
	}
	doc, _, err := repo.Load(taskID)
	if err != nil {
		return kbservice.Result{Error: &kbservice.ResultError{
			Code: kbservice.CodeEntryNotFound, Message: fmt.Sprintf("task %q not found: %v", taskID, err),
		}}
	}

	base, fields := loadTaskBase(doc, kbName, taskID)

	ts := now.UTC().Format("2006-01-02T15:04:05Z")
	var section strings.Builder
	fmt.Fprintf(&section, "\n\n## Checkpoint %s\n\n%s", ts, message)
	if confidence > 0 {
		fmt.Fprintf(&section, "\n\nConfidence: %d%%", confidence)
	}
	for _, ev := range evidence {
		fmt.Fprintf(&section, "\n- %s", ev)
	}
	body := strings.TrimRight(doc.Body, "\n") + section.String() + "\n"

	mergedEvidence := unionEvidence(toStringSlice(fields["evidence"]), evidence)
	fields["evidence"] = mergedEvidence

	agentContext, _ := fields["agent_context"].(map[string]any)
	if agentContext == nil {
		agentContext = map[string]any{}
	} else {
		cloned := make(map[string]any, len(agentContext)+3)
		for k, v := range agentContext {
			cloned[k] = v
		}
		agentContext = cloned
	}
	agentContext["last_checkpoint"] = ts
	agentContext["last_message"] = message
	if confidence > 0 {
		agentContext["confidence"] = confidence
	}
	agentContext["evidence"] = mergedEvidence
	fields["agent_context"] = agentContext

	spec := kbservice.EntrySpec{
		ID: taskID, Title: base.Title_, Type: "task", Body: body, Summary: base.Summary,
		Tags: base.Tags_, Sources: base.Sources_, Links: base.Links_, Fields: fields,
	}
	return e.svc.UpdateEntry(ctx, kbName, spec, now)
}

// unionEvidence merges existing and fresh evidence links, deduplicated and
// sorted for a deterministic on-disk order across repeated checkpoints.
func unionEvidence(existing, fresh []string) []string {
	seen := make(map[string]bool, len(existing)+len(fresh))
	out := make([]string, 0, len(existing)+len(fresh))
	for _, v := range append(append([]string{}, existing...), fresh...) {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
