package taskengine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/kbservice"
)

// ChildSpec is the caller-supplied shape for one child task passed to
// Decompose. ID is optional: when omitted, a uuid is minted, reserving
// the repository's own content-hash id generator (internal/idgen, wired
// into kbservice.CreateEntry) for entries whose id is meant to be
// reproducible from content rather than freshly random.
type ChildSpec struct {
	ID       string
	Title    string
	Body     string
	Priority int
	DueDate  string
	Fields   map[string]any
}

// Decompose verifies parentID exists in kbName, then bulk-creates one
// child task per spec with parent_task=parentID and status=open, via the
// same per-item-isolated BulkCreate kbservice already provides.
func (e *Engine) Decompose(ctx context.Context, kbName, parentID string, children []ChildSpec, now time.Time) []kbservice.Result {
	repo, _, ok := e.svc.Repository(kbName)
	if !ok {
		return []kbservice.Result{{Error: &kbservice.ResultError{
			Code: kbservice.CodeKBNotFound, Message: fmt.Sprintf("unknown knowledge base %q", kbName),
		}}}
	}
	if _, err := repo.Find(parentID); err != nil {
		return []kbservice.Result{{Error: &kbservice.ResultError{
			Code: kbservice.CodeEntryNotFound, Message: fmt.Sprintf("parent task %q not found: %v", parentID, err),
		}}}
	}

	specs := make([]kbservice.EntrySpec, len(children))
	for i, c := range children {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		fields := cloneFields(c.Fields)
		fields["parent_task"] = parentID
		fields["status"] = string(entrymodel.StatusOpen)
		if c.Priority != 0 {
			fields["priority"] = c.Priority
		}
		if c.DueDate != "" {
			fields["due_date"] = c.DueDate
		}
		specs[i] = kbservice.EntrySpec{
			ID: id, Title: c.Title, Type: "task", Body: c.Body, Fields: fields,
		}
	}
	return e.svc.BulkCreate(ctx, kbName, specs, now)
}
