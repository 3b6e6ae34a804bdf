package taskengine

import (
	"context"
	"fmt"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// ClaimResult is the structured outcome of Claim, matching the claim
// contract: a caller distinguishes a win from a loss via Claimed, and a
// losing caller gets CurrentStatus back without needing to parse an error.
type ClaimResult struct {
	Claimed       bool
	CurrentStatus string
	Error         string
}

// Claim performs the single-winner CAS claim. The index-level conditional
// update is the actual exclusivity guarantee — unlike a checkpoint or a
// title edit, two concurrent claims racing through the generic
// validate-then-save pipeline could both observe status=open and both
// "win"; only a single conditional UPDATE statement closes that window.
// Once the index update wins, Claim mirrors the new status to the file;
// if that write fails, the index row is reverted so the two stores never
// disagree about who holds the task.
func (e *Engine) Claim(ctx context.Context, kbName, taskID, assignee string, now time.Time) ClaimResult {
	claimed, current, err := e.index.ClaimTask(ctx, taskID, kbName, assignee)
	if err != nil {
		return ClaimResult{Error: err.Error()}
	}
	if !claimed {
		return ClaimResult{CurrentStatus: current}
	}

	if err := e.mirrorStatusToFile(kbName, taskID, entrymodel.StatusClaimed, assignee, now); err != nil {
		if revertErr := e.index.RevertClaim(ctx, taskID, kbName); revertErr != nil {
			e.log.Warn("taskengine: revert claim failed after file mirror error", "task", taskID, "kb", kbName, "error", revertErr)
		}
		return ClaimResult{CurrentStatus: "open", Error: fmt.Sprintf("file update failed: %v", err)}
	}
	return ClaimResult{Claimed: true, CurrentStatus: "claimed"}
}

// mirrorStatusToFile rewrites taskID's file with status (and assignee,
// when non-empty) changed, carrying every other field forward unchanged.
// It bypasses hooks and schema validation deliberately: Claim's CAS
// already decided the outcome at the index, and re-running validation
// here could reject a write the index has already committed to.
func (e *Engine) mirrorStatusToFile(kbName, taskID string, status entrymodel.TaskStatus, assignee string, now time.Time) error {
	repo, _, ok := e.svc.Repository(kbName)
	if !ok {
		return fmt.Errorf("taskengine: unknown kb %q", kbName)
	}
	doc, _, err := repo.Load(taskID)
	if err != nil {
		return err
	}
	base, fields := loadTaskBase(doc, kbName, taskID)
	fields["status"] = string(status)
	if assignee != "" {
		fields["assignee"] = assignee
	}

	entry, err := entrymodel.BuildEntry("task", fields, base)
	if err != nil {
		return err
	}
	_, err = repo.Save(entry, now)
	return err
}
