package reconcile

import (
	"context"
	"fmt"

	"github.com/markramm/pyrite/internal/git"
)

// versionWriter is the subset of *sqlite.Store attribution indexing needs;
// kept narrow so it can be satisfied without importing the full store
// from this file.
type versionWriter interface {
	RecordVersion(ctx context.Context, entryID, kbName, commitHash, authorName, authorEmail string, commitDate string, message, changeType string) error
	SetAttribution(ctx context.Context, entryID, kbName, createdBy, modifiedBy string) error
}

// IndexAttribution walks path's git history (when the KB's root is inside
// a git repository) and records one version row per commit, setting
// created_by from the first commit and modified_by from the last. A file
// with no git history is left with whatever attribution the frontmatter
// itself declared.
func (r *Reconciler) IndexAttribution(ctx context.Context, versions versionWriter, repoRoot, entryID, kbName, relPath string) error {
	if !git.IsTracked(repoRoot, relPath) {
		return nil
	}
	commits, err := git.FileHistory(repoRoot, relPath)
	if err != nil {
		r.log.Warn("reconcile: git history unavailable", "path", relPath, "error", err)
		return nil
	}
	if len(commits) == 0 {
		return nil
	}

	for _, c := range commits {
		changeType := "modified"
		if err := versions.RecordVersion(ctx, entryID, kbName, c.Hash, c.AuthorName, c.AuthorEmail,
			c.Date.Format("2006-01-02T15:04:05Z07:00"), c.Message, changeType); err != nil {
			return fmt.Errorf("reconcile: record version %s: %w", c.Hash, err)
		}
	}

	first, last := commits[0], commits[len(commits)-1]
	return versions.SetAttribution(ctx, entryID, kbName, first.AuthorName, last.AuthorName)
}
