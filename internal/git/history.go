package git

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// FileCommit is one commit that touched a tracked file, in the shape the
// reconciler's attribution-indexing step consumes.
type FileCommit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
	Message     string
}

const logFieldSep = "\x1f"
const logRecordSep = "\x1e"

// FileHistory runs `git log` over path and returns its commits oldest
// first, the order attribution indexing needs to set created_by from the
// first commit and modified_by from the last without a second pass.
func FileHistory(repoRoot, path string) ([]FileCommit, error) {
	format := strings.Join([]string{"%H", "%an", "%ae", "%aI", "%s"}, logFieldSep)
	cmd := exec.Command("git", "log", "--follow", "--reverse",
		"--format="+format+logRecordSep, "--", path)
	cmd.Dir = repoRoot

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git: log %s: %w", path, err)
	}

	var commits []FileCommit
	for _, record := range strings.Split(string(out), logRecordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		fields := strings.Split(record, logFieldSep)
		if len(fields) != 5 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, fields[3])
		commits = append(commits, FileCommit{
			Hash:        fields[0],
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			Date:        date.UTC(),
			Message:     fields[4],
		})
	}
	return commits, nil
}

// IsTracked reports whether path is under git control in repoRoot.
func IsTracked(repoRoot, path string) bool {
	cmd := exec.Command("git", "ls-files", "--error-unmatch", path)
	cmd.Dir = repoRoot
	return cmd.Run() == nil
}
