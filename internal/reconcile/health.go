package reconcile

import (
	"context"
	"fmt"
	"os"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// HealthReport is the three-way partition a health check produces between
// what the index believes and what the filesystem actually contains.
type HealthReport struct {
	MissingFiles   []string // indexed, but the file is gone
	UnindexedFiles []string // file present, but no index row
	StaleEntries   []string // file newer than its indexed_at
}

// Check compares the index state for kb against its files without writing
// anything, for a read-only diagnostic pass.
func (r *Reconciler) Check(ctx context.Context, kb *entrymodel.KB) (HealthReport, error) {
	state, err := r.index.IndexStateForKB(ctx, kb.Name)
	if err != nil {
		return HealthReport{}, fmt.Errorf("reconcile: health check load state: %w", err)
	}

	files, err := walkMarkdownFiles(kb.RootPath)
	if err != nil {
		return HealthReport{}, fmt.Errorf("reconcile: health check walk: %w", err)
	}

	onDisk := map[string]string{}
	for _, path := range files {
		rec, err := buildRecord(kb, path)
		if err != nil {
			continue
		}
		onDisk[rec.ID] = path
	}

	var report HealthReport
	for id, st := range state {
		path, present := onDisk[id]
		if !present {
			report.MissingFiles = append(report.MissingFiles, st.FilePath)
			continue
		}
		if info, err := os.Stat(path); err == nil && info.ModTime().UTC().After(st.IndexedAt.UTC()) {
			report.StaleEntries = append(report.StaleEntries, path)
		}
	}
	for id, path := range onDisk {
		if _, known := state[id]; !known {
			report.UnindexedFiles = append(report.UnindexedFiles, path)
		}
	}

	return report, nil
}
