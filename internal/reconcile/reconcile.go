// Package reconcile reconciles the on-disk Markdown corpus with the
// derived SQLite index: full reindex, incremental sync, health checks,
// and attribution indexing from git history.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/frontmatter"
	"github.com/markramm/pyrite/internal/index/sqlite"
)

// indexer is the subset of *sqlite.Store reconciliation depends on, kept
// as an interface so tests can exercise it against a lighter fake.
type indexer interface {
	RegisterKB(ctx context.Context, name, rootPath, kbType, description string, readOnly bool, shortname string, ephemeral bool, ttlSeconds int64, createdAtTS time.Time, repoName string) error
	Upsert(ctx context.Context, rec sqlite.EntryRecord) error
	Delete(ctx context.Context, id, kbName string) (bool, error)
	IndexStateForKB(ctx context.Context, kbName string) (map[string]sqlite.IndexState, error)
}

// Reconciler walks a KB's files and keeps the index in sync with them.
type Reconciler struct {
	index indexer
	log   *slog.Logger
}

// New returns a Reconciler writing to index.
func New(index indexer, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{index: index, log: log}
}

// Result summarizes one reconciliation pass.
type Result struct {
	Added      int
	Updated    int
	Unchanged  int
	Removed    int
	Errors     []FileError
}

// FileError pairs a path with the error encountered processing it;
// per-file errors are logged and counted, never propagated, so one
// malformed file can't abort reconciliation of the rest of the KB.
type FileError struct {
	Path string
	Err  error
}

// FullReindex registers kb and indexes every Markdown file under its
// root from scratch, regardless of prior index state.
func (r *Reconciler) FullReindex(ctx context.Context, kb *entrymodel.KB) (Result, error) {
	if err := r.index.RegisterKB(ctx, kb.Name, kb.RootPath, kb.Type, kb.Description,
		kb.ReadOnly, kb.Shortname, kb.Ephemeral, int64(kb.TTL.Seconds()), kb.CreatedAtTS, kb.RepoName); err != nil {
		return Result{}, fmt.Errorf("reconcile: register kb %s: %w", kb.Name, err)
	}

	files, err := walkMarkdownFiles(kb.RootPath)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: walk %s: %w", kb.RootPath, err)
	}

	var result Result
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	resultsCh := make(chan indexOutcome, len(files))

	for _, path := range files {
		path := path
		g.Go(func() error {
			rec, indexErr := buildRecord(kb, path)
			resultsCh <- indexOutcome{path: path, rec: rec, err: indexErr}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}
	close(resultsCh)

	for outcome := range resultsCh {
		if outcome.err != nil {
			result.Errors = append(result.Errors, FileError{Path: outcome.path, Err: outcome.err})
			r.log.Warn("reconcile: skipping unreadable file", "path", outcome.path, "error", outcome.err)
			continue
		}
		if err := r.index.Upsert(ctx, outcome.rec); err != nil {
			result.Errors = append(result.Errors, FileError{Path: outcome.path, Err: err})
			r.log.Warn("reconcile: upsert failed", "path", outcome.path, "error", err)
			continue
		}
		result.Added++
	}

	return result, nil
}

type indexOutcome struct {
	path string
	rec  sqlite.EntryRecord
	err  error
}

// IncrementalSync classifies every file under kb's root against the
// current index state and applies the minimal set of changes: added
// files are upserted, changed files are re-upserted, unchanged files are
// skipped, and ids present in the index but no longer backed by a file
// are deleted.
func (r *Reconciler) IncrementalSync(ctx context.Context, kb *entrymodel.KB) (Result, error) {
	state, err := r.index.IndexStateForKB(ctx, kb.Name)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: load index state for %s: %w", kb.Name, err)
	}

	files, err := walkMarkdownFiles(kb.RootPath)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: walk %s: %w", kb.RootPath, err)
	}

	var result Result
	seen := map[string]bool{}

	for _, path := range files {
		rec, err := buildRecord(kb, path)
		if err != nil {
			result.Errors = append(result.Errors, FileError{Path: path, Err: err})
			r.log.Warn("reconcile: skipping unreadable file", "path", path, "error", err)
			continue
		}
		seen[rec.ID] = true

		existing, known := state[rec.ID]
		switch {
		case !known:
			if err := r.index.Upsert(ctx, rec); err != nil {
				result.Errors = append(result.Errors, FileError{Path: path, Err: err})
				continue
			}
			result.Added++
		case isStale(path, existing.IndexedAt):
			if err := r.index.Upsert(ctx, rec); err != nil {
				result.Errors = append(result.Errors, FileError{Path: path, Err: err})
				continue
			}
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	for id := range state {
		if !seen[id] {
			if _, err := r.index.Delete(ctx, id, kb.Name); err != nil {
				result.Errors = append(result.Errors, FileError{Path: id, Err: err})
				continue
			}
			result.Removed++
		}
	}

	return result, nil
}

// isStale compares a file's mtime, read as a UTC instant, against the
// index's recorded indexed_at, also UTC. Both sides are normalized
// explicitly since a naive local-time comparison would misclassify files
// on systems where the index and filesystem disagree on zone.
func isStale(path string, indexedAt time.Time) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.ModTime().UTC().After(indexedAt.UTC())
}

func walkMarkdownFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || strings.Contains(strings.ToLower(d.Name()), "template")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) == ".md" && !strings.Contains(strings.ToLower(d.Name()), "template") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func buildRecord(kb *entrymodel.KB, path string) (sqlite.EntryRecord, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path discovered by WalkDir under the KB root
	if err != nil {
		return sqlite.EntryRecord{}, fmt.Errorf("read: %w", err)
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return sqlite.EntryRecord{}, fmt.Errorf("parse: %w", err)
	}

	id, _ := doc.Fields["id"].(string)
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(path), ".md")
	}
	title, _ := doc.Fields["title"].(string)
	if title == "" {
		title = doc.TitleFallback
	}
	entryType, _ := doc.Fields["type"].(string)
	summary, _ := doc.Fields["summary"].(string)

	info, statErr := os.Stat(path)
	updatedAt := time.Now().UTC()
	if statErr == nil {
		updatedAt = info.ModTime().UTC()
	}

	return sqlite.EntryRecord{
		ID:        id,
		KBName:    kb.Name,
		EntryType: entryType,
		Title:     title,
		Body:      doc.Body,
		Summary:   summary,
		FilePath:  path,
		Metadata:  doc.Fields,
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		Tags:      toStrings(doc.Fields["tags"]),
		Sources:   toSources(doc.Fields["sources"]),
		Links:     toLinks(doc.Fields["links"]),
	}, nil
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toSources(v any) []entrymodel.Source {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]entrymodel.Source, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := entrymodel.Source{}
		s.Title, _ = m["title"].(string)
		s.URL, _ = m["url"].(string)
		s.Verified, _ = m["verified"].(bool)
		s.Note, _ = m["note"].(string)
		out = append(out, s)
	}
	return out
}

func toLinks(v any) []entrymodel.Link {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]entrymodel.Link, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		l := entrymodel.Link{}
		l.Target, _ = m["target"].(string)
		l.TargetKB, _ = m["kb"].(string)
		l.Relation, _ = m["relation"].(string)
		l.Note, _ = m["note"].(string)
		out = append(out, l)
	}
	return out
}
