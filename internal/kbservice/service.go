// Package kbservice is the public write-path facade: it builds entries via
// the factory, runs schema validation and before_save/after_save hooks,
// and dispatches to the repository (file) and index (SQLite) in the
// order the ordering guarantees require — file write before index
// upsert, so index-visible state always implies a persisted file.
package kbservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/repository"
	"github.com/markramm/pyrite/internal/schema"
)

// indexStore is the subset of *sqlite.Store the service depends on, kept
// narrow so tests can substitute a lighter fake.
type indexStore interface {
	RegisterKB(ctx context.Context, name, rootPath, kbType, description string, readOnly bool, shortname string, ephemeral bool, ttlSeconds int64, createdAtTS time.Time, repoName string) error
	Upsert(ctx context.Context, rec sqlite.EntryRecord) error
	Delete(ctx context.Context, id, kbName string) (bool, error)
	GetEntry(ctx context.Context, id, kbName string) (sqlite.EntryRecord, error)
	Search(ctx context.Context, kbName, query string, limit int) ([]sqlite.SearchHit, error)
}

// Service is the write-path facade for a set of registered KBs, sharing
// one index store, one schema registry, and one hook registry.
type Service struct {
	mu      sync.RWMutex
	kbs     map[string]*entrymodel.KB
	repos   map[string]*repository.Repository
	schemas *schema.Registry
	index   indexStore
	hooks   *hooks.Registry
	log     *slog.Logger
}

// New returns a Service with no KBs registered yet. A nil hooks registry
// is replaced with an empty one so callers need not special-case "no
// hooks configured".
func New(index indexStore, schemas *schema.Registry, hookRegistry *hooks.Registry, log *slog.Logger) *Service {
	if schemas == nil {
		schemas = schema.NewRegistry()
	}
	if hookRegistry == nil {
		hookRegistry = hooks.NewRegistry(log)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		kbs:     make(map[string]*entrymodel.KB),
		repos:   make(map[string]*repository.Repository),
		schemas: schemas,
		index:   index,
		hooks:   hookRegistry,
		log:     log,
	}
}

// RegisterKB loads kb's schema (if any), registers it with the index, and
// makes it available to the write-path methods under kb.Name.
func (s *Service) RegisterKB(ctx context.Context, kb *entrymodel.KB) error {
	sch, err := s.schemas.Load(kb.RootPath)
	if err != nil {
		return fmt.Errorf("kbservice: load schema for %s: %w", kb.Name, err)
	}
	kb.Schema = sch

	if err := s.index.RegisterKB(ctx, kb.Name, kb.RootPath, kb.Type, kb.Description,
		kb.ReadOnly, kb.Shortname, kb.Ephemeral, int64(kb.TTL.Seconds()), kb.CreatedAtTS, kb.RepoName); err != nil {
		return fmt.Errorf("kbservice: register kb %s: %w", kb.Name, err)
	}

	s.mu.Lock()
	s.kbs[kb.Name] = kb
	s.repos[kb.Name] = repository.New(kb)
	s.mu.Unlock()
	return nil
}

func (s *Service) lookupKB(kbName string) (*entrymodel.KB, *repository.Repository, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kb, ok := s.kbs[kbName]
	if !ok {
		return nil, nil, false
	}
	return kb, s.repos[kbName], true
}

// Repository exposes the file-level repository and KB descriptor for
// kbName, for companion packages (taskengine's claim mirroring and
// checkpoint body edits) that need lower-level file access alongside the
// validated write pipeline CreateEntry/UpdateEntry provide.
func (s *Service) Repository(kbName string) (*repository.Repository, *entrymodel.KB, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kb, ok := s.kbs[kbName]
	if !ok {
		return nil, nil, false
	}
	return s.repos[kbName], kb, true
}

// Hooks returns the shared hook registry, so packages that contribute
// before_save/after_save hooks (taskengine's workflow and rollup hooks)
// can register against the same registry kbservice invokes.
func (s *Service) Hooks() *hooks.Registry {
	return s.hooks
}

// KnownKBs returns the names of every registered KB.
func (s *Service) KnownKBs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.kbs))
	for name := range s.kbs {
		out = append(out, name)
	}
	return out
}
