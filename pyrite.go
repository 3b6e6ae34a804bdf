// Package pyrite provides a minimal public API for embedding the storage
// engine in another Go program: load the global config, open the index,
// register each configured knowledge base, and get back a ready-to-use
// write-path facade. Most callers that need finer control should use
// internal/kbservice and internal/config directly; this package exists
// for the common "just open everything and go" case, the same role the
// teacher's own top-level package plays for its storage layer.
package pyrite

import (
	"context"
	"fmt"

	"github.com/markramm/pyrite/internal/config"
	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/kbservice"
	"github.com/markramm/pyrite/internal/schema"
	"github.com/markramm/pyrite/internal/taskengine"
)

// Core types for working with entries
type (
	Entry      = entrymodel.Entry
	KB         = entrymodel.KB
	Result     = kbservice.Result
	EntrySpec  = kbservice.EntrySpec
	TaskStatus = entrymodel.TaskStatus
)

// Task status constants
const (
	StatusOpen       = entrymodel.StatusOpen
	StatusClaimed    = entrymodel.StatusClaimed
	StatusInProgress = entrymodel.StatusInProgress
	StatusBlocked    = entrymodel.StatusBlocked
	StatusReview     = entrymodel.StatusReview
	StatusDone       = entrymodel.StatusDone
	StatusFailed     = entrymodel.StatusFailed
)

// Engine bundles the pieces an embedder normally needs together: the
// write-path service, the task workflow engine, and the index store
// underneath both (exposed for callers that want to run their own
// queries or pass it to internal/reconcile directly).
type Engine struct {
	Config     *config.Config
	Service    *kbservice.Service
	Tasks      *taskengine.Engine
	Index      *sqlite.Store
}

// Open loads pyrite.yaml from configPath, opens the index database at
// its configured index_path, registers every knowledge base the config
// declares, and wires the task engine's hooks in. The returned Engine's
// Index.Close should be deferred by the caller.
func Open(ctx context.Context, configPath string) (*Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("pyrite: load config: %w", err)
	}

	index, err := sqlite.Open(ctx, cfg.Settings.IndexPath, nil)
	if err != nil {
		return nil, fmt.Errorf("pyrite: open index: %w", err)
	}

	svc := kbservice.New(index, schema.NewRegistry(), hooks.NewRegistry(nil), nil)
	tasks := taskengine.New(svc, index, nil)
	if err := tasks.Register(); err != nil {
		index.Close()
		return nil, fmt.Errorf("pyrite: register task engine hooks: %w", err)
	}

	for _, kb := range cfg.ResolvedKnowledgeBases() {
		if err := svc.RegisterKB(ctx, kb); err != nil {
			index.Close()
			return nil, fmt.Errorf("pyrite: register kb %s: %w", kb.Name, err)
		}
	}

	return &Engine{Config: cfg, Service: svc, Tasks: tasks, Index: index}, nil
}

// Close releases the engine's index database handle.
func (e *Engine) Close() error {
	return e.Index.Close()
}
