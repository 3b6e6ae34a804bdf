// Package taskengine implements the task-specific workflow primitives
// layered on top of kbservice's generic write pipeline: a single-winner
// claim CAS, decomposition into child tasks, progress checkpoints, and
// the parent-completion rollup cascade, plus the workflow transition
// graph enforced as a before_save hook.
package taskengine

import (
	"log/slog"

	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/kbservice"
)

// Engine is the task-workflow facade. It holds its own reference to the
// index store (for the CAS primitive and sibling-status queries, neither
// of which kbservice's narrower indexStore interface exposes) alongside
// the kbservice.Service used for decomposition and checkpoints.
type Engine struct {
	svc   *kbservice.Service
	index *sqlite.Store
	log   *slog.Logger
}

// New returns an Engine bound to svc and its backing index store. Callers
// normally follow this with Register to wire the workflow and rollup
// hooks into svc's hook registry.
func New(svc *kbservice.Service, index *sqlite.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{svc: svc, index: index, log: log}
}

// Register wires the workflow-transition and rollup hooks into the
// engine's kbservice.Service, so every write through that service is
// subject to transition validation and done-task cascades without the
// caller having to register them by hand.
func (e *Engine) Register() error {
	registry := e.svc.Hooks()
	if err := registry.Register("taskengine.workflow", WorkflowHook{}); err != nil {
		return err
	}
	return registry.Register("taskengine.rollup", RollupHook{Engine: e})
}
