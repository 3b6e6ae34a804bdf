// Package hooks implements the write-path plugin registry: before_save,
// after_save, and after_delete callbacks invoked by internal/kbservice
// around every entry mutation. Hooks are process-wide, registered once at
// startup (workflow validation, reindex triggers, and similar cross-cutting
// concerns hang off this registry rather than being wired into kbservice
// directly), and run in registration order.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidTransition is the sentinel a before_save hook wraps when it
// rejects a write for violating a declared workflow graph (see
// internal/taskengine's transition-validation hook). Kept here, rather
// than in taskengine, so kbservice can recognize it without importing
// taskengine and creating a cycle.
var ErrInvalidTransition = errors.New("hooks: invalid workflow transition")

// Invocation carries the context one hook callback needs: which entry is
// being written, to which KB, and (for updates) what its prior status was,
// so a before_save hook can validate a workflow transition without a
// separate read.
type Invocation struct {
	CorrelationID string
	KBName        string
	EntryID       string
	EntryType     string
	OldStatus     string
	Fields        map[string]any
}

// Hook is the interface a plugin implements. Embed BaseHook to pick up
// no-op defaults for the callbacks a given hook doesn't care about.
type Hook interface {
	BeforeSave(ctx context.Context, inv *Invocation) error
	AfterSave(ctx context.Context, inv *Invocation) error
	AfterDelete(ctx context.Context, inv *Invocation) error
}

// BaseHook implements Hook with no-op methods. Embed it in a concrete hook
// type and override only the callbacks that type needs.
type BaseHook struct{}

func (BaseHook) BeforeSave(context.Context, *Invocation) error  { return nil }
func (BaseHook) AfterSave(context.Context, *Invocation) error   { return nil }
func (BaseHook) AfterDelete(context.Context, *Invocation) error { return nil }

type registration struct {
	id   string
	hook Hook
}

// Registry holds the process-wide set of registered hooks, in the order
// they were registered. There is normally exactly one Registry per
// process, constructed once at startup by the command that wires up
// kbservice.
type Registry struct {
	mu    sync.RWMutex
	order []registration
	byID  map[string]Hook
	log   *slog.Logger
}

// NewRegistry returns an empty hook registry. A nil logger falls back to
// slog.Default.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{byID: make(map[string]Hook), log: log}
}

// Register adds hook under id, appended after any previously registered
// hook. Registering the same id twice is an error — callers that want to
// replace a hook must Unregister first.
func (r *Registry) Register(id string, hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("hooks: %q already registered", id)
	}
	r.byID[id] = hook
	r.order = append(r.order, registration{id: id, hook: hook})
	return nil
}

// Unregister removes the hook registered under id, if any.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return
	}
	delete(r.byID, id)
	for i, reg := range r.order {
		if reg.id == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// snapshot returns a copy of the registration order, so callbacks can run
// without holding the registry lock (a hook is free to Register/Unregister
// another hook from within a callback without deadlocking).
func (r *Registry) snapshot() []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]registration, len(r.order))
	copy(out, r.order)
	return out
}

// newInvocation stamps inv with a fresh correlation id for log correlation
// across the chain of callbacks it triggers.
func newInvocation(kbName, entryID, entryType, oldStatus string, fields map[string]any) *Invocation {
	return &Invocation{
		CorrelationID: uuid.NewString(),
		KBName:        kbName,
		EntryID:       entryID,
		EntryType:     entryType,
		OldStatus:     oldStatus,
		Fields:        fields,
	}
}

// RunBeforeSave runs every registered hook's BeforeSave in order, stopping
// and returning the first error — a before_save hook can veto a write (for
// example, rejecting an illegal workflow transition), so later hooks must
// not run once one has failed.
func (r *Registry) RunBeforeSave(ctx context.Context, kbName, entryID, entryType, oldStatus string, fields map[string]any) (*Invocation, error) {
	inv := newInvocation(kbName, entryID, entryType, oldStatus, fields)
	for _, reg := range r.snapshot() {
		if err := reg.hook.BeforeSave(ctx, inv); err != nil {
			r.log.Debug("hooks: before_save rejected", "hook", reg.id, "correlation_id", inv.CorrelationID, "entry", entryID, "error", err)
			return inv, fmt.Errorf("hook %q: %w", reg.id, err)
		}
	}
	return inv, nil
}

// RunAfterSave runs every registered hook's AfterSave in order. Unlike
// BeforeSave, a failure here does not undo the write that already
// committed — it is logged and the remaining hooks still run, since
// after_save hooks are side effects (reindex triggers, notifications)
// rather than gates.
func (r *Registry) RunAfterSave(ctx context.Context, inv *Invocation) {
	for _, reg := range r.snapshot() {
		if err := reg.hook.AfterSave(ctx, inv); err != nil {
			r.log.Warn("hooks: after_save failed", "hook", reg.id, "correlation_id", inv.CorrelationID, "entry", inv.EntryID, "error", err)
		}
	}
}

// RunAfterDelete runs every registered hook's AfterDelete in order, same
// best-effort semantics as RunAfterSave.
func (r *Registry) RunAfterDelete(ctx context.Context, kbName, entryID, entryType string) {
	inv := newInvocation(kbName, entryID, entryType, "", nil)
	for _, reg := range r.snapshot() {
		if err := reg.hook.AfterDelete(ctx, inv); err != nil {
			r.log.Warn("hooks: after_delete failed", "hook", reg.id, "correlation_id", inv.CorrelationID, "entry", entryID, "error", err)
		}
	}
}
