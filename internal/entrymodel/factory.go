package entrymodel

import (
	"fmt"
	"sync"
)

// Constructor builds a variant from a raw field map (already decoded from
// frontmatter YAML). It returns an error only for malformed field values;
// unknown fields are not an error at this layer (schema validation,
// package schema, is where unknown-field policy is enforced).
type Constructor func(fields map[string]any, base Base) (Entry, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterType adds a plugin-contributed constructor for a type name not
// in the core set. Intended to be called from an external package's
// init(); the registry is process-wide and write-once in practice, so no
// lock is taken on the read path beyond the RWMutex's read side.
func RegisterType(typeName string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[typeName] = ctor
}

// BuildEntry constructs the correct variant for typeName, consulting the
// plugin registry for names outside the core set, and falling back to
// Generic when nothing matches.
func BuildEntry(typeName string, fields map[string]any, base Base) (Entry, error) {
	switch typeName {
	case "note", "":
		return &Note{Base: base}, nil
	case "event":
		return buildEvent(fields, base)
	case "person":
		return buildPerson(fields, base)
	case "org":
		return &Org{Base: base}, nil
	case "task":
		return buildTask(fields, base)
	case "collection":
		return &Collection{Base: base}, nil
	case "qa-assessment":
		return buildQA(fields, base)
	}

	registryMu.RLock()
	ctor, ok := registry[typeName]
	registryMu.RUnlock()
	if ok {
		return ctor(fields, base)
	}

	return &Generic{Base: base, TypeName: typeName, Raw: stripKnownBaseKeys(fields)}, nil
}

func buildEvent(fields map[string]any, base Base) (Entry, error) {
	e := &Event{Base: base}
	if v, ok := fields["date"].(string); ok {
		e.Date = v
	}
	switch v := fields["importance"].(type) {
	case int:
		e.Importance = v
	case float64:
		e.Importance = int(v)
	}
	return e, nil
}

func buildPerson(fields map[string]any, base Base) (Entry, error) {
	p := &Person{Base: base}
	p.Aliases = toStringSlice(fields["aliases"])
	return p, nil
}

func buildTask(fields map[string]any, base Base) (Entry, error) {
	t := &Task{Base: base}
	if v, ok := fields["status"].(string); ok && v != "" {
		t.Status = TaskStatus(v)
	} else {
		t.Status = StatusOpen
	}
	if v, ok := fields["assignee"].(string); ok {
		t.Assignee = v
	}
	if v, ok := fields["parent_task"].(string); ok {
		t.ParentTask = v
	}
	t.Dependencies = toStringSlice(fields["dependencies"])
	t.Evidence = toStringSlice(fields["evidence"])
	switch v := fields["priority"].(type) {
	case int:
		t.Priority = v
	case float64:
		t.Priority = int(v)
	}
	if v, ok := fields["due_date"].(string); ok {
		t.DueDate = v
	}
	if v, ok := fields["agent_context"].(map[string]any); ok {
		t.AgentContext = v
	}
	return t, nil
}

func buildQA(fields map[string]any, base Base) (Entry, error) {
	q := &QAAssessment{Base: base}
	if v, ok := fields["target_id"].(string); ok {
		q.TargetID = v
	} else {
		return nil, fmt.Errorf("qa-assessment requires target_id")
	}
	switch v := fields["score"].(type) {
	case float64:
		q.Score = v
	case int:
		q.Score = float64(v)
	}
	q.Issues = toStringSlice(fields["issues"])
	return q, nil
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

var baseKeys = map[string]bool{
	"id": true, "title": true, "type": true, "tags": true, "summary": true,
	"sources": true, "links": true, "created_by": true, "modified_by": true,
	"created_at": true, "updated_at": true,
}

func stripKnownBaseKeys(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !baseKeys[k] {
			out[k] = v
		}
	}
	return out
}
