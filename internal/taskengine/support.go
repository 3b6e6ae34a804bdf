package taskengine

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/frontmatter"
)

// loadTaskBase reconstructs the Base fields a round-trip write must
// preserve (tags, sources, links, summary, attribution, created_at) from
// a parsed document. Save only re-serializes the keys the returned Entry
// declares, so anything dropped here is silently lost from the file on
// the next write — unlike kbservice's CreateEntry/UpdateEntry, which take
// a full EntrySpec from the caller, taskengine's targeted edits (claim,
// checkpoint, rollup) only intend to change one or two fields and must
// carry the rest forward themselves.
func loadTaskBase(doc *frontmatter.Document, kbName, id string) (entrymodel.Base, map[string]any) {
	fields := cloneFields(doc.Fields)

	base := entrymodel.Base{
		ID_:     id,
		KBName_: kbName,
		Title_:  stringField(fields, "title"),
		Body_:   doc.Body,
		Summary: stringField(fields, "summary"),
	}
	_ = decodeInto(fields["tags"], &base.Tags_)
	_ = decodeInto(fields["sources"], &base.Sources_)
	_ = decodeInto(fields["links"], &base.Links_)

	if createdBy, ok := fields["created_by"].(string); ok {
		base.Attrib.CreatedBy = createdBy
	}
	if modifiedBy, ok := fields["modified_by"].(string); ok {
		base.Attrib.ModifiedBy = modifiedBy
	}
	if created, ok := parseTime(fields["created_at"]); ok {
		base.Created = created
	}
	base.Meta = stripTaskFields(fields)
	return base, fields
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// decodeInto re-marshals a generically-decoded YAML value (map[string]any
// or []any, as frontmatter.Parse produces for every field) into a
// concrete Go type, recovering the typed Source/Link/tag slices the
// Entry interface expects.
func decodeInto(raw any, target any) error {
	if raw == nil {
		return nil
	}
	b, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, target)
}

// taskDeclaredFields are the keys buildTask (and Base's own fields)
// already consume; everything else belongs in Base.Meta.
var taskDeclaredFields = map[string]bool{
	"id": true, "title": true, "type": true, "tags": true, "summary": true,
	"sources": true, "links": true, "created_by": true, "modified_by": true,
	"created_at": true, "updated_at": true,
	"status": true, "assignee": true, "parent_task": true, "dependencies": true,
	"evidence": true, "priority": true, "due_date": true, "agent_context": true,
}

func stripTaskFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !taskDeclaredFields[k] {
			out[k] = v
		}
	}
	return out
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if t == "" {
			return time.Time{}, false
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse("2006-01-02", t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
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
