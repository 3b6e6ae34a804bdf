package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// Issue is one validation finding. Severity distinguishes a hard failure
// (blocks the write when Validation.Enforce is set) from a warning that is
// always surfaced but never blocks.
type Issue struct {
	Field    string
	Message  string
	Severity Severity
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Validate checks fields (the entry's raw frontmatter map, before variant
// construction) against typeName's declaration in s. A nil schema, or a
// schema with no declaration for typeName, yields no issues: undeclared
// types are permitted and unvalidated.
func Validate(s *entrymodel.Schema, typeName string, fields map[string]any) []Issue {
	if s == nil {
		return nil
	}
	td, ok := s.LookupType(typeName)
	if !ok {
		return nil
	}

	var issues []Issue
	for _, req := range td.Required {
		if !present(fields, req) {
			issues = append(issues, Issue{Field: req, Message: "required field missing", Severity: SeverityError})
		}
	}

	known := make(map[string]bool, len(td.Required)+len(td.Optional))
	for _, f := range td.Required {
		known[f] = true
	}
	for _, f := range td.Optional {
		known[f] = true
	}

	for field, def := range td.Fields {
		known[field] = true
		v, ok := fields[field]
		if !ok {
			continue
		}
		issues = append(issues, validateField(field, def, v)...)
	}

	if !td.AllowOther {
		for field := range fields {
			if reservedField(field) || known[field] {
				continue
			}
			issues = append(issues, Issue{
				Field:    field,
				Message:  "field not declared in schema",
				Severity: SeverityWarning,
			})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
	return issues
}

// HasErrors reports whether issues contains any SeverityError entry.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

func present(fields map[string]any, key string) bool {
	v, ok := fields[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func reservedField(name string) bool {
	switch name {
	case "id", "title", "type", "tags", "summary", "sources", "links",
		"created_by", "modified_by", "created_at", "updated_at":
		return true
	}
	return false
}

func validateField(field string, def entrymodel.FieldDef, v any) []Issue {
	var issues []Issue

	if len(def.Enum) > 0 {
		s, ok := v.(string)
		if !ok || !contains(def.Enum, s) {
			issues = append(issues, Issue{
				Field:    field,
				Message:  fmt.Sprintf("value not in allowed set %v", def.Enum),
				Severity: SeverityError,
			})
		}
	}

	if def.Min != nil || def.Max != nil {
		n, ok := asFloat(v)
		if !ok {
			issues = append(issues, Issue{Field: field, Message: "expected numeric value", Severity: SeverityError})
		} else {
			if def.Min != nil && n < *def.Min {
				issues = append(issues, Issue{Field: field, Message: fmt.Sprintf("value below minimum %v", *def.Min), Severity: SeverityError})
			}
			if def.Max != nil && n > *def.Max {
				issues = append(issues, Issue{Field: field, Message: fmt.Sprintf("value above maximum %v", *def.Max), Severity: SeverityError})
			}
		}
	}

	if def.Pattern != "" {
		s, ok := v.(string)
		if !ok {
			issues = append(issues, Issue{Field: field, Message: "expected string value for pattern match", Severity: SeverityError})
		} else {
			re, err := regexp.Compile(def.Pattern)
			if err != nil {
				issues = append(issues, Issue{Field: field, Message: fmt.Sprintf("invalid pattern in schema: %v", err), Severity: SeverityWarning})
			} else if !re.MatchString(s) {
				issues = append(issues, Issue{Field: field, Message: "value does not match required pattern", Severity: SeverityError})
			}
		}
	}

	return issues
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
