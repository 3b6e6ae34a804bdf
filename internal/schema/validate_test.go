package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/schema"
)

func taskSchema() *entrymodel.Schema {
	min := 1.0
	max := 5.0
	return &entrymodel.Schema{
		Types: map[string]entrymodel.TypeDef{
			"task": {
				Required: []string{"status"},
				Optional: []string{"assignee"},
				Fields: map[string]entrymodel.FieldDef{
					"status":   {Type: "enum", Enum: []string{"open", "done"}},
					"priority": {Type: "int", Min: &min, Max: &max},
				},
			},
		},
	}
}

func TestValidateRequiredFieldMissing(t *testing.T) {
	issues := schema.Validate(taskSchema(), "task", map[string]any{})
	assert.True(t, schema.HasErrors(issues))
}

func TestValidateEnumRejectsUnknownValue(t *testing.T) {
	issues := schema.Validate(taskSchema(), "task", map[string]any{"status": "archived"})
	assert.True(t, schema.HasErrors(issues))
}

func TestValidateRangeEnforced(t *testing.T) {
	issues := schema.Validate(taskSchema(), "task", map[string]any{"status": "open", "priority": 9.0})
	assert.True(t, schema.HasErrors(issues))
}

func TestValidateUndeclaredFieldIsWarningNotError(t *testing.T) {
	issues := schema.Validate(taskSchema(), "task", map[string]any{"status": "open", "nickname": "x"})
	assert.False(t, schema.HasErrors(issues))
	assert.NotEmpty(t, issues)
}

func TestValidateUnknownTypeIsUnvalidated(t *testing.T) {
	issues := schema.Validate(taskSchema(), "note", map[string]any{})
	assert.Empty(t, issues)
}
