package kbservice

import (
	"context"
	"errors"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/repository"
	"github.com/markramm/pyrite/internal/schema"
)

// UpdateEntry loads the existing entry (for its created_at/created_by and
// current status), builds the new state from spec, and runs the same
// validate → before_save → save → after_save pipeline as CreateEntry,
// with created_* preserved and old_status available to hooks for
// workflow-transition validation.
func (s *Service) UpdateEntry(ctx context.Context, kbName string, spec EntrySpec, now time.Time) Result {
	kb, repo, found := s.lookupKB(kbName)
	if !found {
		return fail(CodeKBNotFound, "unknown knowledge base %q", kbName)
	}
	if kb.ReadOnly {
		return fail(CodeKBReadOnly, "knowledge base %q is read-only", kbName)
	}

	doc, _, err := repo.Load(spec.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(CodeEntryNotFound, "no entry %q in %q", spec.ID, kbName)
		}
		return fail(CodeValidationFailed, "load %s: %v", spec.ID, err)
	}
	oldStatus, _ := doc.Fields["status"].(string)

	fields := mergedFields(spec)
	issues := schema.Validate(kb.Schema, spec.Type, fields)
	enforce := kb.Schema != nil && kb.Schema.Validation.Enforce
	if schema.HasErrors(issues) && enforce {
		return fail(CodeValidationFailed, "validation failed for %s: %s", spec.ID, issueSummary(issues))
	}
	warnings := issueMessages(issues)

	base := entrymodel.Base{
		ID_: spec.ID, KBName_: kbName, Title_: spec.Title, Body_: spec.Body,
		Summary: spec.Summary, Tags_: spec.Tags, Sources_: spec.Sources, Links_: spec.Links,
		Meta: stripDeclaredFields(fields),
	}
	if createdBy, ok := doc.Fields["created_by"].(string); ok {
		base.Attrib.CreatedBy = createdBy
	}
	if created, ok := parseTime(doc.Fields["created_at"]); ok {
		base.Created = created
	}

	entry, err := entrymodel.BuildEntry(spec.Type, fields, base)
	if err != nil {
		return fail(CodeValidationFailed, "build entry %s: %v", spec.ID, err)
	}

	inv, err := s.hooks.RunBeforeSave(ctx, kbName, spec.ID, spec.Type, oldStatus, fields)
	if err != nil {
		if errors.Is(err, hooks.ErrInvalidTransition) {
			return fail(CodeInvalidTransition, "%v", err)
		}
		return fail(CodeValidationFailed, "before_save hook rejected %s: %v", spec.ID, err)
	}

	path, err := repo.Save(entry, now)
	if err != nil {
		return fail(CodeValidationFailed, "write %s: %v", spec.ID, err)
	}

	rec := ToRecord(entry, kb, path)
	if err := s.index.Upsert(ctx, rec); err != nil {
		return fail(CodeValidationFailed, "index %s: %v", spec.ID, err)
	}

	s.hooks.RunAfterSave(ctx, inv)

	var qaIssues []string
	if kb.Schema != nil && kb.Schema.Validation.QAOnWrite {
		qaIssues = issueMessages(schema.Validate(kb.Schema, spec.Type, fields))
	}

	return ok(spec.ID, warnings, qaIssues)
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
