package kbservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/hooks"
	"github.com/markramm/pyrite/internal/idgen"
	"github.com/markramm/pyrite/internal/index/sqlite"
	"github.com/markramm/pyrite/internal/repository"
	"github.com/markramm/pyrite/internal/schema"
)

// EntrySpec is the caller-supplied shape for a new or updated entry: the
// common fields every variant has, plus a passthrough Fields map holding
// type-specific and extension data (the same shape BuildEntry consumes).
type EntrySpec struct {
	ID      string
	Title   string
	Type    string
	Body    string
	Summary string
	Tags    []string
	Sources []entrymodel.Source
	Links   []entrymodel.Link
	Fields  map[string]any
}

// CreateEntry builds, validates, and persists a new entry in kbName,
// running before_save/after_save hooks around the write: build → validate
// → before_save → save (file then index) → after_save → qa.
func (s *Service) CreateEntry(ctx context.Context, kbName string, spec EntrySpec, now time.Time) Result {
	kb, repo, ok := s.lookupKB(kbName)
	if !ok {
		return fail(CodeKBNotFound, "unknown knowledge base %q", kbName)
	}
	if kb.ReadOnly {
		return fail(CodeKBReadOnly, "knowledge base %q is read-only", kbName)
	}

	if spec.ID == "" {
		spec.ID = s.generateID(repo, spec, now)
	}

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
	entry, err := entrymodel.BuildEntry(spec.Type, fields, base)
	if err != nil {
		return fail(CodeValidationFailed, "build entry %s: %v", spec.ID, err)
	}

	inv, err := s.hooks.RunBeforeSave(ctx, kbName, spec.ID, spec.Type, "", fields)
	if err != nil {
		if errors.Is(err, hooks.ErrInvalidTransition) {
			return fail(CodeInvalidTransition, "%v", err)
		}
		return fail(CodeValidationFailed, "before_save hook rejected %s: %v", spec.ID, err)
	}

	path, err := repo.Save(entry, now)
	if err != nil {
		if errors.Is(err, repository.ErrReadOnly) {
			return fail(CodeKBReadOnly, "knowledge base %q is read-only", kbName)
		}
		return fail(CodeValidationFailed, "write %s: %v", spec.ID, err)
	}

	rec := ToRecord(entry, kb, path)
	if err := s.index.Upsert(ctx, rec); err != nil {
		if _, delErr := repo.Delete(spec.ID); delErr != nil {
			s.log.Warn("kbservice: compensating file delete failed after index error", "entry", spec.ID, "error", delErr)
		}
		return fail(CodeValidationFailed, "index %s: %v", spec.ID, err)
	}

	s.hooks.RunAfterSave(ctx, inv)

	var qaIssues []string
	if kb.Schema != nil && kb.Schema.Validation.QAOnWrite {
		qaIssues = issueMessages(schema.Validate(kb.Schema, spec.Type, fields))
	}

	return ok(spec.ID, warnings, qaIssues)
}

// generateID mints an id for a caller that didn't supply one:
// prefix-base36(sha256(title|body|timestamp|nonce)). The nonce loop only
// runs more than once on an actual collision, which a 6-char hash space
// makes vanishingly rare for a single KB.
func (s *Service) generateID(repo *repository.Repository, spec EntrySpec, now time.Time) string {
	prefix := spec.Type
	if prefix == "" {
		prefix = "entry"
	}
	for nonce := 0; nonce < 10; nonce++ {
		id := idgen.GenerateHashID(prefix, spec.Title, spec.Body, "", now, 6, nonce)
		if _, err := repo.Find(id); errors.Is(err, repository.ErrNotFound) {
			return id
		}
	}
	return idgen.GenerateHashID(prefix, spec.Title, spec.Body, "", now, 8, int(now.UnixNano()))
}

func mergedFields(spec EntrySpec) map[string]any {
	fields := make(map[string]any, len(spec.Fields)+4)
	for k, v := range spec.Fields {
		fields[k] = v
	}
	fields["id"] = spec.ID
	fields["title"] = spec.Title
	fields["type"] = spec.Type
	if len(spec.Tags) > 0 {
		fields["tags"] = spec.Tags
	}
	return fields
}

// stripDeclaredFields removes the keys BuildEntry's variant constructors
// already consume, leaving only what belongs in Base.Meta — the metadata
// escape hatch for fields the concrete variant doesn't model.
func stripDeclaredFields(fields map[string]any) map[string]any {
	declared := map[string]bool{
		"id": true, "title": true, "type": true, "tags": true,
		"date": true, "importance": true, "aliases": true,
		"status": true, "assignee": true, "parent_task": true, "dependencies": true,
		"evidence": true, "priority": true, "due_date": true, "agent_context": true,
		"target_id": true, "score": true, "issues": true,
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !declared[k] {
			out[k] = v
		}
	}
	return out
}

func issueSummary(issues []schema.Issue) string {
	msg := ""
	for _, iss := range issues {
		if iss.Severity != schema.SeverityError {
			continue
		}
		if msg != "" {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", iss.Field, iss.Message)
	}
	return msg
}

func issueMessages(issues []schema.Issue) []string {
	var out []string
	for _, iss := range issues {
		out = append(out, fmt.Sprintf("%s: %s (%s)", iss.Field, iss.Message, iss.Severity))
	}
	return out
}

// ToRecord flattens a built Entry plus its resolved path into the shape
// the index stores, including object-ref extraction from the KB's schema.
// Exported so companion packages (taskengine's direct status-mirror path)
// can index-sync an entry without duplicating this flattening logic.
//
// Metadata is the full declared-field snapshot from ToFrontmatter, not
// just Base.Meta's passthrough escape hatch: a type's own modeled fields
// (a task's status and assignee, an event's date) need to be queryable
// through the metadata JSON column too — the CAS claim primitive and the
// rollup cascade's sibling-status query both read status/parent_task out
// of that column directly.
func ToRecord(entry entrymodel.Entry, kb *entrymodel.KB, path string) sqlite.EntryRecord {
	meta := fullMetadata(entry)
	summary, _ := meta["summary"].(string)
	return sqlite.EntryRecord{
		ID:         entry.ID(),
		KBName:     entry.KBName(),
		EntryType:  entry.EntryType(),
		Title:      entry.Title(),
		Body:       entry.Body(),
		Summary:    summary,
		FilePath:   path,
		Metadata:   meta,
		CreatedBy:  entry.Attribution().CreatedBy,
		ModifiedBy: entry.Attribution().ModifiedBy,
		CreatedAt:  entry.CreatedAt(),
		UpdatedAt:  entry.UpdatedAt(),
		Tags:       entry.Tags(),
		Sources:    entry.Sources(),
		Links:      entry.Links(),
		ObjectRefs: buildObjectRefs(kb, entry),
	}
}

// fullMetadata flattens ToFrontmatter's declared-field map into a plain
// map[string]any for JSON storage, covering both a variant's own typed
// fields and Base.Meta's passthrough entries in one pass.
func fullMetadata(entry entrymodel.Entry) map[string]any {
	fm := entry.ToFrontmatter()
	out := make(map[string]any, len(fm.Fields))
	for k, v := range fm.Fields {
		out[k] = v
	}
	return out
}

// buildObjectRefs extracts one ObjectRef per schema-declared object-ref
// field on entry's type that is present and non-empty in its metadata.
func buildObjectRefs(kb *entrymodel.KB, entry entrymodel.Entry) []entrymodel.ObjectRef {
	if kb.Schema == nil {
		return nil
	}
	td, ok := kb.Schema.LookupType(entry.EntryType())
	if !ok {
		return nil
	}
	fields := entry.ToFrontmatter().Fields
	var refs []entrymodel.ObjectRef
	for fieldName, def := range td.Fields {
		if def.Type != "object-ref" {
			continue
		}
		v, ok := fields[fieldName].(string)
		if !ok || v == "" {
			continue
		}
		refs = append(refs, entrymodel.ObjectRef{
			FieldName:  fieldName,
			TargetID:   v,
			TargetKB:   entry.KBName(),
			TargetType: def.TargetType,
		})
	}
	return refs
}
