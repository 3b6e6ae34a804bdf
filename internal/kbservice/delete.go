package kbservice

import "context"

// DeleteEntry removes id's file, then its index row (cascading to every
// derived table), then runs after_delete hooks. A missing entry is not an
// error — Delete is idempotent at the repository layer.
func (s *Service) DeleteEntry(ctx context.Context, kbName, entryID string) Result {
	kb, repo, found := s.lookupKB(kbName)
	if !found {
		return fail(CodeKBNotFound, "unknown knowledge base %q", kbName)
	}
	if kb.ReadOnly {
		return fail(CodeKBReadOnly, "knowledge base %q is read-only", kbName)
	}

	removed, err := repo.Delete(entryID)
	if err != nil {
		return fail(CodeValidationFailed, "delete %s: %v", entryID, err)
	}
	if !removed {
		return fail(CodeEntryNotFound, "no entry %q in %q", entryID, kbName)
	}

	if _, err := s.index.Delete(ctx, entryID, kbName); err != nil {
		return fail(CodeValidationFailed, "index delete %s: %v", entryID, err)
	}

	s.hooks.RunAfterDelete(ctx, kbName, entryID, "")
	return ok(entryID, nil, nil)
}
