package kbservice

import (
	"context"

	"github.com/markramm/pyrite/internal/index/sqlite"
)

// SearchResult is the read-path counterpart to Result: search failures are
// rare enough (malformed query, no KB registered yet) that a simpler
// {Hits, Error} shape suffices rather than reusing the write-path Result.
type SearchResult struct {
	Hits  []sqlite.SearchHit
	Error *ResultError
}

// Search runs a full-text query scoped to kbName (or every registered KB
// when kbName is empty). Querying before any KB has been registered is
// reported as INDEX_EMPTY rather than an empty hit list, since the two
// are observably different states to a caller deciding whether to trigger
// a reindex.
func (s *Service) Search(ctx context.Context, kbName, query string, limit int) SearchResult {
	if len(s.KnownKBs()) == 0 {
		return SearchResult{Error: &ResultError{Code: CodeIndexEmpty, Message: "no knowledge base has been registered yet"}}
	}
	if kbName != "" {
		if _, _, found := s.lookupKB(kbName); !found {
			return SearchResult{Error: &ResultError{Code: CodeKBNotFound, Message: "unknown knowledge base " + kbName}}
		}
	}

	hits, err := s.index.Search(ctx, kbName, query, limit)
	if err != nil {
		return SearchResult{Error: &ResultError{Code: CodeValidationFailed, Message: err.Error()}}
	}
	return SearchResult{Hits: hits}
}
