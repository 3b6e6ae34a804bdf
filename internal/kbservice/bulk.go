package kbservice

import (
	"context"
	"time"
)

// BulkCreate processes specs independently, isolating each item's
// validation/hook failures from the rest: one malformed spec does not
// abort the batch. Results are returned in the same order as specs.
func (s *Service) BulkCreate(ctx context.Context, kbName string, specs []EntrySpec, now time.Time) []Result {
	results := make([]Result, len(specs))
	for i, spec := range specs {
		results[i] = s.CreateEntry(ctx, kbName, spec, now)
	}
	return results
}
