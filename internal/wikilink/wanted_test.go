package wikilink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/wikilink"
)

func TestAggregateWantedSortsByCountThenID(t *testing.T) {
	refs := []wikilink.UnresolvedRef{
		{TargetID: "b", TargetKB: "home", SourceEntryID: "s1"},
		{TargetID: "a", TargetKB: "home", SourceEntryID: "s1"},
		{TargetID: "a", TargetKB: "home", SourceEntryID: "s2"},
	}

	pages := wikilink.AggregateWanted(refs)
	require.Len(t, pages, 2)
	assert.Equal(t, "a", pages[0].TargetID)
	assert.Equal(t, 2, pages[0].Count)
	assert.Equal(t, []string{"s1", "s2"}, pages[0].ReferencedBy)
	assert.Equal(t, "b", pages[1].TargetID)
}

func TestAggregateWantedCapsReferencingList(t *testing.T) {
	var refs []wikilink.UnresolvedRef
	for i := 0; i < 60; i++ {
		refs = append(refs, wikilink.UnresolvedRef{TargetID: "x", TargetKB: "home", SourceEntryID: "s"})
	}
	pages := wikilink.AggregateWanted(refs)
	require.Len(t, pages, 1)
	assert.Equal(t, 60, pages[0].Count)
	assert.Len(t, pages[0].ReferencedBy, 50)
}
