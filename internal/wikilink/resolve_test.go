package wikilink_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markramm/pyrite/internal/wikilink"
)

type fakeLookup struct {
	byID    map[string]wikilink.Candidate
	byTitle map[string][]wikilink.Candidate
	byAlias map[string][]wikilink.Candidate
}

func (f fakeLookup) FindByID(kb, id string) (wikilink.Candidate, bool) {
	c, ok := f.byID[kb+"/"+id]
	return c, ok
}
func (f fakeLookup) FindByTitle(kb, title string) []wikilink.Candidate {
	for key, candidates := range f.byTitle {
		if strings.EqualFold(key, kb+"/"+title) {
			return candidates
		}
	}
	return nil
}
func (f fakeLookup) FindByAlias(kb, alias string) []wikilink.Candidate {
	return f.byAlias[kb+"/"+alias]
}
func (f fakeLookup) FindByIDs(kb string, ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		_, ok := f.byID[kb+"/"+id]
		out[id] = ok
	}
	return out
}

func TestResolveShortnameWinsOverFullnameCollision(t *testing.T) {
	ctx := wikilink.Context{
		DefaultKB:      "home",
		ShortnameIndex: map[string]string{"dev": "dev-kb-full"},
		KnownKBs:       map[string]bool{"dev": true, "dev-kb-full": true},
	}
	lookup := fakeLookup{byID: map[string]wikilink.Candidate{
		"dev-kb-full/entry-1": {ID: "entry-1", KBName: "dev-kb-full", Title: "Entry One"},
	}}

	link := wikilink.Link{KBPrefix: "dev", Target: "entry-1"}
	c, ok := wikilink.Resolve(link, ctx, lookup)
	assert.True(t, ok)
	assert.Equal(t, "dev-kb-full", c.KBName)
}

func TestResolveFallsBackToCaseInsensitiveTitle(t *testing.T) {
	ctx := wikilink.Context{DefaultKB: "home", KnownKBs: map[string]bool{"home": true}}
	lookup := fakeLookup{
		byID: map[string]wikilink.Candidate{},
		byTitle: map[string][]wikilink.Candidate{
			"home/Project Kickoff": {{ID: "e1", KBName: "home", Title: "Project Kickoff"}},
		},
	}

	link := wikilink.Link{Target: "project kickoff"}
	c, ok := wikilink.Resolve(link, ctx, lookup)
	assert.True(t, ok)
	assert.Equal(t, "e1", c.ID)
}

func TestResolveNoneWhenNothingMatches(t *testing.T) {
	ctx := wikilink.Context{DefaultKB: "home", KnownKBs: map[string]bool{"home": true}}
	lookup := fakeLookup{}
	_, ok := wikilink.Resolve(wikilink.Link{Target: "missing"}, ctx, lookup)
	assert.False(t, ok)
}

func TestResolveBatchCollapsesSameContextTargetsIntoOneCall(t *testing.T) {
	ctx := wikilink.Context{
		DefaultKB:      "A",
		ShortnameIndex: map[string]string{"dev": "A"},
		KnownKBs:       map[string]bool{"A": true},
	}
	lookup := fakeLookup{byID: map[string]wikilink.Candidate{
		"A/hello": {ID: "hello", KBName: "A", Title: "Hello"},
		"A/other": {ID: "other", KBName: "A", Title: "Other"},
	}}

	links := []wikilink.Link{
		{Target: "hello"},
		{Target: "missing"},
		{KBPrefix: "dev", Target: "other"},
	}

	result := wikilink.ResolveBatch(links, ctx, lookup)
	assert.Equal(t, map[string]bool{
		"hello":     true,
		"missing":   false,
		"dev:other": true,
	}, result)
}

func TestResolveBatchEmptyInput(t *testing.T) {
	ctx := wikilink.Context{DefaultKB: "home"}
	result := wikilink.ResolveBatch(nil, ctx, fakeLookup{})
	assert.Empty(t, result)
}
