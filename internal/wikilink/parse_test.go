package wikilink_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/wikilink"
)

func TestParseFullGrammar(t *testing.T) {
	body := "See [[dev:project-x#Rollout Plan^step-2|the rollout plan]] for details."
	links := wikilink.Parse(body)
	require.Len(t, links, 1)

	l := links[0]
	assert.Equal(t, wikilink.KindLink, l.Kind)
	assert.Equal(t, "dev", l.KBPrefix)
	assert.Equal(t, "project-x", l.Target)
	assert.Equal(t, "Rollout Plan", l.Heading)
	assert.Equal(t, "step-2", l.BlockID)
	assert.Equal(t, "the rollout plan", l.Display)
}

func TestParseTransclusion(t *testing.T) {
	links := wikilink.Parse("![[shared-note]]")
	require.Len(t, links, 1)
	assert.Equal(t, wikilink.KindTransclude, links[0].Kind)
	assert.Equal(t, "shared-note", links[0].Target)
}

func TestParseBareTarget(t *testing.T) {
	links := wikilink.Parse("Plain [[some-entry]] reference.")
	require.Len(t, links, 1)
	l := links[0]
	assert.Empty(t, l.KBPrefix)
	assert.Equal(t, "some-entry", l.Target)
	assert.Empty(t, l.Heading)
	assert.Empty(t, l.BlockID)
	assert.Empty(t, l.Display)
}

func TestParseMultipleLinksInOrder(t *testing.T) {
	links := wikilink.Parse("[[a]] then [[b|B]] then ![[c]]")
	require.Len(t, links, 3)
	assert.Equal(t, "a", links[0].Target)
	assert.Equal(t, "b", links[1].Target)
	assert.Equal(t, "B", links[1].Display)
	assert.Equal(t, wikilink.KindTransclude, links[2].Kind)
}
