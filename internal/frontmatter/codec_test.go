package frontmatter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/frontmatter"
)

func TestParseRoundTripPreservesOrderAndStyle(t *testing.T) {
	raw := []byte("---\nid: \"abc123\"\ntitle: First Contact\ntags:\n  - space\n  - log\n---\n\nSome body text.\n")

	doc, err := frontmatter.Parse(raw)
	require.NoError(t, err)
	assert.True(t, doc.HasFrontmatter)
	assert.Equal(t, []string{"id", "title", "tags"}, doc.FieldOrder)
	assert.Equal(t, "Some body text.\n", doc.Body)

	fm := &entrymodel.FrontmatterDoc{Body: doc.Body}
	fm.Set("id", doc.Fields["id"])
	fm.Set("title", doc.Fields["title"])
	fm.Set("tags", doc.Fields["tags"])

	out, err := frontmatter.Serialize(fm, doc)
	require.NoError(t, err)
	assert.Equal(t, string(raw), string(out))
}

func TestParseNoFrontmatterFallsBackToFirstHeading(t *testing.T) {
	raw := []byte("# Meeting Notes\n\nDiscussed roadmap.\n")

	doc, err := frontmatter.Parse(raw)
	require.NoError(t, err)
	assert.False(t, doc.HasFrontmatter)
	assert.Equal(t, "Meeting Notes", doc.TitleFallback)
	assert.Equal(t, string(raw), doc.Body)
}

func TestSerializeChangedValueWritesNewValue(t *testing.T) {
	raw := []byte("---\nstatus: open # was blocked last week\n---\n\nBody.\n")
	doc, err := frontmatter.Parse(raw)
	require.NoError(t, err)

	fm := &entrymodel.FrontmatterDoc{Body: doc.Body}
	fm.Set("status", "done")

	out, err := frontmatter.Serialize(fm, doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), "status: done")
}

func TestExtractBlocksTracksHeadingPathAndBlockID(t *testing.T) {
	body := "# Top\n\nIntro paragraph.\n\n## Sub\n\nDetail paragraph. ^detail-1\n\n```go\nfmt.Println(\"hi\")\n```\n"

	blocks := frontmatter.ExtractBlocks("entry-1", "kb", body)
	require.NotEmpty(t, blocks)

	var found bool
	for _, b := range blocks {
		if b.BlockID == "detail-1" {
			found = true
			assert.Equal(t, "Top/Sub", b.Heading)
			assert.Equal(t, entrymodel.BlockParagraph, b.Type)
		}
	}
	assert.True(t, found, "expected a paragraph block carrying the explicit block id")

	var sawCode bool
	for _, b := range blocks {
		if b.Type == entrymodel.BlockCode {
			sawCode = true
			assert.Contains(t, b.Content, "fmt.Println")
		}
	}
	assert.True(t, sawCode)
}
