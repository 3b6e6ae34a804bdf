package frontmatter

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// blockIDPattern matches a trailing explicit block id, e.g. "... text ^abc123",
// the Obsidian/Roam convention this storage format borrows for
// [[entry^block-id]] fragment addressing.
var blockIDPattern = regexp.MustCompile(`\s\^([A-Za-z0-9_-]+)\s*$`)

// ExtractBlocks walks body as CommonMark and emits one Block per heading,
// paragraph, code block (fenced or indented), and list, in document order,
// descending into other container nodes such as block quotes. Both ATX
// ("# Heading") and Setext (underlined) headings parse to ast.Heading and
// become heading blocks. Each block records the "/"-joined path of ancestor
// headings above it.
func ExtractBlocks(entryID, kbName, body string) []entrymodel.Block {
	src := []byte(body)
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	var blocks []entrymodel.Block
	var headingStack []string
	position := 0

	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			switch node := child.(type) {
			case *ast.Heading:
				content := strings.TrimSpace(textOf(node, src))
				headingStack = truncateToLevel(headingStack, node.Level)
				ancestors := append([]string(nil), headingStack...)
				headingStack = append(headingStack, content)
				blocks = append(blocks, newBlock(entryID, kbName, &position, entrymodel.BlockHeading, ancestors, content))
			case *ast.Paragraph:
				content := strings.TrimSpace(textOf(node, src))
				if content == "" {
					continue
				}
				blocks = append(blocks, newBlock(entryID, kbName, &position, entrymodel.BlockParagraph, headingStack, content))
			case *ast.FencedCodeBlock:
				content := collectLines(node, src)
				blocks = append(blocks, newBlock(entryID, kbName, &position, entrymodel.BlockCode, headingStack, content))
			case *ast.CodeBlock:
				content := collectLines(node, src)
				blocks = append(blocks, newBlock(entryID, kbName, &position, entrymodel.BlockCode, headingStack, content))
			case *ast.List:
				content := strings.TrimSpace(textOf(node, src))
				if content != "" {
					blocks = append(blocks, newBlock(entryID, kbName, &position, entrymodel.BlockList, headingStack, content))
				}
			default:
				walk(child)
			}
		}
	}
	walk(root)
	return blocks
}

func truncateToLevel(stack []string, level int) []string {
	if level-1 > len(stack) {
		return stack
	}
	return stack[:level-1]
}

func newBlock(entryID, kbName string, position *int, typ entrymodel.BlockType, ancestors []string, content string) entrymodel.Block {
	blockID := ""
	if m := blockIDPattern.FindStringSubmatch(content); m != nil {
		blockID = m[1]
		content = strings.TrimSpace(blockIDPattern.ReplaceAllString(content, ""))
	}
	b := entrymodel.Block{
		EntryID:  entryID,
		KBName:   kbName,
		Position: *position,
		Type:     typ,
		Heading:  strings.Join(ancestors, "/"),
		Content:  content,
		BlockID:  blockID,
	}
	*position++
	return b
}

// collectLines returns the raw source lines spanned by a block-level node
// (fenced or indented code), trimming the trailing newline.
func collectLines(n ast.Node, src []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// textOf concatenates the literal text content of every inline text/string
// node under n, inserting a space at soft/hard line breaks so wrapped
// paragraphs don't lose word boundaries.
func textOf(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		case *ast.CodeSpan:
			// children (Text nodes) are walked separately; nothing to add here
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
