// Package frontmatter parses and serializes the YAML-frontmatter-plus-
// Markdown-body file format entries are stored in. Serialization is
// round-trip-faithful: re-saving a file that was loaded unchanged
// reproduces the original key order, quoting, and attached comments,
// using a yaml.Node splice-in-place technique rather than a decode/
// re-encode round trip.
package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/markramm/pyrite/internal/entrymodel"
)

const fence = "---"

// Document is a parsed file: the decoded frontmatter plus enough of the
// original YAML node tree to splice updated values back in without
// disturbing anything the codec doesn't understand.
type Document struct {
	HasFrontmatter bool
	Fields         map[string]any
	FieldOrder     []string
	Body           string

	// TitleFallback is the text of the first level-1 Markdown heading in
	// Body, used as a display title when frontmatter carries none (plain
	// notes authored without a title: field).
	TitleFallback string

	root *yaml.Node // frontmatter mapping node, nil if HasFrontmatter is false
}

// Parse splits raw file content into frontmatter and body. A file with no
// leading "---" fence is treated as frontmatter-less: Fields is empty and
// the whole input becomes Body.
func Parse(raw []byte) (*Document, error) {
	text := string(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	doc := &Document{Fields: map[string]any{}}

	if rest, ok := trimFence(text); ok {
		end := findClosingFence(rest)
		if end < 0 {
			return nil, fmt.Errorf("frontmatter: no closing %q fence", fence)
		}
		yamlText := rest[:end]
		body := rest[end+len(fence):]
		// Drop the closing fence's own newline and the blank line that
		// Serialize writes after it.
		body = strings.TrimPrefix(body, "\n")
		body = strings.TrimPrefix(body, "\n")

		var root yaml.Node
		if strings.TrimSpace(yamlText) != "" {
			if err := yaml.Unmarshal([]byte(yamlText), &root); err != nil {
				return nil, fmt.Errorf("frontmatter: parse yaml: %w", err)
			}
		}

		mapping := documentMapping(&root)
		doc.HasFrontmatter = true
		doc.root = mapping
		doc.Body = body

		if mapping != nil {
			var m map[string]any
			if err := mapping.Decode(&m); err != nil {
				return nil, fmt.Errorf("frontmatter: decode fields: %w", err)
			}
			doc.Fields = m
			for i := 0; i+1 < len(mapping.Content); i += 2 {
				doc.FieldOrder = append(doc.FieldOrder, mapping.Content[i].Value)
			}
		}
	} else {
		doc.Body = text
	}

	doc.TitleFallback = firstHeading(doc.Body)
	return doc, nil
}

func trimFence(text string) (string, bool) {
	if !strings.HasPrefix(text, fence+"\n") && text != fence {
		return "", false
	}
	return strings.TrimPrefix(text, fence+"\n"), true
}

// findClosingFence returns the index, within rest, of the "\n---" (or
// leading "---") line that closes the frontmatter block.
func findClosingFence(rest string) int {
	if strings.HasPrefix(rest, fence) {
		return 0
	}
	marker := "\n" + fence
	idx := strings.Index(rest, marker)
	if idx < 0 {
		return -1
	}
	return idx + 1
}

func documentMapping(root *yaml.Node) *yaml.Node {
	if root.Kind == 0 {
		return nil
	}
	n := root
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return ""
}

// Serialize renders doc into frontmatter-fenced file content. When prior is
// non-nil, value nodes for keys whose value is unchanged from prior are
// reused verbatim (preserving style and any attached comment); keys that
// are new or changed get a freshly encoded node, inheriting the prior
// key's comment if one was attached to a same-named key.
func Serialize(fm *entrymodel.FrontmatterDoc, prior *Document) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}

	var priorPairs map[string][2]*yaml.Node
	if prior != nil && prior.root != nil {
		priorPairs = make(map[string][2]*yaml.Node)
		for i := 0; i+1 < len(prior.root.Content); i += 2 {
			k := prior.root.Content[i]
			priorPairs[k.Value] = [2]*yaml.Node{k, prior.root.Content[i+1]}
		}
	}

	for _, key := range fm.Keys {
		value := fm.Fields[key]
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		var valueNode *yaml.Node

		if pair, ok := priorPairs[key]; ok {
			reencoded := &yaml.Node{}
			if err := reencoded.Encode(value); err != nil {
				return nil, fmt.Errorf("frontmatter: encode %s: %w", key, err)
			}
			if nodesEqualValue(pair[1], reencoded) {
				valueNode = pair[1]
			} else {
				valueNode = reencoded
				valueNode.HeadComment = pair[1].HeadComment
				valueNode.LineComment = pair[1].LineComment
			}
			keyNode.HeadComment = pair[0].HeadComment
			keyNode.LineComment = pair[0].LineComment
		} else {
			valueNode = &yaml.Node{}
			if err := valueNode.Encode(value); err != nil {
				return nil, fmt.Errorf("frontmatter: encode %s: %w", key, err)
			}
		}

		mapping.Content = append(mapping.Content, keyNode, valueNode)
	}

	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{mapping}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("frontmatter: encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: close encoder: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(fence)
	out.WriteByte('\n')
	out.Write(buf.Bytes())
	out.WriteString(fence)
	out.WriteString("\n\n")
	out.WriteString(fm.Body)
	return out.Bytes(), nil
}

// nodesEqualValue compares two value nodes structurally (kind, tag, value,
// and children), ignoring comments and style metadata, so that reusing the
// original node is only skipped when the actual value changed.
func nodesEqualValue(a, b *yaml.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Value != b.Value {
		return false
	}
	if len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if !nodesEqualValue(a.Content[i], b.Content[i]) {
			return false
		}
	}
	return true
}
