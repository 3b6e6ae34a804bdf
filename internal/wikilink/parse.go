// Package wikilink parses and resolves the [[kb:target#heading^block|display]]
// and ![[...]] transclusion grammar used in entry bodies.
package wikilink

import "regexp"

// pattern captures, in order: embed marker, kb prefix (without its
// trailing colon), target, heading fragment, block fragment, display text.
// The target itself stops at the first of "|", "#", "^", or the closing
// "]]", so a target never swallows a following fragment or display text.
var pattern = regexp.MustCompile(
	`(!?)\[\[(?:([^\[\]:|#^]+):)?([^\[\]|#^]+?)(?:#([^\[\]|#^]+))?(?:\^([^\[\]|#^]+))?(?:\|([^\[\]]+))?\]\]`,
)

// Kind distinguishes an ordinary reference link from a transclusion.
type Kind string

const (
	KindLink       Kind = "link"
	KindTransclude Kind = "transclude"
)

// Link is one parsed wikilink occurrence.
type Link struct {
	Kind       Kind
	KBPrefix   string // "" when the link doesn't specify a source KB
	Target     string // entry id, title, or alias text
	Heading    string // "" when no #heading fragment
	BlockID    string // "" when no ^block fragment
	Display    string // "" when no |display text
	RawStart   int
	RawEnd     int
}

// Parse scans body for every wikilink/transclusion occurrence, in order of
// appearance.
func Parse(body string) []Link {
	matches := pattern.FindAllStringSubmatchIndex(body, -1)
	links := make([]Link, 0, len(matches))
	for _, m := range matches {
		links = append(links, Link{
			Kind:     kindOf(body, m),
			KBPrefix: group(body, m, 2),
			Target:   group(body, m, 3),
			Heading:  group(body, m, 4),
			BlockID:  group(body, m, 5),
			Display:  group(body, m, 6),
			RawStart: m[0],
			RawEnd:   m[1],
		})
	}
	return links
}

func kindOf(body string, m []int) Kind {
	if group(body, m, 1) == "!" {
		return KindTransclude
	}
	return KindLink
}

func group(body string, m []int, idx int) string {
	start, end := m[2*idx], m[2*idx+1]
	if start < 0 || end < 0 {
		return ""
	}
	return body[start:end]
}
