package wikilink

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Candidate is the minimal identification of an entry a resolution target
// can land on.
type Candidate struct {
	ID     string
	KBName string
	Title  string
}

// Lookup is the read-side query surface resolution needs from the index.
// The index/sqlite package implements this against its derived tables;
// defining it here (rather than importing that package) keeps wikilink
// free of a dependency on the storage layer.
type Lookup interface {
	FindByID(kbName, id string) (Candidate, bool)
	FindByTitle(kbName, title string) []Candidate
	FindByAlias(kbName, alias string) []Candidate

	// FindByIDs reports which of ids exist in kbName, in a single query,
	// for ResolveBatch's same-context fast path.
	FindByIDs(kbName string, ids []string) map[string]bool
}

// Context carries the per-resolution-call KB namespace: the KB the
// containing entry lives in (used when a link has no kb: prefix) and the
// shortname-to-fullname map for prefixed links.
type Context struct {
	DefaultKB      string
	ShortnameIndex map[string]string // shortname -> full KB name
	KnownKBs       map[string]bool   // full KB names that exist
}

var foldCaser = cases.Fold(language.Und)

// Resolve applies the fixed resolution order: kb-prefix (shortname before
// fullname on collision), exact id, case-insensitive title, alias, then
// none. It returns the first candidate found at each step; ambiguous
// title/alias matches (more than one candidate) resolve to the first in
// Lookup's own order, since Lookup is expected to return them in a stable,
// deterministic order (e.g. by id).
func Resolve(link Link, ctx Context, lookup Lookup) (Candidate, bool) {
	kbName, ok := ctx.resolveKB(link.KBPrefix)
	if !ok {
		return Candidate{}, false
	}

	if c, ok := lookup.FindByID(kbName, link.Target); ok {
		return c, true
	}

	folded := foldCaser.String(link.Target)
	for _, c := range lookup.FindByTitle(kbName, link.Target) {
		if foldCaser.String(c.Title) == folded {
			return c, true
		}
	}

	if matches := lookup.FindByAlias(kbName, link.Target); len(matches) > 0 {
		return matches[0], true
	}

	return Candidate{}, false
}

// ResolveBatch resolves many links against the same Context in as few
// queries as possible. Unprefixed links all share the context's default
// KB — their targets collapse into a single FindByIDs existence check
// rather than one query per target. A kb-prefixed link still resolves on
// its own through Resolve, since its candidate can also come from a title
// or alias match in a different KB, not just an exact id in the default
// one. The result is keyed by each link's wire form (kb-prefix, ":",
// target, with no prefix when the link didn't specify one) and reports
// whether that target exists, matching the wire-level view of resolution
// rather than the full Candidate.
func ResolveBatch(links []Link, ctx Context, lookup Lookup) map[string]bool {
	result := make(map[string]bool, len(links))
	if len(links) == 0 {
		return result
	}

	var batchTargets []string
	for _, link := range links {
		if link.KBPrefix != "" {
			_, resolved := Resolve(link, ctx, lookup)
			result[link.KBPrefix+":"+link.Target] = resolved
			continue
		}
		batchTargets = append(batchTargets, link.Target)
	}

	if len(batchTargets) == 0 {
		return result
	}

	existing := lookup.FindByIDs(ctx.DefaultKB, batchTargets)
	for _, target := range batchTargets {
		result[target] = existing[target]
	}
	return result
}

// resolveKB implements the documented shortname-wins-on-collision rule: a
// prefix that matches both a registered shortname and a full KB name
// resolves to the shortname's target.
func (c Context) resolveKB(prefix string) (string, bool) {
	if prefix == "" {
		return c.DefaultKB, true
	}
	if full, ok := c.ShortnameIndex[prefix]; ok {
		return full, true
	}
	if c.KnownKBs[prefix] {
		return prefix, true
	}
	return "", false
}
