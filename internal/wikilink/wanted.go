package wikilink

import "sort"

const maxReferencingIDs = 50

// UnresolvedRef is one link occurrence that Resolve failed to match to an
// existing entry.
type UnresolvedRef struct {
	TargetID      string
	TargetKB      string
	SourceEntryID string
}

// WantedPage aggregates every unresolved reference to the same
// (target id, target KB) pair: the link target a "wanted pages" report
// surfaces as something worth creating.
type WantedPage struct {
	TargetID     string
	TargetKB     string
	Count        int
	ReferencedBy []string // source entry ids, capped at maxReferencingIDs
}

// AggregateWanted groups refs by (TargetID, TargetKB), sorted by reference
// count descending then target id ascending. ReferencedBy lists the source
// entry ids of the first maxReferencingIDs refs, in input order, repeats
// included;
// Count reflects the true total even when the list is capped.
func AggregateWanted(refs []UnresolvedRef) []WantedPage {
	type key struct{ id, kb string }
	index := map[key]*WantedPage{}
	var order []key

	for _, r := range refs {
		k := key{r.TargetID, r.TargetKB}
		wp, ok := index[k]
		if !ok {
			wp = &WantedPage{TargetID: r.TargetID, TargetKB: r.TargetKB}
			index[k] = wp
			order = append(order, k)
		}
		wp.Count++
		if len(wp.ReferencedBy) < maxReferencingIDs {
			wp.ReferencedBy = append(wp.ReferencedBy, r.SourceEntryID)
		}
	}

	out := make([]WantedPage, 0, len(order))
	for _, k := range order {
		out = append(out, *index[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].TargetID < out[j].TargetID
	})
	return out
}
