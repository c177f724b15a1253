package codelists

import (
	"slices"

	"definecore/pkg/define"
)

// AssignItemDef moves the back-reference of a variable from prev to next.
// A prev codelist that no longer exists is ignored; next must exist.
func AssignItemDef(state define.CodeLists, itemDefOID, prev, next string) (define.CodeLists, error) {
	if prev == next {
		return state, nil
	}
	if next != "" {
		if _, ok := state[next]; !ok {
			return nil, notFound(next)
		}
	}
	out := state.Copy()
	if cl, ok := out[prev]; ok && slices.Contains(cl.Sources.ItemDefs, itemDefOID) {
		modify(out, prev, func(cl *define.CodeList) {
			cl.Sources.ItemDefs = remove(cl.Sources.ItemDefs, itemDefOID)
		})
	}
	if next != "" && !slices.Contains(out[next].Sources.ItemDefs, itemDefOID) {
		modify(out, next, func(cl *define.CodeList) {
			cl.Sources.ItemDefs = append(cl.Sources.ItemDefs, itemDefOID)
		})
	}
	return out, nil
}

// DeleteReferences drops back-references of deleted variables, keyed by
// codelist OID. A codelist losing its last reference is kept unreferenced;
// controlled terminology may exist without consumers.
func DeleteReferences(state define.CodeLists, refs map[string][]string) (define.CodeLists, error) {
	next := state.Copy()
	for clOID, itemDefOIDs := range refs {
		cl, ok := next[clOID]
		if !ok {
			continue
		}
		filtered := cl.Sources.ItemDefs
		for _, itemDefOID := range itemDefOIDs {
			filtered = remove(filtered, itemDefOID)
		}
		if len(filtered) == len(cl.Sources.ItemDefs) {
			continue
		}
		modify(next, clOID, func(cl *define.CodeList) { cl.Sources.ItemDefs = filtered })
	}
	return next, nil
}

// remove returns values without id, never aliasing the input.
func remove(values []string, id string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
