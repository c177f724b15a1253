package codelists

import "definecore/pkg/define"

// SetLink links id to target, or unlinks id when target is empty. Both
// current partners are cleared before the new pair is established: with
// A-B and C-D linked, SetLink(B, C) leaves A and D unlinked and B-C linked.
func SetLink(state define.CodeLists, id, target string) (define.CodeLists, error) {
	current, ok := state[id]
	if !ok {
		return nil, notFound(id)
	}
	if target != "" {
		other, ok := state[target]
		if !ok {
			return nil, notFound(target)
		}
		if target == id {
			return nil, invalid("codelist %s cannot link to itself", id)
		}
		if current.Type == define.CodeListExternal || other.Type == define.CodeListExternal {
			return nil, invalid("external codelists cannot be linked (%s, %s)", id, target)
		}
	}
	next := state.Copy()
	unlink(next, id)
	if target == "" {
		return next, nil
	}
	unlink(next, target)
	modify(next, id, func(cl *define.CodeList) { cl.LinkedCodeListOID = target })
	modify(next, target, func(cl *define.CodeList) { cl.LinkedCodeListOID = id })
	return next, nil
}

// unlink clears the link of id and the back-link of its partner.
func unlink(next define.CodeLists, id string) {
	partnerOID := next[id].LinkedCodeListOID
	if partnerOID == "" {
		return
	}
	if partner, ok := next[partnerOID]; ok && partner.LinkedCodeListOID == id {
		modify(next, partnerOID, func(cl *define.CodeList) { cl.LinkedCodeListOID = "" })
	}
	modify(next, id, func(cl *define.CodeList) { cl.LinkedCodeListOID = "" })
}
