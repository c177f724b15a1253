// Package codelists implements the codelist transitions of the metadata graph.
// Every function takes the codelist collection and returns a new collection;
// the input and its entries are never mutated. Symmetric links, type tagged
// item collections, item order and back-references are kept consistent.
package codelists

import (
	"fmt"

	"definecore/internal/oid"
	"definecore/internal/terminology"
	"definecore/pkg/define"
)

func notFound(id string) error {
	return define.ErrNotFound{Entity: define.EntityCodeList, ID: id}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", define.ErrInvalidTransition, fmt.Sprintf(format, args...))
}

// modify replaces next[id] with a mutated clone.
func modify(next define.CodeLists, id string, fn func(*define.CodeList)) {
	cl := next[id].Clone()
	fn(&cl)
	next[id] = cl
}

// Apply routes a codelist edit to its transition. Edits touching variables
// (AssignItemDefCodeList) are applied by the store, which owns the variable side.
func Apply(state define.CodeLists, edit define.Edit) (define.CodeLists, error) {
	switch e := edit.(type) {
	case define.SetLink:
		return SetLink(state, e.OID, e.Target)
	case define.SetType:
		return SetType(state, e.OID, e.Type)
	case define.CreateCodeList:
		next, _, err := Add(state, e)
		return next, err
	case define.UpdateCodeList:
		return Update(state, e.OID, e.Patch)
	case define.DeleteCodeLists:
		return Delete(state, e.OIDs...)
	case define.UpdateCodeListStandard:
		return UpdateStandard(state, e)
	case define.UpdateStandardOIDs:
		return UpdateStandardOIDs(state, e.Refs)
	case define.CreateCodedValue:
		next, _, err := AddCodedValue(state, e)
		return next, err
	case define.UpdateCodedValue:
		return UpdateCodedValue(state, e)
	case define.DeleteCodedValues:
		return DeleteCodedValues(state, e.CodeListOID, e.ItemOIDs)
	case define.DeleteVariableReferences:
		return DeleteReferences(state, e.References)
	default:
		return nil, invalid("edit %s is not a codelist transition", edit.Kind())
	}
}

// Add creates an empty codelist of the requested type and returns its OID.
func Add(state define.CodeLists, attrs define.CreateCodeList) (define.CodeLists, string, error) {
	if !attrs.Type.Valid() {
		return nil, "", invalid("codelist type %q", attrs.Type)
	}
	id, err := oid.Allocate(define.EntityCodeList, keys(state), "")
	if err != nil {
		return nil, "", err
	}
	cl := define.NewCodeList(id, attrs.Name, attrs.Type)
	cl.DataType = attrs.DataType
	next := state.Copy()
	next[id] = cl
	return next, id, nil
}

// Update applies a field patch. Type and link changes go through SetType and
// SetLink, in that order, so a switch to external severs the link first.
func Update(state define.CodeLists, id string, patch define.CodeListPatch) (define.CodeLists, error) {
	if _, ok := state[id]; !ok {
		return nil, notFound(id)
	}
	next := state.Copy()
	if patch.Name != nil || patch.DataType != nil {
		modify(next, id, func(cl *define.CodeList) {
			if patch.Name != nil {
				cl.Name = *patch.Name
			}
			if patch.DataType != nil {
				cl.DataType = *patch.DataType
			}
		})
	}
	var err error
	if patch.Type != nil {
		if next, err = SetType(next, id, *patch.Type); err != nil {
			return nil, err
		}
	}
	if patch.ExternalCodeList != nil {
		if next[id].Type != define.CodeListExternal {
			return nil, invalid("codelist %s is %s, not external", id, next[id].Type)
		}
		ext := *patch.ExternalCodeList
		modify(next, id, func(cl *define.CodeList) { cl.ExternalCodeList = &ext })
	}
	if patch.LinkedCodeListOID != nil && *patch.LinkedCodeListOID != next[id].LinkedCodeListOID {
		if next, err = SetLink(next, id, *patch.LinkedCodeListOID); err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Delete removes codelists, clearing the link of each surviving partner.
// Variables referencing a deleted codelist keep their reference; callers
// dereference them separately.
func Delete(state define.CodeLists, ids ...string) (define.CodeLists, error) {
	for _, id := range ids {
		if _, ok := state[id]; !ok {
			return nil, notFound(id)
		}
	}
	next := state.Copy()
	for _, id := range ids {
		cl, ok := next[id]
		if !ok {
			continue
		}
		if partner, ok := next[cl.LinkedCodeListOID]; ok && partner.LinkedCodeListOID == id {
			modify(next, partner.OID, func(p *define.CodeList) { p.LinkedCodeListOID = "" })
		}
		delete(next, id)
	}
	return next, nil
}

// UpdateStandard assigns the standard reference of a codelist and
// synchronizes its coded values with the resolved standard codelist.
func UpdateStandard(state define.CodeLists, edit define.UpdateCodeListStandard) (define.CodeLists, error) {
	current, ok := state[edit.OID]
	if !ok {
		return nil, notFound(edit.OID)
	}
	cl := terminology.Synchronize(current, edit.Standard)
	cl.StandardOID = edit.StandardOID
	cl.SubmissionValue = edit.SubmissionValue
	cl.Alias = nil
	if edit.Alias != nil {
		alias := *edit.Alias
		cl.Alias = &alias
	}
	next := state.Copy()
	next[edit.OID] = cl
	return next, nil
}

// UpdateStandardOIDs reassigns the standard OID and submission value of many
// codelists, typically after a terminology package version change.
func UpdateStandardOIDs(state define.CodeLists, refs map[string]define.StandardRef) (define.CodeLists, error) {
	for id := range refs {
		if _, ok := state[id]; !ok {
			return nil, notFound(id)
		}
	}
	next := state.Copy()
	for id, ref := range refs {
		modify(next, id, func(cl *define.CodeList) {
			cl.StandardOID = ref.StandardOID
			cl.SubmissionValue = ref.SubmissionValue
		})
	}
	return next, nil
}

func keys(state define.CodeLists) []string {
	out := make([]string, 0, len(state))
	for k := range state {
		out = append(out, k)
	}
	return out
}
