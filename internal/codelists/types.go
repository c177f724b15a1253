package codelists

import "definecore/pkg/define"

// SetType moves a codelist to another type tag.
//
//	enumerated -> decoded    items keep OID, coded value, alias; decode is empty
//	decoded    -> enumerated decodes are dropped
//	any        -> external   link severed, items cleared, descriptor installed
//	external   -> other      descriptor cleared, empty collection
//
// A transition to the current type is a no-op.
func SetType(state define.CodeLists, id string, newType define.CodeListType) (define.CodeLists, error) {
	current, ok := state[id]
	if !ok {
		return nil, notFound(id)
	}
	if !newType.Valid() {
		return nil, invalid("codelist type %q", newType)
	}
	if current.Type == newType {
		return state, nil
	}
	next := state.Copy()
	if newType == define.CodeListExternal {
		unlink(next, id)
	}
	modify(next, id, func(cl *define.CodeList) { convert(cl, newType) })
	return next, nil
}

func convert(cl *define.CodeList, newType define.CodeListType) {
	from := cl.Type
	enumerated, decoded := cl.EnumeratedItems, cl.CodeListItems
	cl.Type = newType
	cl.EnumeratedItems, cl.CodeListItems, cl.ExternalCodeList = nil, nil, nil
	switch newType {
	case define.CodeListDecoded:
		cl.CodeListItems = make(map[string]define.CodeListItem, len(enumerated))
		if from == define.CodeListEnumerated {
			for k, item := range enumerated {
				cl.CodeListItems[k] = item.Decoded()
			}
		}
	case define.CodeListEnumerated:
		cl.EnumeratedItems = make(map[string]define.EnumeratedItem, len(decoded))
		if from == define.CodeListDecoded {
			for k, item := range decoded {
				cl.EnumeratedItems[k] = item.Enumerated()
			}
		}
	case define.CodeListExternal:
		cl.ExternalCodeList = &define.ExternalCodeList{}
	}
	cl.ItemOrder = define.ReconcileOrder(cl.ItemOrder, cl.ItemKeys())
}
