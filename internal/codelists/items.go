package codelists

import (
	"definecore/internal/oid"
	"definecore/internal/terminology"
	"definecore/pkg/define"
)

func itemNotFound(id string) error {
	return define.ErrNotFound{Entity: define.EntityCodeListItem, ID: id}
}

// AddCodedValue appends a coded value and returns its item OID. When the
// codelist is backed by a standard, the value takes the standard alias, is
// flagged as extended, or is rejected for a non-extensible codelist.
func AddCodedValue(state define.CodeLists, edit define.CreateCodedValue) (define.CodeLists, string, error) {
	cl, ok := state[edit.CodeListOID]
	if !ok {
		return nil, "", notFound(edit.CodeListOID)
	}
	if cl.Type == define.CodeListExternal {
		return nil, "", invalid("external codelist %s holds no coded values", cl.OID)
	}
	alias, extended, err := terminology.CheckNewValue(cl, edit.Standard, edit.CodedValue)
	if err != nil {
		return nil, "", err
	}
	itemOID, err := oid.Allocate(define.EntityCodeListItem, cl.ItemKeys(), "")
	if err != nil {
		return nil, "", err
	}
	next := state.Copy()
	modify(next, cl.OID, func(cl *define.CodeList) {
		item := define.EnumeratedItem{CodedValue: edit.CodedValue, ExtendedValue: extended, Alias: alias}
		if cl.Type == define.CodeListDecoded {
			cl.CodeListItems[itemOID] = item.Decoded()
		} else {
			cl.EnumeratedItems[itemOID] = item
		}
		cl.ItemOrder = append(cl.ItemOrder, itemOID)
	})
	return next, itemOID, nil
}

// UpdateCodedValue patches one coded value. For an external codelist the
// edit's descriptor replaces the codelist descriptor instead.
func UpdateCodedValue(state define.CodeLists, edit define.UpdateCodedValue) (define.CodeLists, error) {
	cl, ok := state[edit.CodeListOID]
	if !ok {
		return nil, notFound(edit.CodeListOID)
	}
	next := state.Copy()
	if cl.Type == define.CodeListExternal {
		if edit.External == nil {
			return nil, invalid("external codelist %s needs a descriptor update", cl.OID)
		}
		ext := *edit.External
		modify(next, cl.OID, func(cl *define.CodeList) { cl.ExternalCodeList = &ext })
		return next, nil
	}
	if _, ok := cl.CodedValue(edit.ItemOID); !ok {
		return nil, itemNotFound(edit.ItemOID)
	}
	if edit.Patch.Decode != nil && cl.Type != define.CodeListDecoded {
		return nil, invalid("codelist %s is %s and has no decodes", cl.OID, cl.Type)
	}
	p := edit.Patch
	modify(next, cl.OID, func(cl *define.CodeList) {
		switch cl.Type {
		case define.CodeListDecoded:
			item := cl.CodeListItems[edit.ItemOID]
			patchFields(&item.CodedValue, &item.Rank, &item.ExtendedValue, &item.Alias, p)
			if p.Decode != nil {
				item.Decode.Value = *p.Decode
			}
			cl.CodeListItems[edit.ItemOID] = item
		case define.CodeListEnumerated:
			item := cl.EnumeratedItems[edit.ItemOID]
			patchFields(&item.CodedValue, &item.Rank, &item.ExtendedValue, &item.Alias, p)
			cl.EnumeratedItems[edit.ItemOID] = item
		}
	})
	return next, nil
}

func patchFields(codedValue, rank, extended *string, alias **define.Alias, p define.CodedValuePatch) {
	if p.CodedValue != nil {
		*codedValue = *p.CodedValue
	}
	if p.Rank != nil {
		*rank = *p.Rank
	}
	if p.ExtendedValue != nil {
		*extended = *p.ExtendedValue
	}
	if p.Alias != nil {
		a := *p.Alias
		*alias = &a
	}
}

// DeleteCodedValues removes items by key from the populated collection and
// from the item order.
func DeleteCodedValues(state define.CodeLists, clOID string, itemOIDs []string) (define.CodeLists, error) {
	cl, ok := state[clOID]
	if !ok {
		return nil, notFound(clOID)
	}
	if cl.Type == define.CodeListExternal {
		return nil, invalid("external codelist %s holds no coded values", clOID)
	}
	for _, itemOID := range itemOIDs {
		if _, ok := cl.CodedValue(itemOID); !ok {
			return nil, itemNotFound(itemOID)
		}
	}
	next := state.Copy()
	modify(next, clOID, func(cl *define.CodeList) {
		for _, itemOID := range itemOIDs {
			delete(cl.EnumeratedItems, itemOID)
			delete(cl.CodeListItems, itemOID)
			cl.ItemOrder = remove(cl.ItemOrder, itemOID)
		}
	})
	return next, nil
}
