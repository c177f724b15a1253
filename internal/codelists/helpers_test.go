package codelists

import (
	"testing"

	"definecore/pkg/define"
)

func decoded(id, name string, values ...string) define.CodeList {
	cl := define.NewCodeList(id, name, define.CodeListDecoded)
	for i, v := range values {
		itemOID := "CLI." + string(rune('1'+i))
		cl.CodeListItems[itemOID] = define.CodeListItem{CodedValue: v}
		cl.ItemOrder = append(cl.ItemOrder, itemOID)
	}
	return cl
}

func enumerated(id, name string, values ...string) define.CodeList {
	cl := define.NewCodeList(id, name, define.CodeListEnumerated)
	for i, v := range values {
		itemOID := "CLI." + string(rune('1'+i))
		cl.EnumeratedItems[itemOID] = define.EnumeratedItem{CodedValue: v}
		cl.ItemOrder = append(cl.ItemOrder, itemOID)
	}
	return cl
}

func state(lists ...define.CodeList) define.CodeLists {
	out := define.CodeLists{}
	for _, cl := range lists {
		out[cl.OID] = cl
	}
	return out
}

func mustLink(t *testing.T, s define.CodeLists, id, target string) define.CodeLists {
	t.Helper()
	next, err := SetLink(s, id, target)
	if err != nil {
		t.Fatalf("set link %s -> %s: %v", id, target, err)
	}
	return next
}

func assertSymmetric(t *testing.T, s define.CodeLists) {
	t.Helper()
	for id, cl := range s {
		if cl.LinkedCodeListOID == "" {
			continue
		}
		partner, ok := s[cl.LinkedCodeListOID]
		if !ok {
			t.Fatalf("%s links to missing %s", id, cl.LinkedCodeListOID)
		}
		if partner.LinkedCodeListOID != id {
			t.Fatalf("%s links to %s but %s links to %q", id, cl.LinkedCodeListOID, partner.OID, partner.LinkedCodeListOID)
		}
	}
}

func assertValid(t *testing.T, s define.CodeLists) {
	t.Helper()
	for _, cl := range s {
		if err := cl.Validate(); err != nil {
			t.Fatalf("invalid codelist: %v", err)
		}
	}
	assertSymmetric(t, s)
}
