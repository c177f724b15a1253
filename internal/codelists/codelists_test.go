package codelists

import (
	"errors"
	"testing"

	"definecore/pkg/define"
)

func TestAddAllocatesOID(t *testing.T) {
	s := state(decoded("CL.1", "A"), decoded("CL.3", "C"))
	next, id, err := Add(s, define.CreateCodeList{Name: "NEW", Type: define.CodeListEnumerated, DataType: "text"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, taken := s[id]; taken || id == "" {
		t.Fatalf("expected fresh OID, got %q", id)
	}
	if got := next[id]; got.Name != "NEW" || got.DataType != "text" || got.EnumeratedItems == nil {
		t.Fatalf("unexpected codelist %+v", got)
	}
	if _, _, err := Add(s, define.CreateCodeList{Name: "BAD", Type: "table"}); !errors.Is(err, define.ErrInvalidTransition) {
		t.Fatalf("expected invalid type rejected, got %v", err)
	}
}

func TestUpdatePatchesFieldsTypeAndLink(t *testing.T) {
	s := state(decoded("CL.1", "A", "x"), enumerated("CL.2", "B"))
	name := "RENAMED"
	target := "CL.2"
	next, err := Update(s, "CL.1", define.CodeListPatch{Name: &name, LinkedCodeListOID: &target})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if next["CL.1"].Name != "RENAMED" || next["CL.2"].LinkedCodeListOID != "CL.1" {
		t.Fatalf("unexpected update result %+v", next["CL.1"])
	}

	ext := define.CodeListExternal
	next, err = Update(next, "CL.1", define.CodeListPatch{
		Type:             &ext,
		ExternalCodeList: &define.ExternalCodeList{Dictionary: "WHODrug"},
	})
	if err != nil {
		t.Fatalf("update to external: %v", err)
	}
	if next["CL.1"].ExternalCodeList.Dictionary != "WHODrug" || next["CL.2"].LinkedCodeListOID != "" {
		t.Fatalf("expected external descriptor and severed link")
	}
	assertValid(t, next)

	if _, err := Update(s, "CL.1", define.CodeListPatch{ExternalCodeList: &define.ExternalCodeList{}}); !errors.Is(err, define.ErrInvalidTransition) {
		t.Fatalf("expected descriptor on decoded codelist rejected, got %v", err)
	}
}

func TestUpdateStandardSynchronizes(t *testing.T) {
	cl := enumerated("CL.1", "NY", "N", "Y", "U")
	s := state(cl)
	std := &define.StandardCodeList{
		Code:       "C66742",
		Extensible: true,
		Items: []define.StandardItem{
			{CodedValue: "N", Alias: &define.Alias{Context: define.AliasContextNCI, Name: "C49487"}},
			{CodedValue: "Y", Alias: &define.Alias{Context: define.AliasContextNCI, Name: "C49488"}},
		},
	}
	next, err := UpdateStandard(s, define.UpdateCodeListStandard{
		OID:             "CL.1",
		StandardOID:     "STD.SDTMCT.2024",
		SubmissionValue: "NY",
		Alias:           &define.Alias{Context: define.AliasContextNCI, Name: "C66742"},
		Standard:        std,
	})
	if err != nil {
		t.Fatalf("update standard: %v", err)
	}
	got := next["CL.1"]
	if got.StandardOID != "STD.SDTMCT.2024" || got.Alias.Name != "C66742" {
		t.Fatalf("unexpected standard reference %+v", got)
	}
	if got.EnumeratedItems["CLI.1"].Alias.Name != "C49487" || got.EnumeratedItems["CLI.3"].ExtendedValue != define.ExtendedValueYes {
		t.Fatalf("unexpected items %+v", got.EnumeratedItems)
	}

	next, err = UpdateStandard(next, define.UpdateCodeListStandard{OID: "CL.1"})
	if err != nil {
		t.Fatalf("remove standard: %v", err)
	}
	got = next["CL.1"]
	if got.StandardOID != "" || got.Alias != nil || got.EnumeratedItems["CLI.1"].Alias != nil || got.EnumeratedItems["CLI.3"].ExtendedValue != "" {
		t.Fatalf("expected standard stripped, got %+v", got)
	}
}

func TestUpdateStandardOIDs(t *testing.T) {
	s := state(decoded("CL.1", "A"), decoded("CL.2", "B"))
	next, err := UpdateStandardOIDs(s, map[string]define.StandardRef{"CL.2": {StandardOID: "STD.2", SubmissionValue: "B"}})
	if err != nil {
		t.Fatalf("update standard oids: %v", err)
	}
	if next["CL.2"].StandardOID != "STD.2" || next["CL.1"].StandardOID != "" {
		t.Fatalf("unexpected result %+v", next)
	}
	if _, err := UpdateStandardOIDs(s, map[string]define.StandardRef{"CL.9": {}}); err == nil {
		t.Fatalf("expected unknown codelist error")
	}
}

func TestApplyDispatch(t *testing.T) {
	s := state(decoded("CL.1", "A"), decoded("CL.2", "B"))
	edits := []define.Edit{
		define.SetLink{OID: "CL.1", Target: "CL.2"},
		define.SetType{OID: "CL.2", Type: define.CodeListEnumerated},
		define.CreateCodedValue{CodeListOID: "CL.2", CodedValue: "X"},
		define.CreateCodeList{Name: "C", Type: define.CodeListExternal},
		define.DeleteCodeLists{OIDs: []string{"CL.1"}},
	}
	var err error
	for _, edit := range edits {
		if s, err = Apply(s, edit); err != nil {
			t.Fatalf("apply %s: %v", edit.Kind(), err)
		}
		assertValid(t, s)
	}
	if len(s) != 2 || s["CL.2"].LinkedCodeListOID != "" || len(s["CL.2"].EnumeratedItems) != 1 {
		t.Fatalf("unexpected final state %+v", s)
	}
	if _, err := Apply(s, define.AssignItemDefCodeList{ItemDefOID: "IT.1"}); !errors.Is(err, define.ErrInvalidTransition) {
		t.Fatalf("expected store-owned edit rejected, got %v", err)
	}
}
