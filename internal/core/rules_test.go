package core

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"definecore/pkg/define"
)

func evaluate(t *testing.T, rule Rule, mdv define.MetaDataVersion, changes []Change) Result {
	t.Helper()
	res, err := rule.Evaluate(context.Background(), graphView{mdv: mdv}, changes)
	if err != nil {
		t.Fatalf("%s: %v", rule.Name(), err)
	}
	return res
}

func expectBlocked(t *testing.T, res Result, rule, entityID, fragment string) {
	t.Helper()
	for _, v := range res.Violations {
		if v.Rule == rule && v.EntityID == entityID && v.Severity == SeverityBlock && strings.Contains(v.Message, fragment) {
			return
		}
	}
	t.Fatalf("expected %s violation on %s containing %q, got %+v", rule, entityID, fragment, res.Violations)
}

func TestDefaultRulesEngineRegistersInvariants(t *testing.T) {
	want := []string{"unique_identifiers", "link_symmetry", "codelist_shape", "order_lists", "back_references", "standard_extensibility"}
	if got := NewDefaultRulesEngine(NewStandards(nil)).Rules(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected rules %v", got)
	}
	if got := NewDefaultRulesEngine(nil).Rules(); len(got) != len(want)-1 {
		t.Fatalf("expected extensibility rule to be skipped without standards, got %v", got)
	}
}

func TestDefaultRulesAcceptValidGraph(t *testing.T) {
	mdv := validGraph()
	changes := []Change{{Entity: EntityCodeList, Action: ActionUpdate, After: mdv.CodeLists["CL.1"]}}
	res, err := NewDefaultRulesEngine(NewStandards(sexStandard())).Evaluate(context.Background(), graphView{mdv: mdv}, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %+v", res.Violations)
	}
}

func TestUniqueIdentifiersRule(t *testing.T) {
	mdv := validGraph()
	g := mdv.ItemGroups["IG.1"].Clone()
	g.OID = "IG.9"
	mdv.ItemGroups["IG.1"] = g
	def := mdv.ItemDefs["IT.1"]
	def.OID = "IT.X"
	mdv.ItemDefs["IT.1"] = def
	cl := mdv.CodeLists["CL.3"]
	cl.OID = "CL.X"
	mdv.CodeLists["CL.3"] = cl
	mdv.ItemGroups["IG.2"] = define.ItemGroup{
		OID:          "IG.2",
		Name:         "SUPPDM",
		ItemRefs:     map[string]define.ItemRef{"IR.1": {OID: "IR.1", ItemOID: "IT.1"}, "IR.3": {OID: "IR.4", ItemOID: "IT.1"}},
		ItemRefOrder: []string{"IR.1", "IR.3"},
	}

	res := evaluate(t, NewUniqueIdentifiersRule(), mdv, nil)
	expectBlocked(t, res, "unique_identifiers", "IG.1", "IG.9")
	expectBlocked(t, res, "unique_identifiers", "IT.1", "IT.X")
	expectBlocked(t, res, "unique_identifiers", "CL.3", "CL.X")
	expectBlocked(t, res, "unique_identifiers", "IR.1", "used by datasets IG.1 and IG.2")
	expectBlocked(t, res, "unique_identifiers", "IR.3", "IR.4")
}

func TestLinkSymmetryRule(t *testing.T) {
	cases := map[string]struct {
		mutate   func(define.MetaDataVersion)
		entityID string
		fragment string
	}{
		"one sided": {
			mutate: func(mdv define.MetaDataVersion) {
				cl := mdv.CodeLists["CL.2"]
				cl.LinkedCodeListOID = ""
				mdv.CodeLists["CL.2"] = cl
			},
			entityID: "CL.1",
			fragment: "but CL.2 links",
		},
		"missing partner": {
			mutate: func(mdv define.MetaDataVersion) {
				cl := mdv.CodeLists["CL.3"]
				cl.LinkedCodeListOID = "CL.404"
				mdv.CodeLists["CL.3"] = cl
			},
			entityID: "CL.3",
			fragment: "missing codelist CL.404",
		},
		"self link": {
			mutate: func(mdv define.MetaDataVersion) {
				cl := mdv.CodeLists["CL.3"]
				cl.LinkedCodeListOID = "CL.3"
				mdv.CodeLists["CL.3"] = cl
			},
			entityID: "CL.3",
			fragment: "itself",
		},
		"external": {
			mutate: func(mdv define.MetaDataVersion) {
				a, b := mdv.CodeLists["CL.2"], mdv.CodeLists["CL.3"]
				a.LinkedCodeListOID, b.LinkedCodeListOID = "CL.3", "CL.2"
				mdv.CodeLists["CL.2"], mdv.CodeLists["CL.3"] = a, b
				sex := mdv.CodeLists["CL.1"]
				sex.LinkedCodeListOID = ""
				mdv.CodeLists["CL.1"] = sex
			},
			entityID: "CL.2",
			fragment: "external codelist linked",
		},
	}
	for name, tc := range cases {
		mdv := validGraph()
		tc.mutate(mdv)
		res := evaluate(t, NewLinkSymmetryRule(), mdv, nil)
		if len(res.Violations) == 0 {
			t.Fatalf("%s: expected violation", name)
		}
		expectBlocked(t, res, "link_symmetry", tc.entityID, tc.fragment)
	}
}

func TestCodeListShapeRule(t *testing.T) {
	mdv := validGraph()
	sex := mdv.CodeLists["CL.1"]
	sex.EnumeratedItems = map[string]define.EnumeratedItem{}
	mdv.CodeLists["CL.1"] = sex
	codes := mdv.CodeLists["CL.2"]
	codes.Type = "mixed"
	mdv.CodeLists["CL.2"] = codes
	ext := mdv.CodeLists["CL.3"]
	ext.ExternalCodeList = nil
	mdv.CodeLists["CL.3"] = ext

	res := evaluate(t, NewCodeListShapeRule(), mdv, nil)
	expectBlocked(t, res, "codelist_shape", "CL.1", "enumerated=true decoded=true")
	expectBlocked(t, res, "codelist_shape", "CL.2", "invalid type")
	expectBlocked(t, res, "codelist_shape", "CL.3", "external=false")
}

func TestOrderListsRule(t *testing.T) {
	mdv := validGraph()
	sex := mdv.CodeLists["CL.1"]
	sex.ItemOrder = []string{"CLI.1", "CLI.1"}
	mdv.CodeLists["CL.1"] = sex
	codes := mdv.CodeLists["CL.2"]
	codes.ItemOrder = []string{}
	mdv.CodeLists["CL.2"] = codes
	ext := mdv.CodeLists["CL.3"]
	ext.ItemOrder = []string{"CLI.7"}
	mdv.CodeLists["CL.3"] = ext
	g := mdv.ItemGroups["IG.1"]
	g.ItemRefOrder = []string{"IR.2"}
	mdv.ItemGroups["IG.1"] = g

	res := evaluate(t, NewOrderListsRule(), mdv, nil)
	expectBlocked(t, res, "order_lists", "CL.1", "lists CLI.1 twice")
	expectBlocked(t, res, "order_lists", "CL.2", "0 entries for 1 keys")
	expectBlocked(t, res, "order_lists", "CL.3", "unknown entry CLI.7")
	expectBlocked(t, res, "order_lists", "IG.1", "1 entries for 2 keys")
}

func TestBackReferencesRule(t *testing.T) {
	mdv := validGraph()
	sex := mdv.CodeLists["CL.1"]
	sex.Sources.ItemDefs = []string{"IT.1"}
	mdv.CodeLists["CL.1"] = sex
	codes := mdv.CodeLists["CL.2"]
	codes.Sources.ItemDefs = []string{"IT.404", "IT.404"}
	mdv.CodeLists["CL.2"] = codes
	age := mdv.ItemDefs["IT.1"]
	age.Sources.ItemGroups = []string{"IG.1", "IG.1", "IG.404"}
	mdv.ItemDefs["IT.1"] = age
	mdv.ItemDefs["IT.3"] = define.ItemDef{OID: "IT.3", Name: "RACE", CodeListOID: "CL.404", Sources: define.ItemDefSources{ItemGroups: []string{"IG.1"}}}
	sexDef := mdv.ItemDefs["IT.2"]
	sexDef.Sources.ItemGroups = nil
	mdv.ItemDefs["IT.2"] = sexDef
	g := mdv.ItemGroups["IG.1"].Clone()
	g.ItemRefs["IR.9"] = define.ItemRef{OID: "IR.9", ItemOID: "IT.404"}
	g.ItemRefOrder = append(g.ItemRefOrder, "IR.9")
	mdv.ItemGroups["IG.1"] = g

	res := evaluate(t, NewBackReferencesRule(), mdv, nil)
	expectBlocked(t, res, "back_references", "CL.1", "does not list referencing variable IT.2")
	expectBlocked(t, res, "back_references", "CL.1", "lists variable IT.1 which does not reference it")
	expectBlocked(t, res, "back_references", "CL.2", "lists variable IT.404 twice")
	expectBlocked(t, res, "back_references", "IT.1", "lists dataset IG.1 twice")
	expectBlocked(t, res, "back_references", "IT.1", "missing dataset IG.404")
	expectBlocked(t, res, "back_references", "IT.3", "missing codelist CL.404")
	expectBlocked(t, res, "back_references", "IT.3", "which does not reference it")
	expectBlocked(t, res, "back_references", "IT.2", "does not list owning dataset IG.1")
	expectBlocked(t, res, "back_references", "IG.1", "missing variable IT.404")
}

func TestStandardExtensibilityRule(t *testing.T) {
	standards := NewStandards(sexStandard())
	rule := NewStandardExtensibilityRule(standards)
	mdv := validGraph()
	sex := mdv.CodeLists["CL.1"].Clone()
	sex.CodeListItems["CLI.3"] = define.CodeListItem{CodedValue: "U"}
	sex.CodeListItems["CLI.4"] = define.CodeListItem{CodedValue: "UNDIFFERENTIATED", ExtendedValue: define.ExtendedValueYes}
	sex.ItemOrder = append(sex.ItemOrder, "CLI.3", "CLI.4")
	mdv.CodeLists["CL.1"] = sex

	if res := evaluate(t, rule, mdv, nil); len(res.Violations) != 0 {
		t.Fatalf("expected untouched codelists to be skipped, got %+v", res.Violations)
	}
	changes := []Change{
		{Entity: EntityCodeList, Action: ActionUpdate, After: sex},
		{Entity: EntityCodeList, Action: ActionUpdate, After: sex},
		{Entity: EntityCodeList, Action: ActionDelete, Before: mdv.CodeLists["CL.2"]},
		{Entity: EntityItemDef, Action: ActionUpdate, After: mdv.ItemDefs["IT.2"]},
	}
	res := evaluate(t, rule, mdv, changes)
	if len(res.Violations) != 1 {
		t.Fatalf("expected one violation, got %+v", res.Violations)
	}
	expectBlocked(t, res, "standard_extensibility", "CL.1", "values U are not in the codelist")

	std := sexStandard()
	sexStd := std["STD.CT"].CodeLists["C66731"]
	sexStd.Extensible = true
	std["STD.CT"].CodeLists["C66731"] = sexStd
	standards.Replace(std)
	if res := evaluate(t, rule, mdv, changes); len(res.Violations) != 0 {
		t.Fatalf("expected extensible standard to accept U, got %+v", res.Violations)
	}
}
