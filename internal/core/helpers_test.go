package core

import (
	"context"
	"testing"
	"time"

	"definecore/internal/infra/persistence/memory"
	"definecore/pkg/define"
)

// graphView exposes a literal graph to rules.
type graphView struct {
	mdv define.MetaDataVersion
}

func (v graphView) Model() define.Model { return v.mdv.Model }

func (v graphView) ListItemGroups() []define.ItemGroup {
	out := make([]define.ItemGroup, 0, len(v.mdv.ItemGroups))
	for _, id := range sortedKeys(v.mdv.ItemGroups) {
		out = append(out, v.mdv.ItemGroups[id])
	}
	return out
}

func (v graphView) ListItemDefs() []define.ItemDef {
	out := make([]define.ItemDef, 0, len(v.mdv.ItemDefs))
	for _, id := range sortedKeys(v.mdv.ItemDefs) {
		out = append(out, v.mdv.ItemDefs[id])
	}
	return out
}

func (v graphView) ListCodeLists() []define.CodeList {
	out := make([]define.CodeList, 0, len(v.mdv.CodeLists))
	for _, id := range sortedKeys(v.mdv.CodeLists) {
		out = append(out, v.mdv.CodeLists[id])
	}
	return out
}

func (v graphView) FindItemGroup(oid string) (define.ItemGroup, bool) {
	g, ok := v.mdv.ItemGroups[oid]
	return g, ok
}

func (v graphView) FindItemDef(oid string) (define.ItemDef, bool) {
	d, ok := v.mdv.ItemDefs[oid]
	return d, ok
}

func (v graphView) FindCodeList(oid string) (define.CodeList, bool) {
	cl, ok := v.mdv.CodeLists[oid]
	return cl, ok
}

func (v graphView) MetaDataVersion() define.MetaDataVersion { return v.mdv }

// validGraph returns DM(AGE, SEX) with SEX coded by CL.1, which is linked to
// the enumerated CL.2, plus an external CL.3.
func validGraph() define.MetaDataVersion {
	mdv := define.NewMetaDataVersion("MDV.1", define.ModelSDTM)
	mdv.ItemGroups["IG.1"] = define.ItemGroup{
		OID:     "IG.1",
		Name:    "DM",
		Purpose: define.PurposeTabulation,
		ItemRefs: map[string]define.ItemRef{
			"IR.1": {OID: "IR.1", ItemOID: "IT.1", OrderNumber: 1},
			"IR.2": {OID: "IR.2", ItemOID: "IT.2", OrderNumber: 2},
		},
		ItemRefOrder: []string{"IR.1", "IR.2"},
	}
	mdv.ItemDefs["IT.1"] = define.ItemDef{OID: "IT.1", Name: "AGE", Sources: define.ItemDefSources{ItemGroups: []string{"IG.1"}}}
	mdv.ItemDefs["IT.2"] = define.ItemDef{OID: "IT.2", Name: "SEX", CodeListOID: "CL.1", Sources: define.ItemDefSources{ItemGroups: []string{"IG.1"}}}

	sex := define.NewCodeList("CL.1", "SEX", define.CodeListDecoded)
	sex.StandardOID = "STD.CT"
	sex.Alias = &define.Alias{Context: define.AliasContextNCI, Name: "C66731"}
	sex.CodeListItems["CLI.1"] = define.CodeListItem{CodedValue: "M", Decode: define.TranslatedText{Value: "Male"}}
	sex.CodeListItems["CLI.2"] = define.CodeListItem{CodedValue: "F", Decode: define.TranslatedText{Value: "Female"}}
	sex.ItemOrder = []string{"CLI.1", "CLI.2"}
	sex.Sources.ItemDefs = []string{"IT.2"}
	sex.LinkedCodeListOID = "CL.2"
	mdv.CodeLists["CL.1"] = sex

	sexCodes := define.NewCodeList("CL.2", "SEX codes", define.CodeListEnumerated)
	sexCodes.EnumeratedItems["CLI.1"] = define.EnumeratedItem{CodedValue: "M"}
	sexCodes.ItemOrder = []string{"CLI.1"}
	sexCodes.LinkedCodeListOID = "CL.1"
	mdv.CodeLists["CL.2"] = sexCodes

	meddra := define.NewCodeList("CL.3", "MEDDRA", define.CodeListExternal)
	meddra.ExternalCodeList.Dictionary = "MedDRA"
	mdv.CodeLists["CL.3"] = meddra
	return mdv
}

// sexStandard is a terminology package whose Sex codelist is not extensible.
func sexStandard() define.StandardLookup {
	return define.StandardLookup{
		"STD.CT": {
			OID:     "STD.CT",
			Name:    "SDTM CT",
			Version: "2024-03-29",
			CodeLists: map[string]define.StandardCodeList{
				"C66731": {
					Code: "C66731",
					Name: "Sex",
					Items: []define.StandardItem{
						{CodedValue: "M", Alias: &define.Alias{Context: define.AliasContextNCI, Name: "C20197"}},
						{CodedValue: "F", Alias: &define.Alias{Context: define.AliasContextNCI, Name: "C16576"}},
					},
				},
			},
		},
	}
}

func sexAlias() *define.Alias {
	return &define.Alias{Context: define.AliasContextNCI, Name: "C66731"}
}

// newTestService wires a memory store, the default rules and the Sex standard.
func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *memory.Store) {
	t.Helper()
	standards := NewStandards(sexStandard())
	store := memory.NewStore(NewDefaultRulesEngine(standards))
	opts = append([]ServiceOption{WithStandards(standards)}, opts...)
	return NewService(store, opts...), store
}

// seedDM creates DM(AGE) and a standard-backed SEX codelist holding M.
func seedDM(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateItemGroup(define.ItemGroup{Name: "DM", DatasetName: "DM", Purpose: define.PurposeTabulation}); err != nil {
			return err
		}
		_, err := tx.CreateItemDef("IG.1", define.ItemDef{
			Name:        "AGE",
			DataType:    "integer",
			Length:      "3",
			Description: &define.TranslatedText{Value: "Age"},
			Origins:     []define.Origin{{Type: "CRF"}},
		}, define.ItemRef{Mandatory: "No"})
		return err
	}); err != nil {
		t.Fatalf("seed DM: %v", err)
	}
	if _, err := svc.Dispatch(ctx,
		define.CreateCodeList{Name: "SEX", Type: define.CodeListDecoded, DataType: "text"},
		define.UpdateCodeListStandard{OID: "CL.1", StandardOID: "STD.CT", SubmissionValue: "SEX", Alias: sexAlias()},
		define.CreateCodedValue{CodeListOID: "CL.1", CodedValue: "M"},
	); err != nil {
		t.Fatalf("seed SEX: %v", err)
	}
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}
