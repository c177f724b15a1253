package memory

import (
	"context"
	"errors"
	"testing"

	"definecore/pkg/define"
)

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }
func (blockingRule) Evaluate(_ context.Context, _ define.RuleView, changes []define.Change) (define.Result, error) {
	if len(changes) == 0 {
		return define.Result{}, nil
	}
	return define.Result{Violations: []define.Violation{{Rule: "block", Severity: define.SeverityBlock, Message: "blocked"}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "fail" }
func (failingRule) Evaluate(context.Context, define.RuleView, []define.Change) (define.Result, error) {
	return define.Result{}, errors.New("rule failed")
}

// seed creates DM with AGE and SEX and the SEX codelist assigned to SEX.
func seed(t *testing.T, store *Store) {
	t.Helper()
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateItemGroup(ItemGroup{OID: "IG.DM", Name: "DM", Purpose: define.PurposeTabulation}); err != nil {
			return err
		}
		if err := tx.ApplyEdit(define.CreateCodeList{Name: "SEX", Type: define.CodeListDecoded}); err != nil {
			return err
		}
		if _, err := tx.CreateItemDef("IG.DM", ItemDef{OID: "IT.DM.AGE", Name: "AGE"}, ItemRef{}); err != nil {
			return err
		}
		_, err := tx.CreateItemDef("IG.DM", ItemDef{OID: "IT.DM.SEX", Name: "SEX", CodeListOID: "CL.1"}, ItemRef{OID: "IR.SEX"})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil, WithModel(define.ModelADaM), WithOID("MDV.ADAM"))
	seed(t, store)

	group, ok := store.GetItemGroup("IG.DM")
	if !ok || len(group.ItemRefOrder) != 2 || group.ItemRefOrder[1] != "IR.SEX" {
		t.Fatalf("unexpected dataset %+v", group)
	}
	if ref := group.ItemRefs["IR.SEX"]; ref.ItemOID != "IT.DM.SEX" || ref.OrderNumber != 2 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	sex, _ := store.GetItemDef("IT.DM.SEX")
	if len(sex.Sources.ItemGroups) != 1 || sex.Sources.ItemGroups[0] != "IG.DM" {
		t.Fatalf("unexpected sources %+v", sex.Sources)
	}
	cl, ok := store.GetCodeList("CL.1")
	if !ok || len(cl.Sources.ItemDefs) != 1 || cl.Sources.ItemDefs[0] != "IT.DM.SEX" {
		t.Fatalf("unexpected codelist %+v", cl)
	}

	snapshot := store.ExportState()
	if snapshot.Model != define.ModelADaM || snapshot.OID != "MDV.ADAM" {
		t.Fatalf("unexpected snapshot header %s %s", snapshot.OID, snapshot.Model)
	}
	store.ImportState(Snapshot{})
	if len(store.ListItemDefs()) != 0 || len(store.ListCodeLists()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	if len(store.ListItemDefs()) != 2 || len(store.ListItemGroups()) != 1 || len(store.ListCodeLists()) != 1 {
		t.Fatalf("expected restored state")
	}
	if mdv := store.MetaDataVersion(); mdv.Model != define.ModelADaM || len(mdv.ItemDefs) != 2 {
		t.Fatalf("unexpected graph %+v", mdv)
	}
	if store.RulesEngine() == nil {
		t.Fatalf("expected rules engine")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	cl, _ := store.GetCodeList("CL.1")
	cl.Sources.ItemDefs[0] = "mutated"
	again, _ := store.GetCodeList("CL.1")
	if again.Sources.ItemDefs[0] != "IT.DM.SEX" {
		t.Fatalf("store state leaked through GetCodeList")
	}
	groups := store.ListItemGroups()
	groups[0].ItemRefOrder[0] = "mutated"
	if store.ListItemGroups()[0].ItemRefOrder[0] == "mutated" {
		t.Fatalf("store state leaked through ListItemGroups")
	}
}

func TestStoreRuleViolationDiscardsState(t *testing.T) {
	store := NewStore(define.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		return tx.ApplyEdit(define.CreateCodeList{Name: "NY", Type: define.CodeListEnumerated})
	})
	var violation define.RuleViolationError
	if !errors.As(err, &violation) || !res.HasBlocking() {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if violation.Error() != "transaction blocked by rules: blocked" {
		t.Fatalf("unexpected message %q", violation.Error())
	}
	if len(store.ListCodeLists()) != 0 {
		t.Fatalf("expected blocked transaction to leave state untouched")
	}
}

func TestStoreRuleErrorAndCallbackError(t *testing.T) {
	store := NewStore(define.NewRulesEngine())
	store.RulesEngine().Register(failingRule{})
	if _, err := store.RunInTransaction(context.Background(), func(Transaction) error { return nil }); err == nil {
		t.Fatalf("expected rule error")
	}

	plain := NewStore(nil)
	sentinel := errors.New("stop")
	_, err := plain.RunInTransaction(context.Background(), func(tx Transaction) error {
		if err := tx.ApplyEdit(define.CreateCodeList{Name: "NY", Type: define.CodeListEnumerated}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if len(plain.ListCodeLists()) != 0 {
		t.Fatalf("expected failed transaction to leave state untouched")
	}
}

func TestStoreViewSeesCommittedState(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	err := store.View(context.Background(), func(view TransactionView) error {
		if view.Model() != define.ModelSDTM {
			t.Fatalf("unexpected model %s", view.Model())
		}
		if _, ok := view.FindItemGroup("IG.DM"); !ok {
			t.Fatalf("expected DM in view")
		}
		if _, ok := view.FindItemDef("IT.DM.AGE"); !ok {
			t.Fatalf("expected AGE in view")
		}
		if _, ok := view.FindCodeList("CL.1"); !ok {
			t.Fatalf("expected CL.1 in view")
		}
		if _, ok := view.FindCodeList("CL.9"); ok {
			t.Fatalf("unexpected CL.9 in view")
		}
		if got := view.MetaDataVersion(); len(got.ItemDefs) != 2 {
			t.Fatalf("unexpected graph %+v", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
