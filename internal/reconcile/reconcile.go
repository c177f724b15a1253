// Package reconcile merges flat import batches into the metadata graph. It
// matches records by natural key, allocates identifiers for new entities and
// returns the resulting create/update diff. Reconciliation performs no I/O and
// never mutates the graph it reads.
package reconcile

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"definecore/internal/codelists"
	"definecore/internal/oid"
	"definecore/pkg/define"
)

// Engine reconciles import batches.
type Engine struct {
	validate  *validator.Validate
	constants Constants
	batchID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithConstants replaces the model value sets used for validation.
func WithConstants(c Constants) Option {
	return func(e *Engine) { e.constants = c }
}

// WithBatchIDs replaces the batch identifier generator.
func WithBatchIDs(fn func() string) Option {
	return func(e *Engine) { e.batchID = fn }
}

// NewEngine constructs an engine with the default constants.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		validate:  validator.New(),
		constants: DefaultConstants(),
		batchID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reconcile computes the diff that merges batch into mdv. Stages run in a
// fixed order (datasets, variables, codelists, coded values) because later
// stages resolve names created by earlier ones. Any error discards the batch.
func (e *Engine) Reconcile(batch define.ImportBatch, mdv define.MetaDataVersion, lookup define.StandardLookup) (define.Diff, error) {
	if err := e.validateBatch(batch); err != nil {
		return define.Diff{}, err
	}
	r := newRun(mdv, lookup, e.constants.OriginTypes[mdv.Model])
	steps := []func(define.ImportBatch) error{r.datasets, r.variables, r.codeLists, r.codedValues}
	for _, step := range steps {
		if err := step(batch); err != nil {
			return define.Diff{}, err
		}
	}
	diff := r.diff()
	diff.BatchID = e.batchID()
	return diff, nil
}

func (e *Engine) validateBatch(batch define.ImportBatch) error {
	err := e.validate.Struct(batch)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate import batch: %w", err)
	}
	fe := verrs[0]
	kind := define.InvalidRecord
	if fe.Tag() == "oneof" {
		kind = define.InvalidEnumValue
	}
	return define.NewImportError(kind, fe.Namespace(), "import record %s failed %q validation (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value()))
}

// run holds the working state of one reconciliation.
type run struct {
	mdv         define.MetaDataVersion
	lookup      define.StandardLookup
	originTypes []string
	pool        *oid.Pool

	newGroups     map[string]define.ItemGroup
	updatedGroups map[string]define.ItemGroup
	vars          map[string]define.VariableDiff
	// lists starts as a shallow copy of the graph's codelists; entries are
	// replaced, never mutated, so the original graph is untouched.
	lists define.CodeLists
}

func newRun(mdv define.MetaDataVersion, lookup define.StandardLookup, originTypes []string) *run {
	pool := oid.NewPool()
	for groupOID, group := range mdv.ItemGroups {
		pool.Reserve(define.EntityItemGroup, groupOID)
		for refOID := range group.ItemRefs {
			pool.Reserve(define.EntityItemRef, refOID)
		}
		if group.Leaf != nil {
			pool.Reserve(define.EntityLeaf, group.Leaf.ID)
		}
	}
	for defOID := range mdv.ItemDefs {
		pool.Reserve(define.EntityItemDef, defOID)
	}
	for clOID := range mdv.CodeLists {
		pool.Reserve(define.EntityCodeList, clOID)
	}
	return &run{
		mdv:           mdv,
		lookup:        lookup,
		originTypes:   originTypes,
		pool:          pool,
		newGroups:     map[string]define.ItemGroup{},
		updatedGroups: map[string]define.ItemGroup{},
		vars:          map[string]define.VariableDiff{},
		lists:         mdv.CodeLists.Copy(),
	}
}

// groupOIDByName resolves a dataset name against existing and new datasets.
func (r *run) groupOIDByName(name string) (string, bool) {
	if id, ok := r.mdv.ItemGroupOIDByName(name); ok {
		return id, true
	}
	for id, group := range r.newGroups {
		if group.Name == name {
			return id, true
		}
	}
	return "", false
}

func (r *run) datasets(batch define.ImportBatch) error {
	for _, rec := range batch.Datasets {
		id, ok := r.groupOIDByName(rec.Dataset)
		if !ok {
			group, err := r.newGroup(rec)
			if err != nil {
				return err
			}
			r.newGroups[group.OID] = group
			continue
		}
		if group, isNew := r.newGroups[id]; isNew {
			mergeItemGroup(&group, rec)
			r.newGroups[id] = group
			continue
		}
		current, ok := r.updatedGroups[id]
		if !ok {
			current = r.mdv.ItemGroups[id].Clone()
		}
		mergeItemGroup(&current, rec)
		if !reflect.DeepEqual(current, r.mdv.ItemGroups[id]) {
			r.updatedGroups[id] = current
		}
	}
	return nil
}

func (r *run) newGroup(rec define.DatasetRecord) (define.ItemGroup, error) {
	groupOID, err := r.pool.Allocate(define.EntityItemGroup, "")
	if err != nil {
		return define.ItemGroup{}, err
	}
	leafID, err := r.pool.Allocate(define.EntityLeaf, rec.Dataset)
	if err != nil {
		return define.ItemGroup{}, err
	}
	group := define.ItemGroup{
		OID:          groupOID,
		Name:         rec.Dataset,
		DatasetName:  rec.Dataset,
		Purpose:      define.PurposeFor(r.mdv.Model),
		Leaf:         &define.Leaf{ID: leafID, Href: rec.FileName, Title: rec.FileName},
		ItemRefs:     map[string]define.ItemRef{},
		ItemRefOrder: []string{},
	}
	if rec.Label != "" {
		group.Description = &define.TranslatedText{Value: rec.Label}
	}
	return group, nil
}

func (r *run) variables(batch define.ImportBatch) error {
	var order []string
	byGroup := map[string][]define.VariableRecord{}
	for _, rec := range batch.Variables {
		groupOID, ok := r.groupOIDByName(rec.Dataset)
		if !ok {
			return define.NewImportError(define.InvalidReference, rec.Dataset+"."+rec.Variable, "dataset %s is not defined", rec.Dataset)
		}
		if _, seen := byGroup[groupOID]; !seen {
			order = append(order, groupOID)
		}
		byGroup[groupOID] = append(byGroup[groupOID], rec)
	}
	for _, groupOID := range order {
		if err := r.groupVariables(groupOID, byGroup[groupOID]); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) groupVariables(groupOID string, records []define.VariableRecord) error {
	diff := define.NewVariableDiff()
	existing, isExisting := r.mdv.ItemGroups[groupOID]
	refCount := len(existing.ItemRefOrder)
	// created tracks variables added earlier in this batch, by name.
	created := map[string]string{}
	for _, rec := range records {
		if isExisting {
			if defOID, ok := r.mdv.ItemDefOIDByName(groupOID, rec.Variable); ok {
				if err := r.mergeVariable(&diff, existing, defOID, rec); err != nil {
					return err
				}
				continue
			}
		}
		if defOID, ok := created[rec.Variable]; ok {
			def := diff.NewItemDefs[defOID]
			ref := newRefFor(diff.NewItemRefs, defOID)
			mergeItemDef(&def, rec)
			mergeItemRef(&ref, rec)
			if err := describe(&def, rec, r.originTypes); err != nil {
				return err
			}
			diff.NewItemDefs[defOID] = def
			diff.NewItemRefs[ref.OID] = ref
			continue
		}
		defOID, err := r.pool.Allocate(define.EntityItemDef, "")
		if err != nil {
			return err
		}
		refOID, err := r.pool.Allocate(define.EntityItemRef, "")
		if err != nil {
			return err
		}
		refCount++
		def := define.ItemDef{OID: defOID, Name: rec.Variable, Sources: define.ItemDefSources{ItemGroups: []string{groupOID}}}
		ref := define.ItemRef{OID: refOID, ItemOID: defOID, OrderNumber: refCount}
		mergeItemDef(&def, rec)
		mergeItemRef(&ref, rec)
		if err := describe(&def, rec, r.originTypes); err != nil {
			return err
		}
		diff.NewItemDefs[defOID] = def
		diff.NewItemRefs[refOID] = ref
		created[rec.Variable] = defOID
	}
	r.vars[groupOID] = diff
	return nil
}

// mergeVariable merges rec into an existing variable, recording only the
// parts that end up different from the graph.
func (r *run) mergeVariable(diff *define.VariableDiff, group define.ItemGroup, defOID string, rec define.VariableRecord) error {
	original := r.mdv.ItemDefs[defOID]
	def, ok := diff.UpdatedItemDefs[defOID]
	if !ok {
		def = original.Clone()
	}
	mergeItemDef(&def, rec)
	if err := describe(&def, rec, r.originTypes); err != nil {
		return err
	}
	if reflect.DeepEqual(def, original) {
		delete(diff.UpdatedItemDefs, defOID)
	} else {
		diff.UpdatedItemDefs[defOID] = def
	}

	originalRef, ok := group.ItemRefFor(defOID)
	if !ok {
		return nil
	}
	ref, ok := diff.UpdatedItemRefs[originalRef.OID]
	if !ok {
		ref = originalRef
	}
	mergeItemRef(&ref, rec)
	if ref == originalRef {
		delete(diff.UpdatedItemRefs, ref.OID)
	} else {
		diff.UpdatedItemRefs[ref.OID] = ref
	}
	return nil
}

func newRefFor(refs map[string]define.ItemRef, defOID string) define.ItemRef {
	for _, ref := range refs {
		if ref.ItemOID == defOID {
			return ref
		}
	}
	return define.ItemRef{}
}

func (r *run) codeLists(batch define.ImportBatch) error {
	for _, rec := range batch.CodeLists {
		id, ok := r.lists.OIDByName(rec.Name)
		if !ok {
			if err := r.newCodeList(rec); err != nil {
				return err
			}
			continue
		}
		if rec.Type != "" && define.CodeListType(rec.Type) != r.lists[id].Type {
			newType := define.CodeListType(rec.Type)
			if !newType.Valid() {
				return define.NewImportError(define.InvalidEnumValue, rec.Name,
					"codelist %s: type '%s' is invalid, must be one of external, decoded, enumerated", rec.Name, rec.Type)
			}
			next, err := codelists.SetType(r.lists, id, newType)
			if err != nil {
				return fmt.Errorf("convert codelist %s: %w", rec.Name, err)
			}
			r.lists = next
		}
		cl := r.lists[id].Clone()
		mergeCodeList(&cl, rec)
		r.lists[id] = cl
	}
	return nil
}

func (r *run) newCodeList(rec define.CodeListRecord) error {
	clType := define.CodeListType(rec.Type)
	if !clType.Valid() {
		return define.NewImportError(define.InvalidEnumValue, rec.Name,
			"all new codelists must have a valid type specified (external, decoded, enumerated). Value '%s' is invalid", rec.Type)
	}
	id, err := r.pool.Allocate(define.EntityCodeList, "")
	if err != nil {
		return err
	}
	cl := define.NewCodeList(id, rec.Name, clType)
	mergeCodeList(&cl, rec)
	r.lists[id] = cl
	return nil
}

func (r *run) codedValues(batch define.ImportBatch) error {
	for _, rec := range batch.CodedValues {
		record := rec.CodeList + "/" + rec.CodedValue
		id, ok := r.lists.OIDByName(rec.CodeList)
		if !ok {
			return define.NewImportError(define.InvalidReference, record, "codelist %s is not defined", rec.CodeList)
		}
		cl := r.lists[id]
		if cl.Type == define.CodeListExternal {
			return define.NewImportError(define.InvalidReference, record, "codelist %s is external and holds no coded values", rec.CodeList)
		}
		var std *define.StandardCodeList
		if found, ok := r.lookup.Resolve(cl); ok {
			std = &found
		}

		itemOID, exists := cl.FindCodedValue(rec.CodedValue)
		if !exists {
			next, added, err := codelists.AddCodedValue(r.lists, define.CreateCodedValue{CodeListOID: id, CodedValue: rec.CodedValue, Standard: std})
			if err != nil {
				return err
			}
			r.lists, itemOID = next, added
		}
		patch := codedValuePatch(r.lists[id], rec)
		if exists && std != nil {
			if match, ok := std.Find(rec.CodedValue); ok && match.Alias != nil {
				alias := *match.Alias
				patch.Alias = &alias
			}
		}
		next, err := codelists.UpdateCodedValue(r.lists, define.UpdateCodedValue{CodeListOID: id, ItemOID: itemOID, Patch: patch})
		if err != nil {
			return fmt.Errorf("update coded value %s: %w", record, err)
		}
		r.lists = next
	}
	return nil
}

// diff collects the working state into new and updated collections, dropping
// codelists equal to their original.
func (r *run) diff() define.Diff {
	out := define.NewDiff()
	for id, group := range r.newGroups {
		out.NewItemGroups[id] = group
	}
	for id, group := range r.updatedGroups {
		out.UpdatedItemGroups[id] = group
	}
	for id, vars := range r.vars {
		out.Variables[id] = vars
	}
	ids := make([]string, 0, len(r.lists))
	for id := range r.lists {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cl := r.lists[id]
		original, existed := r.mdv.CodeLists[id]
		switch {
		case !existed:
			out.NewCodeLists[id] = cl
		case !reflect.DeepEqual(cl, original):
			out.UpdatedCodeLists[id] = cl
		}
	}
	return out
}
