package memory

import (
	"fmt"
	"reflect"
	"slices"
	"sort"

	"definecore/internal/codelists"
	"definecore/internal/oid"
	"definecore/pkg/define"
)

// transaction represents a mutation set applied to a clone of the store state.
type transaction struct {
	state   memoryState
	changes []Change
}

// helper to record and append change entries.
func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// allItemRefOIDs lists item reference identifiers across every dataset.
func (tx *transaction) allItemRefOIDs() []string {
	var out []string
	for _, g := range tx.state.itemGroups {
		for id := range g.ItemRefs {
			out = append(out, id)
		}
	}
	return out
}

// CreateItemGroup stores a new dataset. An empty OID is allocated.
func (tx *transaction) CreateItemGroup(g ItemGroup) (ItemGroup, error) {
	if g.OID == "" {
		id, err := oid.Allocate(define.EntityItemGroup, sortedKeys(tx.state.itemGroups), "")
		if err != nil {
			return ItemGroup{}, err
		}
		g.OID = id
	}
	if _, exists := tx.state.itemGroups[g.OID]; exists {
		return ItemGroup{}, alreadyExists(define.EntityItemGroup, g.OID)
	}
	g = normalizeItemGroup(g)
	for _, ref := range g.ItemRefs {
		if _, ok := tx.state.itemDefs[ref.ItemOID]; !ok {
			return ItemGroup{}, notFound(define.EntityItemDef, ref.ItemOID)
		}
	}
	tx.state.itemGroups[g.OID] = g.Clone()
	tx.syncItemDefSources(g.OID, nil, g.ItemRefs)
	tx.recordChange(Change{Entity: define.EntityItemGroup, Action: define.ActionCreate, After: g.Clone()})
	return g.Clone(), nil
}

// UpdateItemGroup mutates a dataset using the provided mutator function.
func (tx *transaction) UpdateItemGroup(id string, mutator func(*ItemGroup) error) (ItemGroup, error) {
	current, ok := tx.state.itemGroups[id]
	if !ok {
		return ItemGroup{}, notFound(define.EntityItemGroup, id)
	}
	before := current.Clone()
	current = current.Clone()
	if err := mutator(&current); err != nil {
		return ItemGroup{}, err
	}
	current.OID = id
	current = normalizeItemGroup(current)
	for _, ref := range current.ItemRefs {
		if _, ok := tx.state.itemDefs[ref.ItemOID]; !ok {
			return ItemGroup{}, notFound(define.EntityItemDef, ref.ItemOID)
		}
	}
	tx.state.itemGroups[id] = current.Clone()
	tx.syncItemDefSources(id, before.ItemRefs, current.ItemRefs)
	tx.recordChange(Change{Entity: define.EntityItemGroup, Action: define.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteItemGroup removes a dataset. Variables owned by no other dataset are
// deleted with it.
func (tx *transaction) DeleteItemGroup(id string) error {
	current, ok := tx.state.itemGroups[id]
	if !ok {
		return notFound(define.EntityItemGroup, id)
	}
	delete(tx.state.itemGroups, id)
	tx.syncItemDefSources(id, current.ItemRefs, nil)
	tx.recordChange(Change{Entity: define.EntityItemGroup, Action: define.ActionDelete, Before: current.Clone()})
	for _, refOID := range current.ItemRefOrder {
		defOID := current.ItemRefs[refOID].ItemOID
		if def, ok := tx.state.itemDefs[defOID]; ok && len(def.Sources.ItemGroups) == 0 {
			if err := tx.DeleteItemDef(defOID); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncItemDefSources moves the dataset back-reference of variables whose
// reference set changed between before and after.
func (tx *transaction) syncItemDefSources(groupOID string, before, after map[string]ItemRef) {
	had := map[string]bool{}
	for _, ref := range before {
		had[ref.ItemOID] = true
	}
	has := map[string]bool{}
	for _, ref := range after {
		has[ref.ItemOID] = true
	}
	for defOID := range had {
		if has[defOID] {
			continue
		}
		if def, ok := tx.state.itemDefs[defOID]; ok {
			def = def.Clone()
			def.Sources.ItemGroups = slices.DeleteFunc(def.Sources.ItemGroups, func(s string) bool { return s == groupOID })
			tx.state.itemDefs[defOID] = def
		}
	}
	for defOID := range has {
		if def, ok := tx.state.itemDefs[defOID]; ok && !slices.Contains(def.Sources.ItemGroups, groupOID) {
			def = def.Clone()
			def.Sources.ItemGroups = append(def.Sources.ItemGroups, groupOID)
			tx.state.itemDefs[defOID] = def
		}
	}
}

// CreateItemDef stores a new variable and its reference in the dataset.
// Empty OIDs are allocated.
func (tx *transaction) CreateItemDef(itemGroupOID string, def ItemDef, ref ItemRef) (ItemDef, error) {
	group, ok := tx.state.itemGroups[itemGroupOID]
	if !ok {
		return ItemDef{}, notFound(define.EntityItemGroup, itemGroupOID)
	}
	if def.OID == "" {
		id, err := oid.Allocate(define.EntityItemDef, sortedKeys(tx.state.itemDefs), "")
		if err != nil {
			return ItemDef{}, err
		}
		def.OID = id
	}
	if _, exists := tx.state.itemDefs[def.OID]; exists {
		return ItemDef{}, alreadyExists(define.EntityItemDef, def.OID)
	}
	refOIDs := tx.allItemRefOIDs()
	if ref.OID == "" {
		id, err := oid.Allocate(define.EntityItemRef, refOIDs, "")
		if err != nil {
			return ItemDef{}, err
		}
		ref.OID = id
	} else if slices.Contains(refOIDs, ref.OID) {
		return ItemDef{}, alreadyExists(define.EntityItemRef, ref.OID)
	}
	if def.CodeListOID != "" {
		next, err := codelists.AssignItemDef(tx.state.codeLists, def.OID, "", def.CodeListOID)
		if err != nil {
			return ItemDef{}, err
		}
		tx.replaceCodeLists(next)
	}
	def.Sources = define.ItemDefSources{ItemGroups: []string{itemGroupOID}, ValueLists: define.CloneStrings(def.Sources.ValueLists)}
	tx.state.itemDefs[def.OID] = def.Clone()

	before := group.Clone()
	group = group.Clone()
	ref.ItemOID = def.OID
	if ref.OrderNumber == 0 {
		ref.OrderNumber = len(group.ItemRefOrder) + 1
	}
	group.ItemRefs[ref.OID] = ref
	group.ItemRefOrder = append(group.ItemRefOrder, ref.OID)
	tx.state.itemGroups[itemGroupOID] = group
	tx.recordChange(Change{Entity: define.EntityItemDef, Action: define.ActionCreate, After: def.Clone()})
	tx.recordChange(Change{Entity: define.EntityItemGroup, Action: define.ActionUpdate, Before: before, After: group.Clone()})
	return def.Clone(), nil
}

// UpdateItemDef mutates a variable using the provided mutator function. A
// changed codelist assignment moves the codelist back-reference.
func (tx *transaction) UpdateItemDef(id string, mutator func(*ItemDef) error) (ItemDef, error) {
	current, ok := tx.state.itemDefs[id]
	if !ok {
		return ItemDef{}, notFound(define.EntityItemDef, id)
	}
	before := current.Clone()
	current = current.Clone()
	if err := mutator(&current); err != nil {
		return ItemDef{}, err
	}
	current.OID = id
	current.Sources = before.Sources
	if current.CodeListOID != before.CodeListOID {
		next, err := codelists.AssignItemDef(tx.state.codeLists, id, before.CodeListOID, current.CodeListOID)
		if err != nil {
			return ItemDef{}, err
		}
		tx.replaceCodeLists(next)
	}
	tx.state.itemDefs[id] = current.Clone()
	tx.recordChange(Change{Entity: define.EntityItemDef, Action: define.ActionUpdate, Before: before, After: current.Clone()})
	return current.Clone(), nil
}

// DeleteItemDef removes a variable, its references from every dataset and its
// codelist back-reference.
func (tx *transaction) DeleteItemDef(id string) error {
	current, ok := tx.state.itemDefs[id]
	if !ok {
		return notFound(define.EntityItemDef, id)
	}
	for _, groupOID := range sortedKeys(tx.state.itemGroups) {
		group := tx.state.itemGroups[groupOID]
		ref, ok := group.ItemRefFor(id)
		if !ok {
			continue
		}
		before := group.Clone()
		group = group.Clone()
		delete(group.ItemRefs, ref.OID)
		group.ItemRefOrder = slices.DeleteFunc(group.ItemRefOrder, func(s string) bool { return s == ref.OID })
		tx.state.itemGroups[groupOID] = group
		tx.recordChange(Change{Entity: define.EntityItemGroup, Action: define.ActionUpdate, Before: before, After: group.Clone()})
	}
	if current.CodeListOID != "" {
		next, err := codelists.DeleteReferences(tx.state.codeLists, map[string][]string{current.CodeListOID: {id}})
		if err != nil {
			return err
		}
		tx.replaceCodeLists(next)
	}
	for defOID, def := range tx.state.itemDefs {
		if def.ParentItemDefOID == id {
			def = def.Clone()
			def.ParentItemDefOID = ""
			tx.state.itemDefs[defOID] = def
		}
	}
	delete(tx.state.itemDefs, id)
	tx.recordChange(Change{Entity: define.EntityItemDef, Action: define.ActionDelete, Before: current.Clone()})
	return nil
}

// ApplyEdit routes an edit action to its transition. Codelist edits run
// through the codelist engine; variable side effects are handled here.
func (tx *transaction) ApplyEdit(edit define.Edit) error {
	switch e := edit.(type) {
	case define.AssignItemDefCodeList:
		_, err := tx.UpdateItemDef(e.ItemDefOID, func(def *ItemDef) error {
			def.CodeListOID = e.CodeListOID
			return nil
		})
		return err
	case define.DeleteCodeLists:
		next, err := codelists.Delete(tx.state.codeLists, e.OIDs...)
		if err != nil {
			return err
		}
		tx.replaceCodeLists(next)
		tx.dereferenceCodeLists(e.OIDs)
		return nil
	default:
		next, err := codelists.Apply(tx.state.codeLists, edit)
		if err != nil {
			return fmt.Errorf("apply %s: %w", edit.Kind(), err)
		}
		tx.replaceCodeLists(next)
		return nil
	}
}

// dereferenceCodeLists clears the codelist assignment of variables pointing
// at deleted codelists.
func (tx *transaction) dereferenceCodeLists(deleted []string) {
	for _, defOID := range sortedKeys(tx.state.itemDefs) {
		def := tx.state.itemDefs[defOID]
		if def.CodeListOID == "" || !slices.Contains(deleted, def.CodeListOID) {
			continue
		}
		before := def.Clone()
		def = def.Clone()
		def.CodeListOID = ""
		tx.state.itemDefs[defOID] = def
		tx.recordChange(Change{Entity: define.EntityItemDef, Action: define.ActionUpdate, Before: before, After: def.Clone()})
	}
}

// replaceCodeLists swaps in the codelist collection returned by a transition
// and records a change for every entry that differs.
func (tx *transaction) replaceCodeLists(next define.CodeLists) {
	prev := tx.state.codeLists
	for _, id := range sortedKeys(prev) {
		before := prev[id]
		after, ok := next[id]
		switch {
		case !ok:
			tx.recordChange(Change{Entity: define.EntityCodeList, Action: define.ActionDelete, Before: before.Clone()})
		case !reflect.DeepEqual(before, after):
			tx.recordChange(Change{Entity: define.EntityCodeList, Action: define.ActionUpdate, Before: before.Clone(), After: after.Clone()})
		}
	}
	for _, id := range sortedKeys(next) {
		if _, ok := prev[id]; !ok {
			tx.recordChange(Change{Entity: define.EntityCodeList, Action: define.ActionCreate, After: next[id].Clone()})
		}
	}
	tx.state.codeLists = next
}

// ApplyDiff applies a reconciled import diff. Datasets are applied first, then
// variables per dataset, then codelists.
func (tx *transaction) ApplyDiff(diff define.Diff) error {
	for _, id := range sortedKeys(diff.NewItemGroups) {
		g := diff.NewItemGroups[id]
		g.OID = id
		if _, err := tx.CreateItemGroup(g); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(diff.UpdatedItemGroups) {
		updated := diff.UpdatedItemGroups[id]
		if _, err := tx.UpdateItemGroup(id, func(g *ItemGroup) error {
			refs, order := g.ItemRefs, g.ItemRefOrder
			*g = updated.Clone()
			g.ItemRefs, g.ItemRefOrder = refs, order
			return nil
		}); err != nil {
			return err
		}
	}
	for _, groupOID := range sortedKeys(diff.Variables) {
		if err := tx.applyVariables(groupOID, diff.Variables[groupOID]); err != nil {
			return err
		}
	}

	next := tx.state.codeLists.Copy()
	for _, id := range sortedKeys(diff.NewCodeLists) {
		if _, exists := next[id]; exists {
			return alreadyExists(define.EntityCodeList, id)
		}
		cl := diff.NewCodeLists[id].Clone()
		cl.OID = id
		next[id] = cl
	}
	for _, id := range sortedKeys(diff.UpdatedCodeLists) {
		current, ok := next[id]
		if !ok {
			return notFound(define.EntityCodeList, id)
		}
		cl := diff.UpdatedCodeLists[id].Clone()
		cl.OID = id
		// Back-references are owned by the store; variable changes above may
		// have moved them since the diff was computed.
		cl.Sources = current.Clone().Sources
		next[id] = cl
	}
	tx.replaceCodeLists(next)
	return nil
}

func (tx *transaction) applyVariables(groupOID string, vars define.VariableDiff) error {
	if _, ok := tx.state.itemGroups[groupOID]; !ok {
		return notFound(define.EntityItemGroup, groupOID)
	}
	refs := make([]ItemRef, 0, len(vars.NewItemRefs))
	for _, ref := range vars.NewItemRefs {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].OrderNumber != refs[j].OrderNumber {
			return refs[i].OrderNumber < refs[j].OrderNumber
		}
		return refs[i].OID < refs[j].OID
	})
	for _, ref := range refs {
		def, ok := vars.NewItemDefs[ref.ItemOID]
		if !ok {
			return fmt.Errorf("item ref %s: %w", ref.OID, notFound(define.EntityItemDef, ref.ItemOID))
		}
		def.OID = ref.ItemOID
		if _, err := tx.CreateItemDef(groupOID, def, ref); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(vars.UpdatedItemDefs) {
		updated := vars.UpdatedItemDefs[id]
		if _, err := tx.UpdateItemDef(id, func(def *ItemDef) error {
			*def = updated.Clone()
			return nil
		}); err != nil {
			return err
		}
	}
	if len(vars.UpdatedItemRefs) == 0 {
		return nil
	}
	_, err := tx.UpdateItemGroup(groupOID, func(g *ItemGroup) error {
		for _, id := range sortedKeys(vars.UpdatedItemRefs) {
			if _, ok := g.ItemRefs[id]; !ok {
				return notFound(define.EntityItemRef, id)
			}
			g.ItemRefs[id] = vars.UpdatedItemRefs[id]
		}
		return nil
	})
	return err
}

// normalizeItemGroup installs empty reference collections and reconciles the
// reference order with the reference keys.
func normalizeItemGroup(g ItemGroup) ItemGroup {
	g = g.Clone()
	if g.ItemRefs == nil {
		g.ItemRefs = map[string]ItemRef{}
	}
	g.ItemRefOrder = define.ReconcileOrder(g.ItemRefOrder, sortedKeys(g.ItemRefs))
	return g
}
