package core

import (
	"context"
	"fmt"
	"slices"
)

// NewBackReferencesRule returns the rule keeping Sources lists exact: a
// codelist lists a variable iff the variable references it, and a variable
// lists a dataset iff the dataset holds a reference to it.
func NewBackReferencesRule() Rule {
	return backReferencesRule{}
}

type backReferencesRule struct{}

func (backReferencesRule) Name() string { return "back_references" }

//nolint:gocyclo // one pass per reference direction keeps the messages specific.
func (r backReferencesRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	mdv := graphOf(view)
	res := Result{}
	add := func(entity EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, blocking(r.Name(), entity, id, fmt.Sprintf(format, args...)))
	}

	for _, defOID := range sortedKeys(mdv.ItemDefs) {
		def := mdv.ItemDefs[defOID]
		if def.CodeListOID != "" {
			cl, ok := mdv.CodeLists[def.CodeListOID]
			switch {
			case !ok:
				add(EntityItemDef, defOID, "variable %s references missing codelist %s", defOID, def.CodeListOID)
			case !slices.Contains(cl.Sources.ItemDefs, defOID):
				add(EntityCodeList, cl.OID, "codelist %s does not list referencing variable %s", cl.OID, defOID)
			}
		}
		for i, groupOID := range def.Sources.ItemGroups {
			group, ok := mdv.ItemGroups[groupOID]
			if !ok {
				add(EntityItemDef, defOID, "variable %s lists missing dataset %s", defOID, groupOID)
				continue
			}
			if slices.Index(def.Sources.ItemGroups, groupOID) != i {
				add(EntityItemDef, defOID, "variable %s lists dataset %s twice", defOID, groupOID)
			}
			if _, ok := group.ItemRefFor(defOID); !ok {
				add(EntityItemDef, defOID, "variable %s lists dataset %s which does not reference it", defOID, groupOID)
			}
		}
	}

	for _, clOID := range sortedKeys(mdv.CodeLists) {
		cl := mdv.CodeLists[clOID]
		for i, defOID := range cl.Sources.ItemDefs {
			if slices.Index(cl.Sources.ItemDefs, defOID) != i {
				add(EntityCodeList, clOID, "codelist %s lists variable %s twice", clOID, defOID)
				continue
			}
			if def, ok := mdv.ItemDefs[defOID]; !ok || def.CodeListOID != clOID {
				add(EntityCodeList, clOID, "codelist %s lists variable %s which does not reference it", clOID, defOID)
			}
		}
	}

	for _, groupOID := range sortedKeys(mdv.ItemGroups) {
		group := mdv.ItemGroups[groupOID]
		for _, refOID := range sortedKeys(group.ItemRefs) {
			ref := group.ItemRefs[refOID]
			def, ok := mdv.ItemDefs[ref.ItemOID]
			switch {
			case !ok:
				add(EntityItemGroup, groupOID, "dataset %s item ref %s points at missing variable %s", groupOID, refOID, ref.ItemOID)
			case !slices.Contains(def.Sources.ItemGroups, groupOID):
				add(EntityItemDef, def.OID, "variable %s does not list owning dataset %s", def.OID, groupOID)
			}
		}
	}
	return res, nil
}
