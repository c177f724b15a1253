package memory

import (
	"slices"

	"definecore/pkg/define"
)

// migrateSnapshot initialises missing collections and repairs references that
// do not hold in persisted state: codelist shapes and item order, dataset
// reference order, dangling references, asymmetric codelist links and stale
// back-references.
//
//nolint:gocyclo // migrateSnapshot aggregates multiple repair passes over one snapshot.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.OID == "" {
		snapshot.OID = "MDV.1"
	}
	if snapshot.Model == "" {
		snapshot.Model = define.ModelSDTM
	}
	if snapshot.ItemGroups == nil {
		snapshot.ItemGroups = map[string]ItemGroup{}
	}
	if snapshot.ItemDefs == nil {
		snapshot.ItemDefs = map[string]ItemDef{}
	}
	if snapshot.CodeLists == nil {
		snapshot.CodeLists = map[string]CodeList{}
	}

	for id, cl := range snapshot.CodeLists {
		cl = cl.Normalize()
		cl.OID = id
		snapshot.CodeLists[id] = cl
	}

	itemDefExists := func(id string) bool {
		_, ok := snapshot.ItemDefs[id]
		return ok
	}
	codeListExists := func(id string) bool {
		_, ok := snapshot.CodeLists[id]
		return ok
	}

	for id, group := range snapshot.ItemGroups {
		group = group.Clone()
		group.OID = id
		if group.ItemRefs == nil {
			group.ItemRefs = map[string]ItemRef{}
		}
		for refOID, ref := range group.ItemRefs {
			if !itemDefExists(ref.ItemOID) {
				delete(group.ItemRefs, refOID)
				continue
			}
			ref.OID = refOID
			group.ItemRefs[refOID] = ref
		}
		group.ItemRefOrder = define.ReconcileOrder(group.ItemRefOrder, sortedKeys(group.ItemRefs))
		snapshot.ItemGroups[id] = group
	}

	for id, def := range snapshot.ItemDefs {
		def = def.Clone()
		def.OID = id
		if def.CodeListOID != "" && !codeListExists(def.CodeListOID) {
			def.CodeListOID = ""
		}
		if def.ParentItemDefOID != "" && !itemDefExists(def.ParentItemDefOID) {
			def.ParentItemDefOID = ""
		}
		var owners []string
		for _, groupOID := range sortedKeys(snapshot.ItemGroups) {
			if _, ok := snapshot.ItemGroups[groupOID].ItemRefFor(id); ok {
				owners = append(owners, groupOID)
			}
		}
		def.Sources.ItemGroups = define.ReconcileOrder(def.Sources.ItemGroups, owners)
		snapshot.ItemDefs[id] = def
	}

	for id, cl := range snapshot.CodeLists {
		partner, ok := snapshot.CodeLists[cl.LinkedCodeListOID]
		if cl.LinkedCodeListOID == "" {
			continue
		}
		if !ok || partner.LinkedCodeListOID != id || cl.Type == define.CodeListExternal || partner.Type == define.CodeListExternal || cl.LinkedCodeListOID == id {
			cl.LinkedCodeListOID = ""
			snapshot.CodeLists[id] = cl
		}
	}

	for id, cl := range snapshot.CodeLists {
		var referencing []string
		for _, defOID := range sortedKeys(snapshot.ItemDefs) {
			if snapshot.ItemDefs[defOID].CodeListOID == id {
				referencing = append(referencing, defOID)
			}
		}
		if !slices.Equal(cl.Sources.ItemDefs, referencing) {
			cl.Sources.ItemDefs = define.ReconcileOrder(cl.Sources.ItemDefs, referencing)
		}
		snapshot.CodeLists[id] = cl
	}

	return snapshot
}
