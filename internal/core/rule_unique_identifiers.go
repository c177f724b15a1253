package core

import (
	"context"
	"fmt"
)

// NewUniqueIdentifiersRule returns the rule keeping every entity stored under
// its own OID and item references unique across datasets.
func NewUniqueIdentifiersRule() Rule {
	return uniqueIdentifiersRule{}
}

type uniqueIdentifiersRule struct{}

func (uniqueIdentifiersRule) Name() string { return "unique_identifiers" }

func (r uniqueIdentifiersRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	mdv := graphOf(view)
	res := Result{}
	mismatch := func(entity EntityType, key, oid string) {
		res.Violations = append(res.Violations, blocking(r.Name(), entity, key,
			fmt.Sprintf("%s %s is stored under identifier %s", entity, oid, key)))
	}
	refOwners := make(map[string]string)
	for _, groupOID := range sortedKeys(mdv.ItemGroups) {
		group := mdv.ItemGroups[groupOID]
		if group.OID != groupOID {
			mismatch(EntityItemGroup, groupOID, group.OID)
		}
		for _, key := range sortedKeys(group.ItemRefs) {
			if ref := group.ItemRefs[key]; ref.OID != key {
				mismatch(EntityItemRef, key, ref.OID)
			}
			if owner, dup := refOwners[key]; dup {
				res.Violations = append(res.Violations, blocking(r.Name(), EntityItemRef, key,
					fmt.Sprintf("item ref %s is used by datasets %s and %s", key, owner, groupOID)))
				continue
			}
			refOwners[key] = groupOID
		}
	}
	for _, defOID := range sortedKeys(mdv.ItemDefs) {
		if def := mdv.ItemDefs[defOID]; def.OID != defOID {
			mismatch(EntityItemDef, defOID, def.OID)
		}
	}
	for _, clOID := range sortedKeys(mdv.CodeLists) {
		if cl := mdv.CodeLists[clOID]; cl.OID != clOID {
			mismatch(EntityCodeList, clOID, cl.OID)
		}
	}
	return res, nil
}
