package core

import (
	"sort"

	"definecore/pkg/define"
)

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set.
// standards feeds the extensibility rule; nil disables it.
func NewDefaultRulesEngine(standards *Standards) *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewUniqueIdentifiersRule())
	engine.Register(NewLinkSymmetryRule())
	engine.Register(NewCodeListShapeRule())
	engine.Register(NewOrderListsRule())
	engine.Register(NewBackReferencesRule())
	if standards != nil {
		engine.Register(NewStandardExtensibilityRule(standards))
	}
	return engine
}

func blocking(rule string, entity EntityType, id, message string) Violation {
	return Violation{
		Rule:     rule,
		Severity: SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: id,
	}
}

// graphOf returns the keyed graph behind view. Views that cannot expose their
// keys are rebuilt from the listed entities.
func graphOf(view RuleView) define.MetaDataVersion {
	if tv, ok := view.(interface{ MetaDataVersion() define.MetaDataVersion }); ok {
		return tv.MetaDataVersion()
	}
	mdv := define.NewMetaDataVersion("", view.Model())
	for _, g := range view.ListItemGroups() {
		mdv.ItemGroups[g.OID] = g
	}
	for _, d := range view.ListItemDefs() {
		mdv.ItemDefs[d.OID] = d
	}
	for _, cl := range view.ListCodeLists() {
		mdv.CodeLists[cl.OID] = cl
	}
	return mdv
}

func sortedKeys[V any, M ~map[string]V](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
