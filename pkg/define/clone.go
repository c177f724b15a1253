package define

import "sort"

// Clone returns a deep copy of the dataset.
func (g ItemGroup) Clone() ItemGroup {
	cp := g
	cp.Description = cloneText(g.Description)
	if g.Leaf != nil {
		leaf := *g.Leaf
		cp.Leaf = &leaf
	}
	if g.ItemRefs != nil {
		cp.ItemRefs = make(map[string]ItemRef, len(g.ItemRefs))
		for k, v := range g.ItemRefs {
			cp.ItemRefs[k] = v
		}
	}
	cp.ItemRefOrder = CloneStrings(g.ItemRefOrder)
	return cp
}

// ItemRefFor returns the reference in the dataset pointing at itemOID.
func (g ItemGroup) ItemRefFor(itemOID string) (ItemRef, bool) {
	for _, oid := range g.ItemRefOrder {
		if ref, ok := g.ItemRefs[oid]; ok && ref.ItemOID == itemOID {
			return ref, true
		}
	}
	return ItemRef{}, false
}

// Clone returns a deep copy of the variable definition.
func (d ItemDef) Clone() ItemDef {
	cp := d
	cp.Description = cloneText(d.Description)
	if d.Origins != nil {
		cp.Origins = make([]Origin, len(d.Origins))
		for i, o := range d.Origins {
			o.Description = cloneText(o.Description)
			cp.Origins[i] = o
		}
	}
	cp.Sources = ItemDefSources{
		ItemGroups: CloneStrings(d.Sources.ItemGroups),
		ValueLists: CloneStrings(d.Sources.ValueLists),
	}
	return cp
}

// NewMetaDataVersion returns an empty graph for the model.
func NewMetaDataVersion(oid string, model Model) MetaDataVersion {
	return MetaDataVersion{
		OID:        oid,
		Model:      model,
		ItemGroups: map[string]ItemGroup{},
		ItemDefs:   map[string]ItemDef{},
		CodeLists:  CodeLists{},
	}
}

// Clone returns a deep copy of the graph.
func (m MetaDataVersion) Clone() MetaDataVersion {
	cp := MetaDataVersion{
		OID:        m.OID,
		Model:      m.Model,
		ItemGroups: make(map[string]ItemGroup, len(m.ItemGroups)),
		ItemDefs:   make(map[string]ItemDef, len(m.ItemDefs)),
		CodeLists:  m.CodeLists.Clone(),
	}
	for k, v := range m.ItemGroups {
		cp.ItemGroups[k] = v.Clone()
	}
	for k, v := range m.ItemDefs {
		cp.ItemDefs[k] = v.Clone()
	}
	return cp
}

// ItemGroupOIDByName returns the OID of the dataset with the given name.
func (m MetaDataVersion) ItemGroupOIDByName(name string) (string, bool) {
	return oidByName(m.ItemGroups, name, func(g ItemGroup) string { return g.Name })
}

// ItemDefOIDByName returns the OID of the variable named name within the dataset.
func (m MetaDataVersion) ItemDefOIDByName(itemGroupOID, name string) (string, bool) {
	group, ok := m.ItemGroups[itemGroupOID]
	if !ok {
		return "", false
	}
	for _, refOID := range group.ItemRefOrder {
		ref, ok := group.ItemRefs[refOID]
		if !ok {
			continue
		}
		if def, ok := m.ItemDefs[ref.ItemOID]; ok && def.Name == name {
			return def.OID, true
		}
	}
	return "", false
}

func oidByName[T any](entities map[string]T, name string, nameOf func(T) string) (string, bool) {
	oids := make([]string, 0, len(entities))
	for oid := range entities {
		oids = append(oids, oid)
	}
	sort.Strings(oids)
	for _, oid := range oids {
		if nameOf(entities[oid]) == name {
			return oid, true
		}
	}
	return "", false
}

func cloneText(t *TranslatedText) *TranslatedText {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}
