package define

import (
	"fmt"
	"sort"
)

// CodeListType tags which item collection of a CodeList is populated.
type CodeListType string

// Codelist type tags.
const (
	CodeListEnumerated CodeListType = "enumerated"
	CodeListDecoded    CodeListType = "decoded"
	CodeListExternal   CodeListType = "external"
)

// CodeListTypes lists every valid type tag in a stable order.
var CodeListTypes = []CodeListType{CodeListExternal, CodeListDecoded, CodeListEnumerated}

// Valid reports whether t is a known type tag.
func (t CodeListType) Valid() bool {
	switch t {
	case CodeListEnumerated, CodeListDecoded, CodeListExternal:
		return true
	default:
		return false
	}
}

// EnumeratedItem is a coded value without decode text.
type EnumeratedItem struct {
	CodedValue    string `json:"coded_value"`
	Rank          string `json:"rank,omitempty"`
	ExtendedValue string `json:"extended_value,omitempty"`
	Alias         *Alias `json:"alias,omitempty"`
}

// Decoded converts the item into a CodeListItem with an empty decode.
func (e EnumeratedItem) Decoded() CodeListItem {
	return CodeListItem{
		CodedValue:    e.CodedValue,
		Rank:          e.Rank,
		ExtendedValue: e.ExtendedValue,
		Alias:         cloneAlias(e.Alias),
	}
}

// CodeListItem is a coded value with decode text.
type CodeListItem struct {
	CodedValue    string         `json:"coded_value"`
	Decode        TranslatedText `json:"decode"`
	Rank          string         `json:"rank,omitempty"`
	ExtendedValue string         `json:"extended_value,omitempty"`
	Alias         *Alias         `json:"alias,omitempty"`
}

// Enumerated converts the item into an EnumeratedItem, dropping the decode.
func (c CodeListItem) Enumerated() EnumeratedItem {
	return EnumeratedItem{
		CodedValue:    c.CodedValue,
		Rank:          c.Rank,
		ExtendedValue: c.ExtendedValue,
		Alias:         cloneAlias(c.Alias),
	}
}

// ExternalCodeList points at a dictionary maintained outside the document.
type ExternalCodeList struct {
	Dictionary string `json:"dictionary,omitempty"`
	Version    string `json:"version,omitempty"`
	Ref        string `json:"ref,omitempty"`
	Href       string `json:"href,omitempty"`
}

// CodeListSources lists the entities referencing a codelist.
type CodeListSources struct {
	ItemDefs        []string `json:"item_defs"`
	AnalysisResults []string `json:"analysis_results,omitempty"`
}

// Count returns the number of references across all source types.
func (s CodeListSources) Count() int {
	return len(s.ItemDefs) + len(s.AnalysisResults)
}

// CodeList is a controlled set of permissible values. Exactly one of
// EnumeratedItems, CodeListItems and ExternalCodeList is set, selected by Type.
type CodeList struct {
	OID               string                    `json:"oid"`
	Name              string                    `json:"name"`
	DataType          string                    `json:"data_type,omitempty"`
	Type              CodeListType              `json:"type"`
	EnumeratedItems   map[string]EnumeratedItem `json:"enumerated_items,omitempty"`
	CodeListItems     map[string]CodeListItem   `json:"code_list_items,omitempty"`
	ExternalCodeList  *ExternalCodeList         `json:"external_code_list,omitempty"`
	ItemOrder         []string                  `json:"item_order"`
	LinkedCodeListOID string                    `json:"linked_code_list_oid,omitempty"`
	StandardOID       string                    `json:"standard_oid,omitempty"`
	SubmissionValue   string                    `json:"submission_value,omitempty"`
	Alias             *Alias                    `json:"alias,omitempty"`
	Sources           CodeListSources           `json:"sources"`
}

// NewCodeList returns an empty codelist whose item collection matches t.
func NewCodeList(oid, name string, t CodeListType) CodeList {
	cl := CodeList{OID: oid, Name: name, Type: t, ItemOrder: []string{}, Sources: CodeListSources{ItemDefs: []string{}}}
	cl.resetCollections()
	return cl
}

// resetCollections installs the empty collection matching Type and drops the others.
func (c *CodeList) resetCollections() {
	c.EnumeratedItems = nil
	c.CodeListItems = nil
	c.ExternalCodeList = nil
	switch c.Type {
	case CodeListEnumerated:
		c.EnumeratedItems = map[string]EnumeratedItem{}
	case CodeListDecoded:
		c.CodeListItems = map[string]CodeListItem{}
	case CodeListExternal:
		c.ExternalCodeList = &ExternalCodeList{}
	}
}

// Normalize restores the collection shape implied by Type after decoding,
// keeping populated items and rebuilding ItemOrder from the surviving keys.
func (c CodeList) Normalize() CodeList {
	out := c.Clone()
	switch out.Type {
	case CodeListEnumerated:
		out.CodeListItems = nil
		out.ExternalCodeList = nil
		if out.EnumeratedItems == nil {
			out.EnumeratedItems = map[string]EnumeratedItem{}
		}
	case CodeListDecoded:
		out.EnumeratedItems = nil
		out.ExternalCodeList = nil
		if out.CodeListItems == nil {
			out.CodeListItems = map[string]CodeListItem{}
		}
	case CodeListExternal:
		out.EnumeratedItems = nil
		out.CodeListItems = nil
		if out.ExternalCodeList == nil {
			out.ExternalCodeList = &ExternalCodeList{}
		}
	}
	out.ItemOrder = ReconcileOrder(out.ItemOrder, out.ItemKeys())
	if out.Sources.ItemDefs == nil {
		out.Sources.ItemDefs = []string{}
	}
	return out
}

// ItemKeys returns the keys of the populated item collection, sorted.
func (c CodeList) ItemKeys() []string {
	var keys []string
	switch c.Type {
	case CodeListEnumerated:
		keys = make([]string, 0, len(c.EnumeratedItems))
		for k := range c.EnumeratedItems {
			keys = append(keys, k)
		}
	case CodeListDecoded:
		keys = make([]string, 0, len(c.CodeListItems))
		for k := range c.CodeListItems {
			keys = append(keys, k)
		}
	default:
		return []string{}
	}
	sort.Strings(keys)
	return keys
}

// CodedValue returns the coded value stored under itemOID.
func (c CodeList) CodedValue(itemOID string) (string, bool) {
	switch c.Type {
	case CodeListEnumerated:
		item, ok := c.EnumeratedItems[itemOID]
		return item.CodedValue, ok
	case CodeListDecoded:
		item, ok := c.CodeListItems[itemOID]
		return item.CodedValue, ok
	}
	return "", false
}

// FindCodedValue returns the OID of the first item, in ItemOrder, whose coded
// value equals value exactly.
func (c CodeList) FindCodedValue(value string) (string, bool) {
	for _, oid := range c.ItemOrder {
		if cv, ok := c.CodedValue(oid); ok && cv == value {
			return oid, true
		}
	}
	return "", false
}

// Validate checks the collection shape and the ItemOrder bookkeeping.
func (c CodeList) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("codelist %s has invalid type %q", c.OID, c.Type)
	}
	switch c.Type {
	case CodeListEnumerated:
		if c.EnumeratedItems == nil || c.CodeListItems != nil || c.ExternalCodeList != nil {
			return fmt.Errorf("codelist %s: enumerated codelist must hold only enumerated items", c.OID)
		}
	case CodeListDecoded:
		if c.CodeListItems == nil || c.EnumeratedItems != nil || c.ExternalCodeList != nil {
			return fmt.Errorf("codelist %s: decoded codelist must hold only codelist items", c.OID)
		}
	case CodeListExternal:
		if c.ExternalCodeList == nil || c.EnumeratedItems != nil || c.CodeListItems != nil {
			return fmt.Errorf("codelist %s: external codelist must hold only an external descriptor", c.OID)
		}
	}
	keys := c.ItemKeys()
	if len(keys) != len(c.ItemOrder) {
		return fmt.Errorf("codelist %s: item order has %d entries for %d items", c.OID, len(c.ItemOrder), len(keys))
	}
	seen := make(map[string]struct{}, len(c.ItemOrder))
	for _, oid := range c.ItemOrder {
		if _, dup := seen[oid]; dup {
			return fmt.Errorf("codelist %s: item order lists %s twice", c.OID, oid)
		}
		seen[oid] = struct{}{}
		if _, ok := c.CodedValue(oid); !ok {
			return fmt.Errorf("codelist %s: item order lists unknown item %s", c.OID, oid)
		}
	}
	return nil
}

// Clone returns a deep copy of the codelist.
func (c CodeList) Clone() CodeList {
	cp := c
	if c.EnumeratedItems != nil {
		cp.EnumeratedItems = make(map[string]EnumeratedItem, len(c.EnumeratedItems))
		for k, v := range c.EnumeratedItems {
			v.Alias = cloneAlias(v.Alias)
			cp.EnumeratedItems[k] = v
		}
	}
	if c.CodeListItems != nil {
		cp.CodeListItems = make(map[string]CodeListItem, len(c.CodeListItems))
		for k, v := range c.CodeListItems {
			v.Alias = cloneAlias(v.Alias)
			cp.CodeListItems[k] = v
		}
	}
	if c.ExternalCodeList != nil {
		ext := *c.ExternalCodeList
		cp.ExternalCodeList = &ext
	}
	cp.ItemOrder = CloneStrings(c.ItemOrder)
	cp.Alias = cloneAlias(c.Alias)
	cp.Sources = CodeListSources{
		ItemDefs:        CloneStrings(c.Sources.ItemDefs),
		AnalysisResults: CloneStrings(c.Sources.AnalysisResults),
	}
	return cp
}

// CodeLists is the codelist collection keyed by OID.
type CodeLists map[string]CodeList

// Copy returns a new map holding the same entries. Entries are values; callers
// replace an entry with a modified Clone rather than mutating it in place.
func (c CodeLists) Copy() CodeLists {
	out := make(CodeLists, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of every entry.
func (c CodeLists) Clone() CodeLists {
	out := make(CodeLists, len(c))
	for k, v := range c {
		out[k] = v.Clone()
	}
	return out
}

// OIDByName returns the OID of the codelist with the given name.
func (c CodeLists) OIDByName(name string) (string, bool) {
	return oidByName(c, name, func(cl CodeList) string { return cl.Name })
}

// ReconcileOrder keeps the entries of order that are in keys, in their original
// order without duplicates, and appends the remaining keys in sorted order.
func ReconcileOrder(order []string, keys []string) []string {
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, oid := range order {
		if _, ok := present[oid]; !ok {
			continue
		}
		if _, dup := seen[oid]; dup {
			continue
		}
		seen[oid] = struct{}{}
		out = append(out, oid)
	}
	rest := make([]string, 0, len(keys)-len(out))
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// CloneStrings copies a string slice, keeping nil and empty distinct.
func CloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append(make([]string, 0, len(values)), values...)
}

func cloneAlias(a *Alias) *Alias {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
