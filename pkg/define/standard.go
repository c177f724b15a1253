package define

// StandardItem is one coded value of a standard codelist.
type StandardItem struct {
	CodedValue string `json:"coded_value" yaml:"coded_value"`
	Decode     string `json:"decode,omitempty" yaml:"decode,omitempty"`
	Alias      *Alias `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// StandardCodeList is a codelist published in a controlled terminology package.
type StandardCodeList struct {
	Code       string         `json:"code" yaml:"code"`
	Name       string         `json:"name" yaml:"name"`
	Extensible bool           `json:"extensible" yaml:"extensible"`
	Items      []StandardItem `json:"items" yaml:"items"`
}

// Find returns the item whose coded value equals value exactly.
func (s StandardCodeList) Find(value string) (StandardItem, bool) {
	for _, item := range s.Items {
		if item.CodedValue == value {
			return item, true
		}
	}
	return StandardItem{}, false
}

// Standard is a controlled terminology package, codelists keyed by NCI code.
type Standard struct {
	OID       string                      `json:"oid" yaml:"oid"`
	Name      string                      `json:"name" yaml:"name"`
	Version   string                      `json:"version" yaml:"version"`
	CodeLists map[string]StandardCodeList `json:"code_lists" yaml:"code_lists"`
}

// StandardLookup maps standard OIDs to loaded terminology packages.
type StandardLookup map[string]Standard

// Resolve returns the standard codelist backing cl. A codelist is backed when
// it names a loaded standard and carries an NCI alias present in it.
func (l StandardLookup) Resolve(cl CodeList) (StandardCodeList, bool) {
	if cl.StandardOID == "" || cl.Alias == nil || cl.Alias.Context != AliasContextNCI {
		return StandardCodeList{}, false
	}
	std, ok := l[cl.StandardOID]
	if !ok {
		return StandardCodeList{}, false
	}
	stdCodeList, ok := std.CodeLists[cl.Alias.Name]
	return stdCodeList, ok
}
