package define

// EditKind enumerates the edit actions accepted from the presentation layer.
type EditKind string

// Edit kinds.
const (
	EditSetLink                  EditKind = "link_set"
	EditSetType                  EditKind = "type_set"
	EditCreateCodeList           EditKind = "codelist_create"
	EditUpdateCodeList           EditKind = "codelist_update"
	EditDeleteCodeLists          EditKind = "codelist_delete"
	EditUpdateCodeListStandard   EditKind = "codelist_standard_update"
	EditUpdateStandardOIDs       EditKind = "codelist_standard_oids_update"
	EditCreateCodedValue         EditKind = "coded_value_create"
	EditUpdateCodedValue         EditKind = "coded_value_update"
	EditDeleteCodedValues        EditKind = "coded_value_delete"
	EditAssignItemDefCodeList    EditKind = "item_def_codelist_assign"
	EditDeleteVariableReferences EditKind = "variable_reference_delete"
)

// Edit is one of the closed set of edit payloads below.
type Edit interface {
	Kind() EditKind
	isEdit()
}

// SetLink links OID to Target, or unlinks OID when Target is empty.
type SetLink struct {
	OID    string
	Target string
}

// SetType changes the type tag of a codelist.
type SetType struct {
	OID  string
	Type CodeListType
}

// CreateCodeList adds a codelist; the OID is allocated by the store.
type CreateCodeList struct {
	Name     string
	Type     CodeListType
	DataType string
}

// CodeListPatch lists the codelist fields an update may replace. Nil fields are kept.
type CodeListPatch struct {
	Name              *string
	DataType          *string
	Type              *CodeListType
	LinkedCodeListOID *string
	ExternalCodeList  *ExternalCodeList
}

// UpdateCodeList patches a codelist.
type UpdateCodeList struct {
	OID   string
	Patch CodeListPatch
}

// DeleteCodeLists removes codelists.
type DeleteCodeLists struct {
	OIDs []string
}

// UpdateCodeListStandard assigns or removes the standard backing a codelist.
// Standard is the resolved standard codelist; nil removes the standard and
// strips the alias and extended value flags of every item.
type UpdateCodeListStandard struct {
	OID             string
	StandardOID     string
	SubmissionValue string
	Alias           *Alias
	Standard        *StandardCodeList
}

// StandardRef pairs a standard OID with a submission value.
type StandardRef struct {
	StandardOID     string
	SubmissionValue string
}

// UpdateStandardOIDs reassigns standard references of many codelists at once.
type UpdateStandardOIDs struct {
	Refs map[string]StandardRef
}

// CreateCodedValue appends a coded value to a codelist. Standard is the
// resolved standard codelist backing it, if any.
type CreateCodedValue struct {
	CodeListOID string
	CodedValue  string
	Standard    *StandardCodeList
}

// CodedValuePatch lists the coded value fields an update may replace.
type CodedValuePatch struct {
	CodedValue    *string
	Decode        *string
	Rank          *string
	ExtendedValue *string
	Alias         *Alias
}

// UpdateCodedValue patches a coded value. For external codelists the
// External descriptor replaces the codelist's descriptor instead.
type UpdateCodedValue struct {
	CodeListOID string
	ItemOID     string
	Patch       CodedValuePatch
	External    *ExternalCodeList
}

// DeleteCodedValues removes coded values from a codelist.
type DeleteCodedValues struct {
	CodeListOID string
	ItemOIDs    []string
}

// AssignItemDefCodeList sets or clears the codelist of a variable.
type AssignItemDefCodeList struct {
	ItemDefOID  string
	CodeListOID string
}

// DeleteVariableReferences drops codelist back-references of deleted variables,
// keyed by codelist OID.
type DeleteVariableReferences struct {
	References map[string][]string
}

func (SetLink) Kind() EditKind                  { return EditSetLink }
func (SetType) Kind() EditKind                  { return EditSetType }
func (CreateCodeList) Kind() EditKind           { return EditCreateCodeList }
func (UpdateCodeList) Kind() EditKind           { return EditUpdateCodeList }
func (DeleteCodeLists) Kind() EditKind          { return EditDeleteCodeLists }
func (UpdateCodeListStandard) Kind() EditKind   { return EditUpdateCodeListStandard }
func (UpdateStandardOIDs) Kind() EditKind       { return EditUpdateStandardOIDs }
func (CreateCodedValue) Kind() EditKind         { return EditCreateCodedValue }
func (UpdateCodedValue) Kind() EditKind         { return EditUpdateCodedValue }
func (DeleteCodedValues) Kind() EditKind        { return EditDeleteCodedValues }
func (AssignItemDefCodeList) Kind() EditKind    { return EditAssignItemDefCodeList }
func (DeleteVariableReferences) Kind() EditKind { return EditDeleteVariableReferences }

func (SetLink) isEdit()                  {}
func (SetType) isEdit()                  {}
func (CreateCodeList) isEdit()           {}
func (UpdateCodeList) isEdit()           {}
func (DeleteCodeLists) isEdit()          {}
func (UpdateCodeListStandard) isEdit()   {}
func (UpdateStandardOIDs) isEdit()       {}
func (CreateCodedValue) isEdit()         {}
func (UpdateCodedValue) isEdit()         {}
func (DeleteCodedValues) isEdit()        {}
func (AssignItemDefCodeList) isEdit()    {}
func (DeleteVariableReferences) isEdit() {}
