// Package define defines the metadata entity graph of a Define-XML document,
// the edit actions applied to it, and the rule evaluation primitives used by
// definecore.
package define

// EntityType identifies the type of record stored in the metadata graph.
type EntityType string

// Supported entity type identifiers used in Change records, identifier
// allocation and persistence buckets.
const (
	// EntityItemGroup identifies a dataset.
	EntityItemGroup EntityType = "item_group"
	// EntityItemDef identifies a variable definition.
	EntityItemDef EntityType = "item_def"
	// EntityItemRef identifies a variable reference owned by a dataset.
	EntityItemRef EntityType = "item_ref"
	// EntityCodeList identifies a codelist.
	EntityCodeList EntityType = "code_list"
	// EntityCodeListItem identifies a coded value inside a codelist.
	EntityCodeListItem EntityType = "code_list_item"
	// EntityLeaf identifies a document reference attached to a dataset.
	EntityLeaf           EntityType = "leaf"
	EntityAnalysisResult EntityType = "analysis_result"
	EntityResultDisplay  EntityType = "result_display"
)

// Model names the submission data model of the document.
type Model string

// Supported data models.
const (
	ModelSDTM Model = "SDTM"
	ModelSEND Model = "SEND"
	ModelADaM Model = "ADaM"
)

// Purpose classifies a dataset.
type Purpose string

const (
	PurposeTabulation Purpose = "Tabulation"
	PurposeAnalysis   Purpose = "Analysis"
)

// PurposeFor returns the dataset purpose implied by the model.
func PurposeFor(model Model) Purpose {
	if model == ModelADaM {
		return PurposeAnalysis
	}
	return PurposeTabulation
}

// ExtendedValueYes marks a coded value absent from its standard codelist.
const ExtendedValueYes = "Y"

// TranslatedText is a language-tagged text value.
type TranslatedText struct {
	Lang  string `json:"lang,omitempty"`
	Value string `json:"value"`
}

// Alias links an entity to an external naming context such as an NCI C-code.
type Alias struct {
	Context string `json:"context"`
	Name    string `json:"name"`
}

// AliasContextNCI is the alias context carrying NCI codes of standard terminology.
const AliasContextNCI = "nci:ExtCodeID"

// Leaf is a document reference.
type Leaf struct {
	ID    string `json:"id"`
	Href  string `json:"href"`
	Title string `json:"title"`
}

// Origin describes where the values of a variable come from.
type Origin struct {
	Type        string          `json:"type,omitempty"`
	Source      string          `json:"source,omitempty"`
	Description *TranslatedText `json:"description,omitempty"`
}

// ItemGroup is a dataset. ItemRefOrder always lists exactly the keys of ItemRefs.
type ItemGroup struct {
	OID          string             `json:"oid"`
	Name         string             `json:"name"`
	DatasetName  string             `json:"dataset_name,omitempty"`
	Purpose      Purpose            `json:"purpose"`
	Description  *TranslatedText    `json:"description,omitempty"`
	Leaf         *Leaf              `json:"leaf,omitempty"`
	ItemRefs     map[string]ItemRef `json:"item_refs"`
	ItemRefOrder []string           `json:"item_ref_order"`
}

// Label returns the description text or an empty string.
func (g ItemGroup) Label() string {
	if g.Description == nil {
		return ""
	}
	return g.Description.Value
}

// ItemRef references an ItemDef from a dataset.
type ItemRef struct {
	OID         string `json:"oid"`
	ItemOID     string `json:"item_oid"`
	OrderNumber int    `json:"order_number,omitempty"`
	Mandatory   string `json:"mandatory,omitempty"`
	KeySequence string `json:"key_sequence,omitempty"`
	Role        string `json:"role,omitempty"`
	MethodOID   string `json:"method_oid,omitempty"`
}

// ItemDefSources lists the entities owning an ItemDef.
type ItemDefSources struct {
	ItemGroups []string `json:"item_groups"`
	ValueLists []string `json:"value_lists,omitempty"`
}

// ItemDef is a variable definition.
type ItemDef struct {
	OID              string          `json:"oid"`
	Name             string          `json:"name"`
	DataType         string          `json:"data_type,omitempty"`
	Length           string          `json:"length,omitempty"`
	FractionDigits   string          `json:"fraction_digits,omitempty"`
	DisplayFormat    string          `json:"display_format,omitempty"`
	Description      *TranslatedText `json:"description,omitempty"`
	Origins          []Origin        `json:"origins,omitempty"`
	CodeListOID      string          `json:"code_list_oid,omitempty"`
	ParentItemDefOID string          `json:"parent_item_def_oid,omitempty"`
	Sources          ItemDefSources  `json:"sources"`
}

// Label returns the description text or an empty string.
func (d ItemDef) Label() string {
	if d.Description == nil {
		return ""
	}
	return d.Description.Value
}

// MetaDataVersion is the whole metadata graph of one document.
type MetaDataVersion struct {
	OID        string               `json:"oid"`
	Model      Model                `json:"model"`
	ItemGroups map[string]ItemGroup `json:"item_groups"`
	ItemDefs   map[string]ItemDef   `json:"item_defs"`
	CodeLists  CodeLists            `json:"code_lists"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock && v.Message != "" {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}
