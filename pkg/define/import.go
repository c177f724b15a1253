package define

// DatasetRecord is one flat dataset row of an import batch.
type DatasetRecord struct {
	Dataset  string `json:"dataset" yaml:"dataset" validate:"required"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	FileName string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
}

// VariableRecord is one flat variable row of an import batch.
type VariableRecord struct {
	Dataset           string `json:"dataset" yaml:"dataset" validate:"required"`
	Variable          string `json:"variable" yaml:"variable" validate:"required"`
	Label             string `json:"label,omitempty" yaml:"label,omitempty"`
	DataType          string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Length            string `json:"length,omitempty" yaml:"length,omitempty" validate:"omitempty,numeric"`
	FractionDigits    string `json:"fraction_digits,omitempty" yaml:"fraction_digits,omitempty" validate:"omitempty,numeric"`
	DisplayFormat     string `json:"display_format,omitempty" yaml:"display_format,omitempty"`
	Mandatory         string `json:"mandatory,omitempty" yaml:"mandatory,omitempty" validate:"omitempty,oneof=Yes No"`
	KeySequence       string `json:"key_sequence,omitempty" yaml:"key_sequence,omitempty" validate:"omitempty,numeric"`
	Role              string `json:"role,omitempty" yaml:"role,omitempty"`
	OriginType        string `json:"origin_type,omitempty" yaml:"origin_type,omitempty"`
	OriginSource      string `json:"origin_source,omitempty" yaml:"origin_source,omitempty"`
	OriginDescription string `json:"origin_description,omitempty" yaml:"origin_description,omitempty"`
}

// CodeListRecord is one flat codelist row of an import batch.
type CodeListRecord struct {
	Name            string `json:"name" yaml:"name" validate:"required"`
	Type            string `json:"type,omitempty" yaml:"type,omitempty"`
	DataType        string `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	SubmissionValue string `json:"submission_value,omitempty" yaml:"submission_value,omitempty"`
	Dictionary      string `json:"dictionary,omitempty" yaml:"dictionary,omitempty"`
	Version         string `json:"version,omitempty" yaml:"version,omitempty"`
}

// CodedValueRecord is one flat coded value row of an import batch.
type CodedValueRecord struct {
	CodeList   string `json:"codelist" yaml:"codelist" validate:"required"`
	CodedValue string `json:"coded_value" yaml:"coded_value" validate:"required"`
	Decode     string `json:"decode,omitempty" yaml:"decode,omitempty"`
	Rank       string `json:"rank,omitempty" yaml:"rank,omitempty" validate:"omitempty,numeric"`
}

// ImportBatch holds the four optional record lists of a bulk import. A blank
// string field means no value was supplied.
type ImportBatch struct {
	Datasets    []DatasetRecord    `json:"datasets,omitempty" yaml:"datasets,omitempty" validate:"dive"`
	Variables   []VariableRecord   `json:"variables,omitempty" yaml:"variables,omitempty" validate:"dive"`
	CodeLists   []CodeListRecord   `json:"codelists,omitempty" yaml:"codelists,omitempty" validate:"dive"`
	CodedValues []CodedValueRecord `json:"coded_values,omitempty" yaml:"coded_values,omitempty" validate:"dive"`
}

// Empty reports whether the batch carries no records.
func (b ImportBatch) Empty() bool {
	return len(b.Datasets) == 0 && len(b.Variables) == 0 && len(b.CodeLists) == 0 && len(b.CodedValues) == 0
}

// VariableDiff holds the variable changes of one dataset.
type VariableDiff struct {
	NewItemDefs     map[string]ItemDef `json:"new_item_defs"`
	UpdatedItemDefs map[string]ItemDef `json:"updated_item_defs"`
	NewItemRefs     map[string]ItemRef `json:"new_item_refs"`
	UpdatedItemRefs map[string]ItemRef `json:"updated_item_refs"`
}

// NewVariableDiff returns a VariableDiff with empty collections.
func NewVariableDiff() VariableDiff {
	return VariableDiff{
		NewItemDefs:     map[string]ItemDef{},
		UpdatedItemDefs: map[string]ItemDef{},
		NewItemRefs:     map[string]ItemRef{},
		UpdatedItemRefs: map[string]ItemRef{},
	}
}

// Diff is the create/update result of reconciling one import batch.
type Diff struct {
	BatchID           string                  `json:"batch_id,omitempty"`
	NewItemGroups     map[string]ItemGroup    `json:"new_item_groups"`
	UpdatedItemGroups map[string]ItemGroup    `json:"updated_item_groups"`
	Variables         map[string]VariableDiff `json:"variables"`
	NewCodeLists      CodeLists               `json:"new_code_lists"`
	UpdatedCodeLists  CodeLists               `json:"updated_code_lists"`
}

// NewDiff returns a Diff with empty collections.
func NewDiff() Diff {
	return Diff{
		NewItemGroups:     map[string]ItemGroup{},
		UpdatedItemGroups: map[string]ItemGroup{},
		Variables:         map[string]VariableDiff{},
		NewCodeLists:      CodeLists{},
		UpdatedCodeLists:  CodeLists{},
	}
}

// Empty reports whether applying the diff would change nothing.
func (d Diff) Empty() bool {
	if len(d.NewItemGroups) > 0 || len(d.UpdatedItemGroups) > 0 || len(d.NewCodeLists) > 0 || len(d.UpdatedCodeLists) > 0 {
		return false
	}
	for _, v := range d.Variables {
		if len(v.NewItemDefs) > 0 || len(v.UpdatedItemDefs) > 0 || len(v.NewItemRefs) > 0 || len(v.UpdatedItemRefs) > 0 {
			return false
		}
	}
	return true
}

// Counts summarizes the number of entities created and updated by the diff.
func (d Diff) Counts() map[string]int {
	counts := map[string]int{
		"new_item_groups":     len(d.NewItemGroups),
		"updated_item_groups": len(d.UpdatedItemGroups),
		"new_code_lists":      len(d.NewCodeLists),
		"updated_code_lists":  len(d.UpdatedCodeLists),
	}
	for _, v := range d.Variables {
		counts["new_item_defs"] += len(v.NewItemDefs)
		counts["updated_item_defs"] += len(v.UpdatedItemDefs)
		counts["new_item_refs"] += len(v.NewItemRefs)
		counts["updated_item_refs"] += len(v.UpdatedItemRefs)
	}
	return counts
}
