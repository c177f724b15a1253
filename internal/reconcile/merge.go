package reconcile

import (
	"slices"
	"strings"

	"definecore/pkg/define"
)

// set assigns value to dst unless value is blank. Blank import fields never
// overwrite existing values.
func set(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// relabel sets the value of *text, keeping its language. An unchanged or
// blank value leaves *text as is; the existing text is copied, never mutated.
func relabel(text **define.TranslatedText, value string) {
	if value == "" || (*text != nil && (*text).Value == value) {
		return
	}
	var next define.TranslatedText
	if *text != nil {
		next = **text
	}
	next.Value = value
	*text = &next
}

func mergeItemGroup(group *define.ItemGroup, rec define.DatasetRecord) {
	relabel(&group.Description, rec.Label)
}

func mergeItemDef(def *define.ItemDef, rec define.VariableRecord) {
	set(&def.DataType, rec.DataType)
	set(&def.Length, rec.Length)
	set(&def.FractionDigits, rec.FractionDigits)
	set(&def.DisplayFormat, rec.DisplayFormat)
}

func mergeItemRef(ref *define.ItemRef, rec define.VariableRecord) {
	set(&ref.Mandatory, rec.Mandatory)
	set(&ref.KeySequence, rec.KeySequence)
	set(&ref.Role, rec.Role)
}

// describe recomputes the description and first origin of def from the
// record. Only supplied fields change; an origin type outside allowed is rejected.
func describe(def *define.ItemDef, rec define.VariableRecord, allowed []string) error {
	relabel(&def.Description, rec.Label)
	if rec.OriginType == "" && rec.OriginDescription == "" && rec.OriginSource == "" {
		return nil
	}
	var origin define.Origin
	if len(def.Origins) > 0 {
		origin = def.Origins[0]
	}
	if rec.OriginType != "" {
		if allowed != nil && !slices.Contains(allowed, rec.OriginType) {
			return define.NewImportError(define.InvalidEnumValue, rec.Dataset+"."+rec.Variable,
				"invalid origin type value %q, must be one of the following values: %s", rec.OriginType, strings.Join(allowed, ", "))
		}
		origin.Type = rec.OriginType
	}
	set(&origin.Source, rec.OriginSource)
	relabel(&origin.Description, rec.OriginDescription)
	if len(def.Origins) == 0 {
		def.Origins = []define.Origin{origin}
	} else {
		def.Origins[0] = origin
	}
	return nil
}

func mergeCodeList(cl *define.CodeList, rec define.CodeListRecord) {
	set(&cl.DataType, rec.DataType)
	set(&cl.SubmissionValue, rec.SubmissionValue)
	if cl.ExternalCodeList != nil {
		set(&cl.ExternalCodeList.Dictionary, rec.Dictionary)
		set(&cl.ExternalCodeList.Version, rec.Version)
	}
}

// codedValuePatch builds the update for an existing coded value. Decodes are
// applied to decoded codelists only.
func codedValuePatch(cl define.CodeList, rec define.CodedValueRecord) define.CodedValuePatch {
	var patch define.CodedValuePatch
	if rec.Rank != "" {
		rank := rec.Rank
		patch.Rank = &rank
	}
	if rec.Decode != "" && cl.Type == define.CodeListDecoded {
		decode := rec.Decode
		patch.Decode = &decode
	}
	return patch
}
