package core

import (
	"context"
	"fmt"

	"definecore/pkg/define"
)

// NewCodeListShapeRule returns the rule requiring the populated item
// collection of every codelist to match its type tag.
func NewCodeListShapeRule() Rule {
	return codeListShapeRule{}
}

type codeListShapeRule struct{}

func (codeListShapeRule) Name() string { return "codelist_shape" }

func (r codeListShapeRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	for _, cl := range view.ListCodeLists() {
		if msg := shapeProblem(cl); msg != "" {
			res.Violations = append(res.Violations, blocking(r.Name(), EntityCodeList, cl.OID, msg))
		}
	}
	return res, nil
}

func shapeProblem(cl define.CodeList) string {
	enumerated, decoded, external := cl.EnumeratedItems != nil, cl.CodeListItems != nil, cl.ExternalCodeList != nil
	var ok bool
	switch cl.Type {
	case define.CodeListEnumerated:
		ok = enumerated && !decoded && !external
	case define.CodeListDecoded:
		ok = decoded && !enumerated && !external
	case define.CodeListExternal:
		ok = external && !enumerated && !decoded
	default:
		return fmt.Sprintf("codelist %s has invalid type %q", cl.OID, cl.Type)
	}
	if ok {
		return ""
	}
	return fmt.Sprintf("codelist %s of type %s holds enumerated=%t decoded=%t external=%t",
		cl.OID, cl.Type, enumerated, decoded, external)
}
