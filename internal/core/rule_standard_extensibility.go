package core

import (
	"context"
	"fmt"
	"strings"

	"definecore/internal/terminology"
	"definecore/pkg/define"
)

// NewStandardExtensibilityRule returns the rule rejecting coded values outside
// a non-extensible standard codelist unless flagged as extended values. Only
// codelists touched by the transaction are checked, so loading a newer
// terminology package does not block unrelated edits.
func NewStandardExtensibilityRule(standards *Standards) Rule {
	return standardExtensibilityRule{standards: standards}
}

type standardExtensibilityRule struct {
	standards *Standards
}

func (standardExtensibilityRule) Name() string { return "standard_extensibility" }

func (r standardExtensibilityRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	res := Result{}
	checked := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != EntityCodeList || change.Action == ActionDelete {
			continue
		}
		after, ok := change.After.(define.CodeList)
		if !ok {
			continue
		}
		if _, done := checked[after.OID]; done {
			continue
		}
		checked[after.OID] = struct{}{}
		cl, ok := view.FindCodeList(after.OID)
		if !ok {
			continue
		}
		std, ok := r.standards.Resolve(cl)
		if !ok {
			continue
		}
		if values := terminology.Violations(cl, std); len(values) > 0 {
			res.Violations = append(res.Violations, blocking(r.Name(), EntityCodeList, cl.OID,
				fmt.Sprintf("codelist %s is not extensible and values %s are not in the codelist", cl.Name, strings.Join(values, ", "))))
		}
	}
	return res, nil
}
