package core

import (
	"context"
	"fmt"

	"definecore/pkg/define"
)

// NewLinkSymmetryRule returns the rule requiring linked codelists to point at
// each other. External codelists never take part in a link.
func NewLinkSymmetryRule() Rule {
	return linkSymmetryRule{}
}

type linkSymmetryRule struct{}

func (linkSymmetryRule) Name() string { return "link_symmetry" }

func (r linkSymmetryRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	mdv := graphOf(view)
	res := Result{}
	for _, id := range sortedKeys(mdv.CodeLists) {
		cl := mdv.CodeLists[id]
		target := cl.LinkedCodeListOID
		if target == "" {
			continue
		}
		var msg string
		partner, ok := mdv.CodeLists[target]
		switch {
		case target == id:
			msg = fmt.Sprintf("codelist %s is linked to itself", id)
		case !ok:
			msg = fmt.Sprintf("codelist %s is linked to missing codelist %s", id, target)
		case partner.LinkedCodeListOID != id:
			msg = fmt.Sprintf("codelist %s links %s but %s links %q", id, target, target, partner.LinkedCodeListOID)
		case cl.Type == define.CodeListExternal || partner.Type == define.CodeListExternal:
			msg = fmt.Sprintf("external codelist linked (%s, %s)", id, target)
		default:
			continue
		}
		res.Violations = append(res.Violations, blocking(r.Name(), EntityCodeList, id, msg))
	}
	return res, nil
}
