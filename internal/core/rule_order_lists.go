package core

import (
	"context"
	"fmt"
	"slices"
)

// NewOrderListsRule returns the rule requiring ItemOrder of every codelist and
// ItemRefOrder of every dataset to list exactly the keys of the matching
// collection, once each.
func NewOrderListsRule() Rule {
	return orderListsRule{}
}

type orderListsRule struct{}

func (orderListsRule) Name() string { return "order_lists" }

func (r orderListsRule) Evaluate(_ context.Context, view RuleView, _ []Change) (Result, error) {
	res := Result{}
	for _, cl := range view.ListCodeLists() {
		if shapeProblem(cl) != "" {
			continue
		}
		if msg := orderProblem(cl.ItemOrder, cl.ItemKeys()); msg != "" {
			res.Violations = append(res.Violations, blocking(r.Name(), EntityCodeList, cl.OID,
				fmt.Sprintf("codelist %s item order %s", cl.OID, msg)))
		}
	}
	for _, group := range view.ListItemGroups() {
		if msg := orderProblem(group.ItemRefOrder, sortedKeys(group.ItemRefs)); msg != "" {
			res.Violations = append(res.Violations, blocking(r.Name(), EntityItemGroup, group.OID,
				fmt.Sprintf("dataset %s item ref order %s", group.OID, msg)))
		}
	}
	return res, nil
}

// orderProblem compares an order list with the sorted key set it must cover.
func orderProblem(order, keys []string) string {
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if _, dup := seen[id]; dup {
			return fmt.Sprintf("lists %s twice", id)
		}
		seen[id] = struct{}{}
		if _, found := slices.BinarySearch(keys, id); !found {
			return fmt.Sprintf("lists unknown entry %s", id)
		}
	}
	if len(order) != len(keys) {
		return fmt.Sprintf("has %d entries for %d keys", len(order), len(keys))
	}
	return ""
}
