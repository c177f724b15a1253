// Package naming is a plugin warning about dataset and variable names that do
// not fit SAS version 5 transport files: upper case, at most 8 characters,
// labels of at most 40 characters.
package naming

import (
	"context"
	"fmt"
	"regexp"

	"definecore/internal/core"
	"definecore/pkg/define"
)

// RuleName identifies the violations reported by the plugin.
const RuleName = "transport_names"

const (
	maxNameLength  = 8
	maxLabelLength = 40
)

var namePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Plugin registers the transport naming rule.
type Plugin struct {
	severity core.Severity
}

// New returns a plugin reporting warnings.
func New() Plugin { return Plugin{severity: core.SeverityWarn} }

// Strict returns a plugin whose violations block the transaction.
func Strict() Plugin { return Plugin{severity: core.SeverityBlock} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return "naming" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register wires the schema fragments and the naming rule.
func (p Plugin) Register(registry *core.PluginRegistry) error {
	nameSchema := map[string]any{
		"type":      "string",
		"pattern":   namePattern.String(),
		"maxLength": maxNameLength,
	}
	registry.RegisterSchema(core.EntityItemGroup, map[string]any{
		"properties": map[string]any{"name": nameSchema},
	})
	registry.RegisterSchema(core.EntityItemDef, map[string]any{
		"properties": map[string]any{
			"name":  nameSchema,
			"label": map[string]any{"type": "string", "maxLength": maxLabelLength},
		},
	})
	registry.RegisterRule(transportNamesRule{severity: p.severity})
	return nil
}

// transportNamesRule checks the datasets and variables written by the transaction.
type transportNamesRule struct {
	severity core.Severity
}

func (transportNamesRule) Name() string { return RuleName }

func (r transportNamesRule) Evaluate(_ context.Context, _ core.RuleView, changes []core.Change) (core.Result, error) {
	var res core.Result
	seen := map[string]struct{}{}
	report := func(entity core.EntityType, id, message string) {
		res.Violations = append(res.Violations, core.Violation{
			Rule:     RuleName,
			Severity: r.severity,
			Message:  message,
			Entity:   entity,
			EntityID: id,
		})
	}
	for _, change := range changes {
		switch after := change.After.(type) {
		case define.ItemGroup:
			if _, dup := seen[after.OID]; dup {
				continue
			}
			seen[after.OID] = struct{}{}
			if problem := nameProblem(after.Name); problem != "" {
				report(core.EntityItemGroup, after.OID, fmt.Sprintf("dataset name %s %s", after.Name, problem))
			}
		case define.ItemDef:
			if _, dup := seen[after.OID]; dup {
				continue
			}
			seen[after.OID] = struct{}{}
			if problem := nameProblem(after.Name); problem != "" {
				report(core.EntityItemDef, after.OID, fmt.Sprintf("variable name %s %s", after.Name, problem))
			}
			if label := after.Label(); len(label) > maxLabelLength {
				report(core.EntityItemDef, after.OID, fmt.Sprintf("label of variable %s is longer than %d characters", after.Name, maxLabelLength))
			}
		}
	}
	return res, nil
}

func nameProblem(name string) string {
	switch {
	case len(name) > maxNameLength:
		return fmt.Sprintf("is longer than %d characters", maxNameLength)
	case !namePattern.MatchString(name):
		return "must start with a letter and use upper case letters, digits and underscores"
	default:
		return ""
	}
}
