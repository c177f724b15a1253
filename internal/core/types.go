package core

import "definecore/pkg/define"

type (
	EntityType         = define.EntityType
	Severity           = define.Severity
	Change             = define.Change
	Action             = define.Action
	Violation          = define.Violation
	Result             = define.Result
	RuleViolationError = define.RuleViolationError
	Rule               = define.Rule
	RuleView           = define.RuleView
	RulesEngine        = define.RulesEngine
	Transaction        = define.Transaction
	TransactionView    = define.TransactionView
	PersistentStore    = define.PersistentStore
)

const (
	EntityItemGroup    = define.EntityItemGroup
	EntityItemDef      = define.EntityItemDef
	EntityItemRef      = define.EntityItemRef
	EntityCodeList     = define.EntityCodeList
	EntityCodeListItem = define.EntityCodeListItem
)

const (
	SeverityBlock = define.SeverityBlock
	SeverityWarn  = define.SeverityWarn
	SeverityLog   = define.SeverityLog
)

const (
	ActionCreate = define.ActionCreate
	ActionUpdate = define.ActionUpdate
	ActionDelete = define.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine { return define.NewRulesEngine() }
