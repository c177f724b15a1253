package define

import "context"

// Transaction exposes the graph operations a persistence implementation must
// support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateItemGroup(ItemGroup) (ItemGroup, error)
	UpdateItemGroup(oid string, mutator func(*ItemGroup) error) (ItemGroup, error)
	DeleteItemGroup(oid string) error
	CreateItemDef(itemGroupOID string, def ItemDef, ref ItemRef) (ItemDef, error)
	UpdateItemDef(oid string, mutator func(*ItemDef) error) (ItemDef, error)
	DeleteItemDef(oid string) error
	ApplyEdit(Edit) error
	ApplyDiff(Diff) error
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	MetaDataVersion() MetaDataVersion
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCodeList(oid string) (CodeList, bool)
	ListCodeLists() []CodeList
	ListItemGroups() []ItemGroup
	ListItemDefs() []ItemDef
	RulesEngine() *RulesEngine
}
