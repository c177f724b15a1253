// Package memory provides the in-memory implementation of the metadata graph
// store. Durable backends wrap it and persist its snapshots.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"definecore/pkg/define"
)

// Compile-time contract assertion ensuring memory.Store adheres to the persistence interface.
var _ define.PersistentStore = (*Store)(nil)

type (
	// ItemGroup aliases define.ItemGroup for in-memory persistence operations.
	ItemGroup = define.ItemGroup
	// ItemDef aliases define.ItemDef.
	ItemDef = define.ItemDef
	// ItemRef aliases define.ItemRef.
	ItemRef = define.ItemRef
	// CodeList aliases define.CodeList.
	CodeList = define.CodeList
	// Change aliases define.Change captured in transactions.
	Change = define.Change
	// Result aliases define.Result summarizing rule evaluation.
	Result = define.Result
	// RulesEngine aliases define.RulesEngine used to evaluate rules.
	RulesEngine = define.RulesEngine
	// Transaction aliases define.Transaction representing a mutable unit of work.
	Transaction = define.Transaction
	// TransactionView aliases define.TransactionView providing read-only state.
	TransactionView = define.TransactionView
)

type memoryState struct {
	oid        string
	model      define.Model
	itemGroups map[string]ItemGroup
	itemDefs   map[string]ItemDef
	codeLists  define.CodeLists
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	OID        string               `json:"oid"`
	Model      define.Model         `json:"model"`
	ItemGroups map[string]ItemGroup `json:"item_groups"`
	ItemDefs   map[string]ItemDef   `json:"item_defs"`
	CodeLists  map[string]CodeList  `json:"code_lists"`
}

func newMemoryState(oid string, model define.Model) memoryState {
	return memoryState{
		oid:        oid,
		model:      model,
		itemGroups: make(map[string]ItemGroup),
		itemDefs:   make(map[string]ItemDef),
		codeLists:  make(define.CodeLists),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		OID:        cloned.oid,
		Model:      cloned.model,
		ItemGroups: cloned.itemGroups,
		ItemDefs:   cloned.itemDefs,
		CodeLists:  cloned.codeLists,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState(s.OID, s.Model)
	for k, v := range s.ItemGroups {
		state.itemGroups[k] = v.Clone()
	}
	for k, v := range s.ItemDefs {
		state.itemDefs[k] = v.Clone()
	}
	for k, v := range s.CodeLists {
		state.codeLists[k] = v.Clone()
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState(s.oid, s.model)
	for k, v := range s.itemGroups {
		cloned.itemGroups[k] = v.Clone()
	}
	for k, v := range s.itemDefs {
		cloned.itemDefs[k] = v.Clone()
	}
	cloned.codeLists = s.codeLists.Clone()
	return cloned
}

func (s memoryState) metaDataVersion() define.MetaDataVersion {
	return define.MetaDataVersion{
		OID:        s.oid,
		Model:      s.model,
		ItemGroups: s.itemGroups,
		ItemDefs:   s.itemDefs,
		CodeLists:  s.codeLists,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithModel sets the data model of an empty store.
func WithModel(model define.Model) Option {
	return func(s *Store) { s.state.model = model }
}

// WithOID sets the metadata version identifier of an empty store.
func WithOID(oid string) Option {
	return func(s *Store) { s.state.oid = oid }
}

// Store provides an in-memory transactional store for the metadata graph.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = define.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState("MDV.1", define.ModelSDTM),
		engine: engine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot, repairing
// references that do not hold.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points like plugins.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// MetaDataVersion returns a deep copy of the committed graph.
func (s *Store) MetaDataVersion() define.MetaDataVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone().metaDataVersion()
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules are evaluated over the resulting state; blocking violations discard it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone()}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, define.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// Read helpers ---------------------------------------------------------------

// GetCodeList retrieves a codelist by OID from committed state.
func (s *Store) GetCodeList(oid string) (CodeList, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cl, ok := s.state.codeLists[oid]
	if !ok {
		return CodeList{}, false
	}
	return cl.Clone(), true
}

// ListCodeLists returns all codelists from committed state ordered by OID.
func (s *Store) ListCodeLists() []CodeList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCodeLists(&s.state)
}

// GetItemGroup retrieves a dataset by OID from committed state.
func (s *Store) GetItemGroup(oid string) (ItemGroup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.state.itemGroups[oid]
	if !ok {
		return ItemGroup{}, false
	}
	return g.Clone(), true
}

// ListItemGroups returns all datasets from committed state ordered by OID.
func (s *Store) ListItemGroups() []ItemGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listItemGroups(&s.state)
}

// GetItemDef retrieves a variable by OID from committed state.
func (s *Store) GetItemDef(oid string) (ItemDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.itemDefs[oid]
	if !ok {
		return ItemDef{}, false
	}
	return d.Clone(), true
}

// ListItemDefs returns all variables from committed state ordered by OID.
func (s *Store) ListItemDefs() []ItemDef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listItemDefs(&s.state)
}

func listItemGroups(state *memoryState) []ItemGroup {
	out := make([]ItemGroup, 0, len(state.itemGroups))
	for _, id := range sortedKeys(state.itemGroups) {
		out = append(out, state.itemGroups[id].Clone())
	}
	return out
}

func listItemDefs(state *memoryState) []ItemDef {
	out := make([]ItemDef, 0, len(state.itemDefs))
	for _, id := range sortedKeys(state.itemDefs) {
		out = append(out, state.itemDefs[id].Clone())
	}
	return out
}

func listCodeLists(state *memoryState) []CodeList {
	out := make([]CodeList, 0, len(state.codeLists))
	for _, id := range sortedKeys(state.codeLists) {
		out = append(out, state.codeLists[id].Clone())
	}
	return out
}

func sortedKeys[V any, M ~map[string]V](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) Model() define.Model         { return v.state.model }
func (v transactionView) ListItemGroups() []ItemGroup { return listItemGroups(v.state) }
func (v transactionView) ListItemDefs() []ItemDef     { return listItemDefs(v.state) }
func (v transactionView) ListCodeLists() []CodeList   { return listCodeLists(v.state) }

// MetaDataVersion returns a deep copy of the snapshot graph.
func (v transactionView) MetaDataVersion() define.MetaDataVersion {
	return v.state.clone().metaDataVersion()
}

// FindItemGroup returns the dataset with the given OID.
func (v transactionView) FindItemGroup(oid string) (ItemGroup, bool) {
	g, ok := v.state.itemGroups[oid]
	if !ok {
		return ItemGroup{}, false
	}
	return g.Clone(), true
}

// FindItemDef returns the variable with the given OID.
func (v transactionView) FindItemDef(oid string) (ItemDef, bool) {
	d, ok := v.state.itemDefs[oid]
	if !ok {
		return ItemDef{}, false
	}
	return d.Clone(), true
}

// FindCodeList returns the codelist with the given OID.
func (v transactionView) FindCodeList(oid string) (CodeList, bool) {
	cl, ok := v.state.codeLists[oid]
	if !ok {
		return CodeList{}, false
	}
	return cl.Clone(), true
}

func notFound(entity define.EntityType, id string) error {
	return define.ErrNotFound{Entity: entity, ID: id}
}

func alreadyExists(entity define.EntityType, id string) error {
	return fmt.Errorf("%s %q already exists", entity, id)
}
