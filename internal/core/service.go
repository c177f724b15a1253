package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"definecore/internal/reconcile"
	"definecore/pkg/define"
)

// Service routes edit actions and import batches into store transactions.
type Service struct {
	store      PersistentStore
	reconciler *reconcile.Engine
	standards  *Standards
	logger     *zap.Logger
	metrics    MetricsRecorder
	tracer     Tracer
	now        func() time.Time

	mu      sync.Mutex
	plugins map[string]PluginMetadata
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. Nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the span factory.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithStandards shares a standard lookup holder, typically the one given to
// NewDefaultRulesEngine.
func WithStandards(standards *Standards) ServiceOption {
	return func(s *Service) {
		if standards != nil {
			s.standards = standards
		}
	}
}

// WithReconciler replaces the import reconciliation engine.
func WithReconciler(engine *reconcile.Engine) ServiceOption {
	return func(s *Service) {
		if engine != nil {
			s.reconciler = engine
		}
	}
}

// WithClock overrides the time source used for operation durations.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:      store,
		reconciler: reconcile.NewEngine(),
		standards:  NewStandards(nil),
		logger:     zap.NewNop(),
		metrics:    noopMetricsRecorder{},
		tracer:     noopTracer{},
		now:        time.Now,
		plugins:    make(map[string]PluginMetadata),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Standards returns the standard lookup holder.
func (s *Service) Standards() *Standards { return s.standards }

// observe wraps fn in a span and reports its outcome.
func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, operation)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, operation, err == nil, s.now().Sub(start))
	return err
}

// MetaDataVersion returns a copy of the committed graph.
func (s *Service) MetaDataVersion(ctx context.Context) (define.MetaDataVersion, error) {
	var mdv define.MetaDataVersion
	err := s.store.View(ctx, func(view TransactionView) error {
		mdv = view.MetaDataVersion()
		return nil
	})
	return mdv, err
}

// Dispatch applies edits in order within one transaction. Either every edit
// commits or none does. Edits carrying no resolved standard get one from the
// loaded terminology.
func (s *Service) Dispatch(ctx context.Context, edits ...define.Edit) (Result, error) {
	if len(edits) == 0 {
		return Result{}, errors.New("dispatch: no edits")
	}
	kinds := make([]string, 0, len(edits))
	for _, edit := range edits {
		if edit == nil {
			return Result{}, errors.New("dispatch: nil edit")
		}
		kinds = append(kinds, string(edit.Kind()))
	}
	var res Result
	err := s.observe(ctx, OperationDispatch, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, edit := range edits {
				if err := tx.ApplyEdit(s.resolve(tx.Snapshot(), edit)); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	s.logResult("dispatch", res, err, zap.Strings("edits", kinds))
	return res, err
}

// resolve attaches the standard codelist to edits that need one and left it unset.
func (s *Service) resolve(view TransactionView, edit define.Edit) define.Edit {
	switch e := edit.(type) {
	case define.CreateCodedValue:
		if e.Standard == nil {
			if cl, ok := view.FindCodeList(e.CodeListOID); ok {
				e.Standard, _ = s.standards.Resolve(cl)
			}
		}
		return e
	case define.UpdateCodeListStandard:
		if e.Standard == nil && e.StandardOID != "" {
			e.Standard, _ = s.standards.Resolve(define.CodeList{StandardOID: e.StandardOID, Alias: e.Alias})
		}
		return e
	default:
		return edit
	}
}

// Preview reconciles batch against the committed graph without applying it.
func (s *Service) Preview(ctx context.Context, batch define.ImportBatch) (define.Diff, error) {
	var diff define.Diff
	err := s.observe(ctx, OperationPreview, func(ctx context.Context) error {
		var err error
		diff, err = s.reconcile(ctx, batch)
		return err
	})
	if err != nil {
		s.logger.Warn("import preview rejected", zap.Error(err))
	}
	return diff, err
}

// Import reconciles batch against the graph of one transaction and applies
// the resulting diff in that same transaction, so no concurrent commit can
// slip between the two. A failing batch leaves the store untouched.
func (s *Service) Import(ctx context.Context, batch define.ImportBatch) (define.Diff, Result, error) {
	var (
		diff define.Diff
		res  Result
	)
	err := s.observe(ctx, OperationImport, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			diff, err = s.reconciler.Reconcile(batch, tx.Snapshot().MetaDataVersion(), s.standards.Lookup())
			if err != nil || diff.Empty() {
				return err
			}
			return tx.ApplyDiff(diff)
		})
		return err
	})
	fields := []zap.Field{zap.String("batch_id", diff.BatchID)}
	if err == nil {
		fields = append(fields, countFields(diff.Counts())...)
	}
	s.logResult("import", res, err, fields...)
	if err != nil {
		return define.Diff{}, res, err
	}
	return diff, res, nil
}

func (s *Service) reconcile(ctx context.Context, batch define.ImportBatch) (define.Diff, error) {
	mdv, err := s.MetaDataVersion(ctx)
	if err != nil {
		return define.Diff{}, err
	}
	return s.reconciler.Reconcile(batch, mdv, s.standards.Lookup())
}

// LoadStandards replaces the standard lookup with the packages produced by loader.
func (s *Service) LoadStandards(ctx context.Context, loader StandardLoader) (int, error) {
	if loader == nil {
		return 0, errors.New("standard loader cannot be nil")
	}
	var count int
	err := s.observe(ctx, OperationLoad, func(ctx context.Context) error {
		lookup, err := loader.Load(ctx)
		if err != nil {
			return err
		}
		s.standards.Replace(lookup)
		count = len(lookup)
		return nil
	})
	if err != nil {
		s.logger.Error("load standards failed", zap.Error(err))
		return 0, err
	}
	s.logger.Info("standards loaded", zap.Int("standards", count))
	return count, nil
}

func (s *Service) logResult(operation string, res Result, err error, fields ...zap.Field) {
	for _, v := range res.Violations {
		if v.Severity == SeverityWarn {
			s.logger.Warn("rule warning", zap.String("rule", v.Rule), zap.String("entity_id", v.EntityID), zap.String("message", v.Message))
		}
	}
	if err != nil {
		s.logger.Warn(operation+" rejected", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Info(operation+" committed", fields...)
}

func countFields(counts map[string]int) []zap.Field {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.Int(k, counts[k]))
	}
	return fields
}

// InstallPlugin registers a plugin, wiring its rules into the active engine.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	engine := s.store.RulesEngine()
	if engine == nil {
		return PluginMetadata{}, fmt.Errorf("plugin %s: store has no rules engine", plugin.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}

	meta := PluginMetadata{
		Name:    plugin.Name(),
		Version: plugin.Version(),
		Schemas: registry.Schemas(),
	}
	for _, rule := range registry.Rules() {
		engine.Register(rule)
		meta.Rules = append(meta.Rules, rule.Name())
	}
	s.plugins[plugin.Name()] = meta
	s.logger.Info("plugin installed", zap.String("plugin", meta.Name), zap.String("version", meta.Version), zap.Strings("rules", meta.Rules))
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins, sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
