package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"definecore/internal/blob"
	"definecore/internal/config"
	"definecore/internal/core"
	"definecore/internal/terminology"
	"definecore/pkg/define"
	"definecore/plugins/naming"
)

// options carries the persistent flags shared by every command.
type options struct {
	configPath string
	trace      bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "definecore",
		Short: "Maintain Define-XML datasets, variables and codelists",
		Long: `definecore keeps the datasets, variables and codelists of a Define-XML
document consistent while they are imported and edited. Settings come from
definecore.yaml and DEFINECORE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration file")
	root.PersistentFlags().BoolVar(&opts.trace, "trace", false, "write operation spans as JSON lines to stderr")

	root.AddCommand(newVersionCommand())
	root.AddCommand(newImportCommand(opts))
	root.AddCommand(newCodeListsCommand(opts))
	root.AddCommand(newTerminologyCommand(opts))
	return root
}

// app is the wiring of one command invocation.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   core.PersistentStore
	catalog *terminology.Catalog
	svc     *core.Service
}

func openApp(cmd *cobra.Command, opts *options) (*app, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	metrics, err := core.NewPrometheusMetricsRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	standards := core.NewStandards(nil)
	store, err := core.OpenPersistentStore(ctx, cfg.Storage, define.Model(cfg.Model), core.NewDefaultRulesEngine(standards), logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	svcOpts := []core.ServiceOption{
		core.WithLogger(logger),
		core.WithStandards(standards),
		core.WithMetricsRecorder(metrics),
	}
	if opts.trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(cmd.ErrOrStderr())))
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		catalog: terminology.NewCatalog(blobs, cfg.Terminology.Prefix, logger),
		svc:     core.NewService(store, svcOpts...),
	}
	if err := a.installPlugins(); err != nil {
		_ = a.Close()
		return nil, err
	}
	if _, err := a.svc.LoadStandards(ctx, a.catalog); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) installPlugins() error {
	var plugin core.Plugin
	switch a.cfg.Naming {
	case "warn":
		plugin = naming.New()
	case "block":
		plugin = naming.Strict()
	default:
		return nil
	}
	_, err := a.svc.InstallPlugin(plugin)
	return err
}

func (a *app) Close() error {
	err := core.CloseStore(a.store)
	_ = a.logger.Sync()
	return err
}

// run opens the app around fn and closes it afterwards.
func (o *options) run(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd, o)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, a, args)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatOf maps a file extension to "json" or "yaml".
func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("%s: expected a .json, .yaml or .yml file", path)
	}
}
