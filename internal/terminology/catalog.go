package terminology

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"definecore/internal/blob/core"
	"definecore/pkg/define"
)

// Catalog loads controlled terminology packages stored as JSON or YAML blobs.
type Catalog struct {
	store  core.Store
	prefix string
	logger *zap.Logger
}

// NewCatalog returns a catalog reading packages under prefix.
func NewCatalog(store core.Store, prefix string, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, prefix: prefix, logger: logger}
}

// Load reads every package under the catalog prefix into a lookup keyed by
// standard OID. Blobs with other extensions are skipped.
func (c *Catalog) Load(ctx context.Context) (define.StandardLookup, error) {
	infos, err := c.store.List(ctx, c.prefix)
	if err != nil {
		return nil, fmt.Errorf("list terminology packages: %w", err)
	}
	lookup := define.StandardLookup{}
	for _, info := range infos {
		if formatOf(info.Key) == "" {
			c.logger.Debug("skipping non-package blob", zap.String("key", info.Key))
			continue
		}
		std, err := c.read(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		if _, dup := lookup[std.OID]; dup {
			return nil, fmt.Errorf("terminology package %s redefines standard %s", info.Key, std.OID)
		}
		lookup[std.OID] = std
		c.logger.Info("loaded terminology package",
			zap.String("key", info.Key),
			zap.String("standard", std.OID),
			zap.String("version", std.Version),
			zap.Int("codelists", len(std.CodeLists)))
	}
	return lookup, nil
}

// Save writes std as a JSON package named after its OID.
func (c *Catalog) Save(ctx context.Context, std define.Standard) (core.Info, error) {
	if std.OID == "" {
		return core.Info{}, fmt.Errorf("standard oid required")
	}
	payload, err := json.MarshalIndent(std, "", "  ")
	if err != nil {
		return core.Info{}, err
	}
	key := path.Join(c.prefix, std.OID+".json")
	return c.store.Put(ctx, key, bytes.NewReader(payload), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"standard": std.OID, "version": std.Version},
	})
}

func (c *Catalog) read(ctx context.Context, key string) (define.Standard, error) {
	_, rc, err := c.store.Get(ctx, key)
	if err != nil {
		return define.Standard{}, fmt.Errorf("read terminology package %s: %w", key, err)
	}
	defer rc.Close()
	std, err := Decode(formatOf(key), rc)
	if err != nil {
		return define.Standard{}, fmt.Errorf("decode terminology package %s: %w", key, err)
	}
	return std, nil
}

// Decode parses a package in the given format ("json" or "yaml"). Codelists
// without an explicit code take the map key as their NCI code.
func Decode(format string, r io.Reader) (define.Standard, error) {
	var std define.Standard
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&std); err != nil {
			return define.Standard{}, err
		}
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(&std); err != nil {
			return define.Standard{}, err
		}
	default:
		return define.Standard{}, fmt.Errorf("unsupported package format %q", format)
	}
	if std.OID == "" {
		return define.Standard{}, fmt.Errorf("package has no standard oid")
	}
	indexed := make(map[string]define.StandardCodeList, len(std.CodeLists))
	for key, cl := range std.CodeLists {
		if cl.Code == "" {
			cl.Code = key
		}
		indexed[cl.Code] = cl
	}
	std.CodeLists = indexed
	return std, nil
}

func formatOf(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}
