package core

// Plugin contributes extra rules and schema fragments, for example sponsor
// specific naming conventions.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	rules   []Rule
	schemas map[string]map[string]any
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{schemas: make(map[string]map[string]any)}
}

// RegisterRule adds an in-transaction rule contributed by the plugin.
func (r *PluginRegistry) RegisterRule(rule Rule) {
	if rule == nil {
		return
	}
	r.rules = append(r.rules, rule)
}

// RegisterSchema stores a JSON Schema fragment for an entity type.
func (r *PluginRegistry) RegisterSchema(entity EntityType, schema map[string]any) {
	if entity == "" || schema == nil {
		return
	}
	r.schemas[string(entity)] = copySchema(schema)
}

// Rules returns a copy of registered rules.
func (r *PluginRegistry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Schemas returns a copy of registered schema fragments keyed by entity type.
func (r *PluginRegistry) Schemas() map[string]map[string]any {
	out := make(map[string]map[string]any, len(r.schemas))
	for entity, schema := range r.schemas {
		out[entity] = copySchema(schema)
	}
	return out
}

// PluginMetadata describes an installed plugin.
type PluginMetadata struct {
	Name    string
	Version string
	Rules   []string
	Schemas map[string]map[string]any
}

func copySchema(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
