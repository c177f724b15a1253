// Package plugins hosts plugin implementation subpackages. Plugins contribute
// rules through core.PluginRegistry and must not reach storage or blob
// adapters directly.
package plugins
