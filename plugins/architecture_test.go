package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"definecore/testutil"
)

// TestPluginsDoNotImportAdapters walks every plugin package and rejects
// imports of persistence, blob or driver packages.
func TestPluginsDoNotImportAdapters(t *testing.T) {
	root, err := os.Getwd()
	if err != nil {
		t.Fatalf("cannot get working dir: %v", err)
	}
	forbidden := func(path string) bool {
		return testutil.DriverImportForbidden(path) ||
			(testutil.InfraImportForbidden(path) && path != "definecore/internal/core")
	}
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			testutil.AssertNoDirectImports(t, path, forbidden, "plugins depend on core only")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk plugins dir: %v", err)
	}
}
