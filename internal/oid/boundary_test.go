package oid

import (
	"testing"

	"definecore/testutil"
)

func TestAllocatorImportsOnlyTheEntityModel(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Any(testutil.InternalImportForbidden, testutil.DriverImportForbidden),
		"identifier allocation has no dependencies")
}
