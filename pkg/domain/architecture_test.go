package domain

import (
	"checklist/testutil"
	"testing"
)

// TestDomainDoesNotImportInternal keeps the record model free of storage and
// transport packages.
func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "domain must not import internal packages")
}
