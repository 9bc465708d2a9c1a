package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFatal struct {
	msg string
}

func (r *recordingFatal) Fatalf(format string, args ...any) {
	r.msg = fmt.Sprintf(format, args...)
}

func TestBackendImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"checklist/internal/infra/persistence/sqlite", true},
		{"checklist/internal/infra", true},
		{"checklist/internal/core", false},
		{"checklist/pkg/domain", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BackendImportForbidden(c.in), c.in)
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	assert.True(t, InternalImportForbidden("checklist/internal/core"))
	assert.False(t, InternalImportForbidden("checklist/pkg/domain"))
}

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600))
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.go", "package tmp\nimport \"fmt\"\nimport \"forbidden/pkg\"\nfunc X(){fmt.Println(1)}\n")
	writeSource(t, dir, "main_test.go", "package tmp\nimport \"forbidden/other\"\n")
	writeSource(t, dir, "notes.txt", "import \"forbidden/txt\"")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o750))
	writeSource(t, filepath.Join(dir, "sub"), "sub.go", "package sub\nimport \"forbidden/sub\"\n")

	viols, err := directImportViolations(dir, func(p string) bool { return strings.HasPrefix(p, "forbidden/") })
	require.NoError(t, err)
	assert.Equal(t, []string{"forbidden/pkg (in main.go)"}, viols)
}

func TestDirectImportViolationsErrors(t *testing.T) {
	_, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), func(string) bool { return false })
	assert.Error(t, err)

	dir := t.TempDir()
	writeSource(t, dir, "bad.go", "package tmp\nimport (\n")
	_, err = directImportViolations(dir, func(string) bool { return false })
	assert.Error(t, err)
}

func TestAssertNoDirectImportsPasses(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}\n")
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

func TestTransitiveViolationsUseLoader(t *testing.T) {
	orig := loadDeps
	t.Cleanup(func() { loadDeps = orig })

	loadDeps = func(string) ([]string, error) {
		return []string{"checklist/internal/core", "checklist/internal/infra/persistence/memory", "fmt"}, nil
	}
	viols, err := transitiveDependencyViolations("./...", BackendImportForbidden)
	require.NoError(t, err)
	assert.Equal(t, []string{"checklist/internal/infra/persistence/memory"}, viols)

	loadDeps = func(string) ([]string, error) { return nil, errors.New("boom") }
	_, err = transitiveDependencyViolations("./...", BackendImportForbidden)
	assert.EqualError(t, err, "boom")
}

func TestFailHelpers(t *testing.T) {
	rec := &recordingFatal{}
	failIfTransitiveViolations(rec, "reason", nil)
	failIfDirectViolations(rec, "reason", nil)
	assert.Empty(t, rec.msg)

	failIfTransitiveViolations(rec, "layering", []string{"a", "b"})
	assert.Contains(t, rec.msg, "forbidden transitive dependency detected (layering)")
	assert.Contains(t, rec.msg, "a\nb")

	failIfDirectViolations(rec, "adapter", []string{"x (in y.go)"})
	assert.Contains(t, rec.msg, "forbidden direct imports detected (adapter)")
}

func TestAssertNoTransitiveDependencyOnDomain(t *testing.T) {
	AssertNoTransitiveDependency(t, "checklist/pkg/domain", InternalImportForbidden, "domain must stay independent")
}
