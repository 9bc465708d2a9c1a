package core

import (
	"go/types"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestBackendImplementationsHardening ensures only the sanctioned persistence
// packages provide concrete implementations of domain.Backend. Adding a new
// backend requires updating the allowed list on purpose.
func TestBackendImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes}
	pkgs, err := packages.Load(cfg, "checklist/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var backend *types.Interface
	for _, p := range pkgs {
		if p.PkgPath != "checklist/pkg/domain" || p.Types == nil {
			continue
		}
		obj := p.Types.Scope().Lookup("Backend")
		if obj == nil {
			t.Fatalf("domain.Backend not found")
		}
		iface, ok := obj.Type().Underlying().(*types.Interface)
		if !ok {
			t.Fatalf("domain.Backend is not an interface")
		}
		backend = iface
	}
	if backend == nil {
		t.Fatalf("failed to resolve Backend interface")
	}
	allowed := map[string]struct{}{
		"checklist/internal/infra/persistence/memory":      {},
		"checklist/internal/infra/persistence/jsonfile":    {},
		"checklist/internal/infra/persistence/sqlite":      {},
		"checklist/internal/infra/persistence/postgres":    {},
		"checklist/internal/infra/persistence/objectstore": {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			named, ok := p.Types.Scope().Lookup(name).Type().(*types.Named)
			if !ok {
				continue
			}
			if _, isStruct := named.Underlying().(*types.Struct); !isStruct {
				continue
			}
			if types.Implements(types.NewPointer(named), backend) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		_, file, line, _ := runtime.Caller(0)
		t.Fatalf("unexpected Backend implementations (update allowed list intentionally if adding a new backend):\nfile=%s:%d\n%v", filepath.Base(file), line, unexpected)
	}
}
