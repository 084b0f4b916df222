package resolver

import (
	"sort"

	"boundary/internal/shared/util"
)

// RootModule is the module that owns files living directly in a source root,
// outside every declared module path.
const RootModule = "<root>"

// Index is the set of declared module paths. Files and import targets resolve
// to their nearest declared ancestor, so lookups are longest-prefix matches
// over dotted paths.
type Index struct {
	modules map[string]struct{}
	hasRoot bool
}

func NewIndex() *Index {
	return &Index{modules: make(map[string]struct{})}
}

func (x *Index) Add(module string) {
	if module == "" {
		return
	}
	if module == RootModule {
		x.hasRoot = true
		return
	}
	x.modules[module] = struct{}{}
}

// Owner returns the nearest declared module that is the candidate itself or a
// dotted ancestor of it. Falls back to the root module when declared.
func (x *Index) Owner(candidate string) (string, bool) {
	for _, anc := range util.ModuleAncestry(candidate) {
		if _, ok := x.modules[anc]; ok {
			return anc, true
		}
	}
	if x.hasRoot {
		return RootModule, true
	}
	return "", false
}

func (x *Index) Modules() []string {
	out := make([]string, 0, len(x.modules)+1)
	for m := range x.modules {
		out = append(out, m)
	}
	if x.hasRoot {
		out = append(out, RootModule)
	}
	sort.Strings(out)
	return out
}

func (x *Index) Len() int {
	n := len(x.modules)
	if x.hasRoot {
		n++
	}
	return n
}
