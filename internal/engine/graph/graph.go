package graph

import (
	"sort"
	"sync"

	"boundary/internal/engine/parser"
	"boundary/internal/shared/observability"
)

// FileImport is one resolved import edge contributed by a file: the file's
// module imports To at Location. Items are the member names pulled in, when
// the import form names them.
type FileImport struct {
	To       string
	Location parser.Location
	Items    []string
}

// Occurrence is the concrete site backing a module edge.
type Occurrence struct {
	File     string
	Location parser.Location
	Items    []string
}

// Edge aggregates every occurrence of From importing To.
type Edge struct {
	From        string
	To          string
	Occurrences []Occurrence
}

// Graph is the module dependency graph. Edges only exist between modules the
// resolver knows; per file and target, the first occurrence is kept. Updates
// are atomic per file: a file's old contributions are removed before its new
// ones land.
type Graph struct {
	mu sync.RWMutex

	fileModule map[string]string                        // path -> module
	fileEdges  map[string]map[string]occurrenceData     // path -> to -> first occurrence
	modules    map[string]map[string]bool               // module -> files
	edges      map[string]map[string]map[string]occurrenceData // from -> to -> path -> occurrence
	importedBy map[string]map[string]bool               // to -> from
}

func NewGraph() *Graph {
	return &Graph{
		fileModule: make(map[string]string),
		fileEdges:  make(map[string]map[string]occurrenceData),
		modules:    make(map[string]map[string]bool),
		edges:      make(map[string]map[string]map[string]occurrenceData),
		importedBy: make(map[string]map[string]bool),
	}
}

// SetFileImports replaces the file's contribution to the graph and returns the
// modules whose edge sets changed.
func (g *Graph) SetFileImports(path, module string, imports []FileImport) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	affected := make(map[string]bool)
	g.removeFileLocked(path, affected)

	g.fileModule[path] = module
	if g.modules[module] == nil {
		g.modules[module] = make(map[string]bool)
	}
	g.modules[module][path] = true
	affected[module] = true

	targets := make(map[string]occurrenceData, len(imports))
	for _, imp := range imports {
		if imp.To == module {
			continue
		}
		if prev, seen := targets[imp.To]; seen {
			// First occurrence wins but member names accumulate.
			prev.items = append(prev.items, imp.Items...)
			targets[imp.To] = prev
			g.edges[module][imp.To][path] = prev
			continue
		}
		occ := occurrenceData{location: imp.Location, items: append([]string(nil), imp.Items...)}
		targets[imp.To] = occ
		g.addEdgeLocked(module, imp.To, path, occ)
		affected[imp.To] = true
	}
	g.fileEdges[path] = targets

	g.updateGaugesLocked()
	return sortedKeys(affected)
}

// RemoveFile drops the file and its edges, returning affected modules.
func (g *Graph) RemoveFile(path string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	affected := make(map[string]bool)
	g.removeFileLocked(path, affected)
	g.updateGaugesLocked()
	return sortedKeys(affected)
}

func (g *Graph) removeFileLocked(path string, affected map[string]bool) {
	module, ok := g.fileModule[path]
	if !ok {
		return
	}
	affected[module] = true

	for to := range g.fileEdges[path] {
		affected[to] = true
		if byTo := g.edges[module]; byTo != nil {
			if occ := byTo[to]; occ != nil {
				delete(occ, path)
				if len(occ) == 0 {
					delete(byTo, to)
					if rev := g.importedBy[to]; rev != nil {
						delete(rev, module)
						if len(rev) == 0 {
							delete(g.importedBy, to)
						}
					}
				}
			}
			if len(byTo) == 0 {
				delete(g.edges, module)
			}
		}
	}
	delete(g.fileEdges, path)
	delete(g.fileModule, path)

	if files := g.modules[module]; files != nil {
		delete(files, path)
		if len(files) == 0 {
			delete(g.modules, module)
		}
	}
}

func (g *Graph) addEdgeLocked(from, to, path string, occ occurrenceData) {
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]map[string]occurrenceData)
	}
	if g.edges[from][to] == nil {
		g.edges[from][to] = make(map[string]occurrenceData)
	}
	g.edges[from][to][path] = occ

	if g.importedBy[to] == nil {
		g.importedBy[to] = make(map[string]bool)
	}
	g.importedBy[to][from] = true
}

func (g *Graph) Modules() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.modules)
}

func (g *Graph) Files(module string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.modules[module]))
	for f := range g.modules[module] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (g *Graph) ModuleOf(path string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.fileModule[path]
	return m, ok
}

// EdgesFrom returns the outgoing edges of a module, occurrences ordered by
// file then line.
func (g *Graph) EdgesFrom(module string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edgesFromLocked(module)
}

func (g *Graph) edgesFromLocked(module string) []Edge {
	byTo := g.edges[module]
	out := make([]Edge, 0, len(byTo))
	for _, to := range sortedKeys(byTo) {
		out = append(out, buildEdge(module, to, byTo[to]))
	}
	return out
}

// EdgesTo returns the incoming edges of a module.
func (g *Graph) EdgesTo(module string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	froms := sortedKeys(g.importedBy[module])
	out := make([]Edge, 0, len(froms))
	for _, from := range froms {
		if occ := g.edges[from][module]; occ != nil {
			out = append(out, buildEdge(from, module, occ))
		}
	}
	return out
}

// Edges returns every module edge in deterministic order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []Edge
	for _, from := range sortedKeys(g.edges) {
		out = append(out, g.edgesFromLocked(from)...)
	}
	return out
}

func (g *Graph) Stats() (modules, edges int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.modules), g.edgeCountLocked()
}

func (g *Graph) edgeCountLocked() int {
	n := 0
	for _, byTo := range g.edges {
		n += len(byTo)
	}
	return n
}

func (g *Graph) updateGaugesLocked() {
	observability.GraphModules.Set(float64(len(g.modules)))
	observability.GraphEdges.Set(float64(g.edgeCountLocked()))
}

type occurrenceData struct {
	location parser.Location
	items    []string
}

func buildEdge(from, to string, occ map[string]occurrenceData) Edge {
	e := Edge{From: from, To: to}
	for _, f := range sortedKeys(occ) {
		e.Occurrences = append(e.Occurrences, Occurrence{File: f, Location: occ[f].location, Items: occ[f].items})
	}
	return e
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
