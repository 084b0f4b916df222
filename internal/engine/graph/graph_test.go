package graph

import (
	"reflect"
	"testing"

	"boundary/internal/engine/parser"
)

func loc(file string, line int) parser.Location {
	return parser.Location{File: file, Line: line}
}

func TestSetFileAddsEdges(t *testing.T) {
	g := NewGraph()

	affected := g.SetFileImports("src/api/a.py", "api", []FileImport{
		{To: "db", Location: loc("src/api/a.py", 3)},
		{To: "billing", Location: loc("src/api/a.py", 4)},
	})
	if !reflect.DeepEqual(affected, []string{"api", "billing", "db"}) {
		t.Fatalf("affected = %v", affected)
	}

	edges := g.EdgesFrom("api")
	if len(edges) != 2 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].To != "billing" || edges[1].To != "db" {
		t.Errorf("edge order: %+v", edges)
	}
	if edges[1].Occurrences[0].Location.Line != 3 {
		t.Errorf("occurrence location: %+v", edges[1].Occurrences)
	}
}

func TestSetFileReplacesContribution(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/api/a.py", "api", []FileImport{{To: "db", Location: loc("src/api/a.py", 3)}})

	// Edit drops the db import and adds billing.
	affected := g.SetFileImports("src/api/a.py", "api", []FileImport{{To: "billing", Location: loc("src/api/a.py", 1)}})
	if !reflect.DeepEqual(affected, []string{"api", "billing", "db"}) {
		t.Fatalf("affected = %v", affected)
	}

	edges := g.EdgesFrom("api")
	if len(edges) != 1 || edges[0].To != "billing" {
		t.Fatalf("stale edge survived: %+v", edges)
	}
	if len(g.EdgesTo("db")) != 0 {
		t.Error("reverse index kept removed edge")
	}
}

func TestDuplicateImportsKeepFirstOccurrence(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/api/a.py", "api", []FileImport{
		{To: "db", Location: loc("src/api/a.py", 2)},
		{To: "db", Location: loc("src/api/a.py", 9)},
	})

	edges := g.EdgesFrom("api")
	if len(edges) != 1 || len(edges[0].Occurrences) != 1 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].Occurrences[0].Location.Line != 2 {
		t.Errorf("kept wrong occurrence: %+v", edges[0].Occurrences)
	}
}

func TestSelfImportsProduceNoEdge(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/api/a.py", "api", []FileImport{{To: "api", Location: loc("src/api/a.py", 1)}})

	if edges := g.EdgesFrom("api"); len(edges) != 0 {
		t.Fatalf("self edge: %+v", edges)
	}
}

func TestRemoveFileDropsModuleWhenEmpty(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/api/a.py", "api", []FileImport{{To: "db", Location: loc("src/api/a.py", 1)}})
	g.SetFileImports("src/db/pool.py", "db", nil)

	affected := g.RemoveFile("src/api/a.py")
	if !reflect.DeepEqual(affected, []string{"api", "db"}) {
		t.Fatalf("affected = %v", affected)
	}
	if mods := g.Modules(); !reflect.DeepEqual(mods, []string{"db"}) {
		t.Errorf("modules = %v", mods)
	}
}

func TestEdgeSurvivesWhileAnotherFileImports(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/api/a.py", "api", []FileImport{{To: "db", Location: loc("src/api/a.py", 1)}})
	g.SetFileImports("src/api/b.py", "api", []FileImport{{To: "db", Location: loc("src/api/b.py", 5)}})

	g.RemoveFile("src/api/a.py")

	edges := g.EdgesFrom("api")
	if len(edges) != 1 || len(edges[0].Occurrences) != 1 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].Occurrences[0].File != "src/api/b.py" {
		t.Errorf("wrong surviving occurrence: %+v", edges[0].Occurrences)
	}
}

func TestDetectCycles(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/a/f.py", "a", []FileImport{{To: "b", Location: loc("src/a/f.py", 1)}})
	g.SetFileImports("src/b/f.py", "b", []FileImport{{To: "c", Location: loc("src/b/f.py", 1)}})
	g.SetFileImports("src/c/f.py", "c", []FileImport{{To: "a", Location: loc("src/c/f.py", 1)}})

	cycles := g.DetectCycles()
	if len(cycles) != 1 {
		t.Fatalf("cycles = %v", cycles)
	}
	if len(cycles[0]) != 3 {
		t.Errorf("cycle = %v", cycles[0])
	}
}

func TestFindImportChain(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/a/f.py", "a", []FileImport{{To: "b", Location: loc("src/a/f.py", 1)}})
	g.SetFileImports("src/b/f.py", "b", []FileImport{{To: "c", Location: loc("src/b/f.py", 1)}})
	g.SetFileImports("src/c/f.py", "c", nil)

	chain, ok := g.FindImportChain("a", "c")
	if !ok || !reflect.DeepEqual(chain, []string{"a", "b", "c"}) {
		t.Fatalf("chain = %v, %v", chain, ok)
	}
	if _, ok := g.FindImportChain("c", "a"); ok {
		t.Error("reverse chain should not exist")
	}
}

func TestDependents(t *testing.T) {
	g := NewGraph()
	g.SetFileImports("src/a/f.py", "a", []FileImport{{To: "b", Location: loc("src/a/f.py", 1)}})
	g.SetFileImports("src/b/f.py", "b", []FileImport{{To: "c", Location: loc("src/b/f.py", 1)}})
	g.SetFileImports("src/c/f.py", "c", nil)
	g.SetFileImports("src/d/f.py", "d", nil)

	deps := g.Dependents("c")
	if !reflect.DeepEqual(deps, []string{"a", "b", "c"}) {
		t.Fatalf("dependents = %v", deps)
	}
}
