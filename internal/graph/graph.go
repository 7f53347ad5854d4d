package graph

import (
	"sort"

	"github.com/Benny93/sweepy-go/internal/module"
)

// DependencyGraph is the resolved linkage between the modules of a table.
//
// Only specifiers that resolve to a module of the table produce edges;
// package imports and unresolvable relative specifiers are dropped silently.
type DependencyGraph struct {
	table *module.Table

	adjacency map[module.ModulePath]map[module.ModulePath]struct{}
	edges     map[Edge]struct{}

	// usage is keyed by target and ordered by importer path, then statement order.
	usage map[module.ModulePath][]Usage

	// reexports is keyed by target and ordered like usage.
	reexports map[module.ModulePath][]ReExport
}

// Build derives the dependency graph, usage index and re-export index of a
// table.
func Build(table *module.Table) *DependencyGraph {
	g := &DependencyGraph{
		table:     table,
		adjacency: make(map[module.ModulePath]map[module.ModulePath]struct{}),
		edges:     make(map[Edge]struct{}),
		usage:     make(map[module.ModulePath][]Usage),
		reexports: make(map[module.ModulePath][]ReExport),
	}

	files := table.Files()

	for _, path := range table.Paths() {
		pf, _ := table.Get(path)

		for _, imp := range pf.Imports {
			target, ok := module.Resolve(path, imp.Source, files)
			if !ok {
				continue
			}
			g.addEdge(Edge{From: path, To: target, Kind: EdgeImport})
			g.usage[target] = append(g.usage[target], Usage{Importer: path, Record: imp})
		}

		for _, exp := range pf.Exports {
			source, ok := exp.ReExportSource()
			if !ok {
				continue
			}
			target, ok := module.Resolve(path, source, files)
			if !ok {
				continue
			}
			g.addEdge(Edge{From: path, To: target, Kind: edgeKindOf(exp)})
			g.reexports[target] = append(g.reexports[target], ReExport{Module: path, Item: exp})
		}
	}

	return g
}

func (g *DependencyGraph) addEdge(e Edge) {
	deps, ok := g.adjacency[e.From]
	if !ok {
		deps = make(map[module.ModulePath]struct{})
		g.adjacency[e.From] = deps
	}
	deps[e.To] = struct{}{}
	g.edges[e] = struct{}{}
}

// Table returns the module table the graph was built from.
func (g *DependencyGraph) Table() *module.Table {
	return g.table
}

// Dependencies returns the modules p depends on, in byte order.
func (g *DependencyGraph) Dependencies(p module.ModulePath) []module.ModulePath {
	deps := g.adjacency[p]
	out := make([]module.ModulePath, 0, len(deps))
	for d := range deps {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Importers returns the usage index entry of p: every import record, across
// all modules, that resolved to p.
func (g *DependencyGraph) Importers(p module.ModulePath) []Usage {
	return g.usage[p]
}

// ReExporters returns every export item, across all modules, whose source
// resolved to p.
func (g *DependencyGraph) ReExporters(p module.ModulePath) []ReExport {
	return g.reexports[p]
}

// Edges returns every distinct edge ordered by source, target and kind.
func (g *DependencyGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// EdgeCount returns the number of distinct (from, to) dependencies.
func (g *DependencyGraph) EdgeCount() int {
	count := 0
	for _, deps := range g.adjacency {
		count += len(deps)
	}
	return count
}
