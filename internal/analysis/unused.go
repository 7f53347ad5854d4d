package analysis

import (
	"sort"

	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/module"
)

// UnusedExport is a named export that no importer consumes, directly or
// through a chain of re-exports.
type UnusedExport struct {
	File module.ModulePath `json:"file"`
	Name string            `json:"name"`
}

type usageKey struct {
	module module.ModulePath
	name   string
}

// usageResolver answers used(M, name) queries over one graph.
type usageResolver struct {
	g *graph.DependencyGraph
}

// used reports whether the export name of m is consumed. The query is a
// reachability search over forwarding re-export edges: every (module, name)
// pair is expanded at most once per query, so cycles terminate and barrel
// diamonds stay linear in the number of edges.
func (r *usageResolver) used(m module.ModulePath, name string, visited map[usageKey]bool) bool {
	key := usageKey{module: m, name: name}
	if visited[key] {
		return false
	}
	visited[key] = true

	for _, u := range r.g.Importers(m) {
		if u.Record.Requests(name) {
			return true
		}
	}

	for _, re := range r.g.ReExporters(m) {
		if re.Forwards(name) && r.used(re.Module, name, visited) {
			return true
		}
	}

	return false
}

// FindUnusedExports evaluates every named export of every module, reachable
// or not, and returns the unused ones sorted by file then name. Wildcard
// exports are pass-through and never reported themselves.
func FindUnusedExports(g *graph.DependencyGraph) []UnusedExport {
	r := &usageResolver{g: g}
	seen := make(map[UnusedExport]struct{})
	out := []UnusedExport{}

	for _, path := range g.Table().Paths() {
		pf, _ := g.Table().Get(path)
		for _, exp := range pf.Exports {
			ne, ok := exp.(module.NamedExport)
			if !ok {
				continue
			}
			ue := UnusedExport{File: path, Name: ne.Name}
			if _, dup := seen[ue]; dup {
				continue
			}
			seen[ue] = struct{}{}
			if !r.used(path, ne.Name, make(map[usageKey]bool)) {
				out = append(out, ue)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Name < out[j].Name
	})
	return out
}
