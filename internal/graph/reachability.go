package graph

import "github.com/Benny93/sweepy-go/internal/module"

// Reachable returns every module reachable from the given entrypoints by
// following zero or more edges, entrypoints included.
//
// Entrypoints are canonicalized first; those missing from the table are
// ignored, so an empty or entirely unknown list yields an empty set.
func (g *DependencyGraph) Reachable(entrypoints []string) module.FileSet {
	visited := make(module.FileSet)
	stack := make([]module.ModulePath, 0, len(entrypoints))

	for _, ep := range entrypoints {
		p := module.Canonicalize(ep)
		if !g.table.Has(p) || visited.Contains(p) {
			continue
		}
		visited[p] = struct{}{}
		stack = append(stack, p)
	}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for next := range g.adjacency[node] {
			if visited.Contains(next) {
				continue
			}
			visited[next] = struct{}{}
			stack = append(stack, next)
		}
	}

	return visited
}
