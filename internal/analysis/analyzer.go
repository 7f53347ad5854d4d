// Package analysis answers the two questions sweepy exists for: which files
// are reachable from the entrypoints, and which named exports nobody
// consumes.
package analysis

import (
	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/module"
)

// DefaultEntrypoints are probed, in order, when no entrypoint is given.
var DefaultEntrypoints = []string{
	"src/index.ts",
	"src/index.tsx",
	"index.ts",
	"index.tsx",
	"src/main.ts",
	"src/main.tsx",
}

// Result is the outcome of one analysis run.
type Result struct {
	// ReachableFiles is sorted and free of duplicates.
	ReachableFiles []module.ModulePath `json:"reachable_files"`

	// UnusedExports is sorted by file, then name.
	UnusedExports []UnusedExport `json:"unused_exports"`
}

// Analyze builds the dependency graph of table and runs both analyses.
func Analyze(table *module.Table, entrypoints []string) *Result {
	result, _ := AnalyzeGraph(graph.Build(table), entrypoints)
	return result
}

// AnalyzeGraph runs both analyses over an already built graph and also
// returns the reachable set, for callers that render the graph afterwards.
func AnalyzeGraph(g *graph.DependencyGraph, entrypoints []string) (*Result, module.FileSet) {
	reachable := g.Reachable(entrypoints)
	return &Result{
		ReachableFiles: reachable.Sorted(),
		UnusedExports:  FindUnusedExports(g),
	}, reachable
}

// ProbeEntrypoints returns the DefaultEntrypoints that exist in files.
func ProbeEntrypoints(files module.FileSet) []string {
	var out []string
	for _, candidate := range DefaultEntrypoints {
		if files.Contains(module.Canonicalize(candidate)) {
			out = append(out, candidate)
		}
	}
	return out
}

// UnreachableFiles returns the modules of table outside the reachable set.
func UnreachableFiles(table *module.Table, r *Result) []module.ModulePath {
	reachable := make(module.FileSet, len(r.ReachableFiles))
	for _, p := range r.ReachableFiles {
		reachable[p] = struct{}{}
	}

	var out []module.ModulePath
	for _, p := range table.Paths() {
		if !reachable.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}
