package graph

import (
	"errors"
	"fmt"
	"io"

	graphlib "github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/Benny93/sweepy-go/internal/module"
)

// WriteDOT renders the graph in Graphviz DOT format. When reachable is not
// nil, modules outside it are drawn dashed and grey.
func WriteDOT(w io.Writer, g *DependencyGraph, reachable module.FileSet) error {
	dg := graphlib.New(graphlib.StringHash, graphlib.Directed())

	for _, p := range g.table.Paths() {
		attrs := []func(*graphlib.VertexProperties){
			graphlib.VertexAttribute("shape", "box"),
		}
		if reachable != nil && !reachable.Contains(p) {
			attrs = append(attrs,
				graphlib.VertexAttribute("style", "dashed"),
				graphlib.VertexAttribute("color", "gray"),
			)
		}
		if err := dg.AddVertex(string(p), attrs...); err != nil {
			return fmt.Errorf("adding vertex %s: %w", p, err)
		}
	}

	// An import and a re-export of the same module collapse into one drawn edge.
	for _, e := range g.Edges() {
		err := dg.AddEdge(string(e.From), string(e.To), graphlib.EdgeAttribute("label", string(e.Kind)))
		if err != nil && !errors.Is(err, graphlib.ErrEdgeAlreadyExists) {
			return fmt.Errorf("adding edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	return draw.DOT(dg, w)
}
