package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/module"
)

// WriteText renders a result in the plain two-block text format:
//
//	Reachable files:
//	  - index.ts
//
//	Unused exports:
//	  - utils.ts -> bar
func WriteText(w io.Writer, r *Result) error {
	if _, err := fmt.Fprintln(w, "Reachable files:"); err != nil {
		return err
	}
	for _, f := range r.ReachableFiles {
		if _, err := fmt.Fprintf(w, "  - %s\n", f); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "\nUnused exports:"); err != nil {
		return err
	}
	for _, ue := range r.UnusedExports {
		if _, err := fmt.Fprintf(w, "  - %s -> %s\n", ue.File, ue.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteImporters lists the modules that import or re-export target and the
// names each of them takes from it.
func WriteImporters(w io.Writer, g *graph.DependencyGraph, target module.ModulePath) error {
	usages := g.Importers(target)
	reexports := g.ReExporters(target)
	if len(usages) == 0 && len(reexports) == 0 {
		_, err := fmt.Fprintln(w, "No module imports this file.")
		return err
	}

	for _, u := range usages {
		if _, err := fmt.Fprintf(w, "  - %s imports %s\n", u.Importer, describeImport(u.Record)); err != nil {
			return err
		}
	}
	for _, r := range reexports {
		var err error
		switch item := r.Item.(type) {
		case module.AllExport:
			_, err = fmt.Fprintf(w, "  - %s re-exports *\n", r.Module)
		case module.NamedExport:
			_, err = fmt.Fprintf(w, "  - %s re-exports %s\n", r.Module, item.Name)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func describeImport(rec module.ImportRecord) string {
	var parts []string
	if rec.HasNamespace {
		parts = append(parts, "* (namespace)")
	}
	if rec.HasDefault {
		parts = append(parts, module.DefaultExport)
	}
	parts = append(parts, rec.Specifiers...)
	if len(parts) == 0 {
		return "(side effect)"
	}
	return strings.Join(parts, ", ")
}
