// Package graph builds the module dependency graph of an analyzed source
// tree.
//
// It derives three structures from a module.Table: an adjacency set from each
// module to the modules it statically depends on, a usage index from each
// module to the import records that reference it, and a re-export index from
// each module to the export items that forward its names. All three are
// built once and are read-only afterwards.
package graph

import "github.com/Benny93/sweepy-go/internal/module"

// EdgeKind represents the kind of statement that produced an edge.
type EdgeKind string

const (
	EdgeImport      EdgeKind = "import"
	EdgeReExport    EdgeKind = "reexport"
	EdgeReExportAll EdgeKind = "reexport-all"
)

// Edge is a resolved static dependency between two modules.
type Edge struct {
	// From is the depending module.
	From module.ModulePath

	// To is the module depended upon.
	To module.ModulePath

	// Kind is the statement kind that produced the edge.
	Kind EdgeKind
}

// Usage is one usage index entry: an import record of Importer that resolved
// to the indexed module.
type Usage struct {
	// Importer is the module containing the import statement.
	Importer module.ModulePath

	// Record is the import record as extracted.
	Record module.ImportRecord
}

// ReExport is one re-export index entry: an export item of Module whose
// source resolved to the indexed module.
type ReExport struct {
	// Module is the re-exporting (barrel) module.
	Module module.ModulePath

	// Item is either a module.NamedExport with a source or a module.AllExport.
	Item module.ExportItem
}

// Forwards reports whether the re-export exposes the target's export called
// name under that same name. Wildcards forward every name; named re-exports
// only forward their own exported name, so aliases are not followed.
func (r ReExport) Forwards(name string) bool {
	switch item := r.Item.(type) {
	case module.AllExport:
		return true
	case module.NamedExport:
		return item.Name == name
	default:
		return false
	}
}

func edgeKindOf(item module.ExportItem) EdgeKind {
	if _, ok := item.(module.AllExport); ok {
		return EdgeReExportAll
	}
	return EdgeReExport
}
