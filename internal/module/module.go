// Package module defines the per-file record model that the analysis core
// consumes: canonical module paths, import records, export items, and the
// immutable Module Table built from them.
//
// Nothing in this package touches the filesystem. Paths are plain
// slash-separated strings and every operation is pure string/path algebra.
package module

import (
	"path"
	"sort"
	"strings"
)

// ModulePath is a canonicalized, slash-normalized, root-relative file path.
// Two paths are equal iff their canonical forms are byte-equal.
type ModulePath string

// String implements fmt.Stringer.
func (p ModulePath) String() string {
	return string(p)
}

// Dir returns the parent directory of the path ("." for top-level files).
func (p ModulePath) Dir() ModulePath {
	return ModulePath(path.Dir(string(p)))
}

// Canonicalize converts a path as written into its canonical ModulePath.
//
// Backslashes become forward slashes, "." and ".." segments are resolved
// lexically, and a leading "./" is dropped. Leading ".." segments that cannot
// be cancelled are kept.
func Canonicalize(p string) ModulePath {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" {
		return "."
	}
	return ModulePath(path.Clean(p))
}

// ImportRecord is one import statement of a module.
type ImportRecord struct {
	// Source is the module specifier exactly as written ("./utils").
	Source string `json:"source"`

	// Specifiers are the imported names (the name exported by the target,
	// not the local alias). Empty for side-effect and namespace imports.
	Specifiers []string `json:"specifiers,omitempty"`

	// HasNamespace is set for `import * as ns from ...`.
	HasNamespace bool `json:"has_namespace,omitempty"`

	// HasDefault is set for `import def from ...`.
	HasDefault bool `json:"has_default,omitempty"`
}

// Requests reports whether the record consumes the export called name.
// A namespace import consumes every export of its target.
func (r ImportRecord) Requests(name string) bool {
	if r.HasNamespace {
		return true
	}
	if name == DefaultExport && r.HasDefault {
		return true
	}
	for _, s := range r.Specifiers {
		if s == name {
			return true
		}
	}
	return false
}

// DefaultExport is the export name a default export is recorded under.
const DefaultExport = "default"

// ExportItem is one export of a module. It is a closed variant: the only
// implementations are NamedExport and AllExport.
type ExportItem interface {
	// ReExportSource returns the specifier the item re-exports from, if any.
	ReExportSource() (string, bool)

	isExportItem()
}

// NamedExport is a locally declared export (Source empty) or a re-export of
// Name from another module (Source set). Name is the name the module exposes,
// so `export { foo as bar } from './x'` is recorded with Name "bar".
type NamedExport struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// ReExportSource implements ExportItem.
func (e NamedExport) ReExportSource() (string, bool) {
	return e.Source, e.Source != ""
}

func (NamedExport) isExportItem() {}

// AllExport is a wildcard re-export: `export * from '<Source>'`.
type AllExport struct {
	Source string `json:"source"`
}

// ReExportSource implements ExportItem.
func (e AllExport) ReExportSource() (string, bool) {
	return e.Source, true
}

func (AllExport) isExportItem() {}

// ParsedFile is the extracted import/export records of a single file.
type ParsedFile struct {
	Imports []ImportRecord
	Exports []ExportItem
}

// FileSet is the set of module paths known to the analysis.
type FileSet map[ModulePath]struct{}

// Contains reports whether p is in the set.
func (s FileSet) Contains(p ModulePath) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in byte order.
func (s FileSet) Sorted() []ModulePath {
	out := make([]ModulePath, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sortPaths(out)
	return out
}

func sortPaths(paths []ModulePath) {
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
}
