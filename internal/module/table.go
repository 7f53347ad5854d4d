package module

import "sort"

// Table maps canonical module paths to their extracted records.
//
// A Table is built once by NewTable and never mutated afterwards; every
// accessor returns data owned by the table and callers must not modify it.
type Table struct {
	files map[ModulePath]ParsedFile
	set   FileSet
	paths []ModulePath
}

// NewTable builds a table from raw (not necessarily canonical) paths.
//
// When two raw keys canonicalize to the same path, the lexically first raw
// key wins so that construction stays deterministic.
func NewTable(sources map[string]ParsedFile) *Table {
	raw := make([]string, 0, len(sources))
	for k := range sources {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	t := &Table{
		files: make(map[ModulePath]ParsedFile, len(sources)),
		set:   make(FileSet, len(sources)),
	}
	for _, k := range raw {
		p := Canonicalize(k)
		if t.set.Contains(p) {
			continue
		}
		t.files[p] = sources[k]
		t.set[p] = struct{}{}
		t.paths = append(t.paths, p)
	}
	sortPaths(t.paths)

	return t
}

// Len returns the number of modules.
func (t *Table) Len() int {
	return len(t.paths)
}

// Paths returns every module path in byte order.
func (t *Table) Paths() []ModulePath {
	return t.paths
}

// Files returns the set of module paths, for use with Resolve.
func (t *Table) Files() FileSet {
	return t.set
}

// Has reports whether p is a module of the table.
func (t *Table) Has(p ModulePath) bool {
	return t.set.Contains(p)
}

// Get returns the records of p.
func (t *Table) Get(p ModulePath) (ParsedFile, bool) {
	pf, ok := t.files[p]
	return pf, ok
}
