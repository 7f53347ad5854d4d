package graph

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sweepy-go/internal/module"
)

func named(name string) module.ExportItem { return module.NamedExport{Name: name} }

func reexport(name, source string) module.ExportItem {
	return module.NamedExport{Name: name, Source: source}
}

func all(source string) module.ExportItem { return module.AllExport{Source: source} }

func imp(source string, names ...string) module.ImportRecord {
	return module.ImportRecord{Source: source, Specifiers: names}
}

func barrelTable() *module.Table {
	return module.NewTable(map[string]module.ParsedFile{
		"index.ts": {Imports: []module.ImportRecord{
			imp("./barrel", "foo"),
			imp("react", "useState"),
			imp("./missing", "x"),
		}},
		"barrel.ts": {Exports: []module.ExportItem{
			reexport("foo", "./utils"),
			all("./helpers"),
		}},
		"utils.ts":   {Exports: []module.ExportItem{named("foo"), named("bar")}},
		"helpers.ts": {Exports: []module.ExportItem{named("help")}},
		"orphan.ts":  {Imports: []module.ImportRecord{imp("./utils", "bar")}},
	})
}

func TestBuild_Adjacency(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	assert.Equal(t, []module.ModulePath{"barrel.ts"}, g.Dependencies("index.ts"))
	assert.Equal(t, []module.ModulePath{"helpers.ts", "utils.ts"}, g.Dependencies("barrel.ts"))
	assert.Empty(t, g.Dependencies("utils.ts"))
	assert.Empty(t, g.Dependencies("not-a-module.ts"))
	assert.Equal(t, 4, g.EdgeCount())
}

func TestBuild_DropsExternalAndUnresolved(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	for _, e := range g.Edges() {
		assert.True(t, g.Table().Has(e.To), "edge to %s must target a table module", e.To)
	}
}

func TestBuild_UsageIndex(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	usages := g.Importers("utils.ts")
	require.Len(t, usages, 1)
	assert.Equal(t, module.ModulePath("orphan.ts"), usages[0].Importer)
	assert.Equal(t, []string{"bar"}, usages[0].Record.Specifiers)

	usages = g.Importers("barrel.ts")
	require.Len(t, usages, 1)
	assert.Equal(t, module.ModulePath("index.ts"), usages[0].Importer)

	// Re-export edges do not populate the usage index.
	assert.Empty(t, g.Importers("helpers.ts"))
}

func TestBuild_ReExportIndex(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	rs := g.ReExporters("utils.ts")
	require.Len(t, rs, 1)
	assert.Equal(t, module.ModulePath("barrel.ts"), rs[0].Module)
	assert.True(t, rs[0].Forwards("foo"))
	assert.False(t, rs[0].Forwards("bar"))

	rs = g.ReExporters("helpers.ts")
	require.Len(t, rs, 1)
	assert.True(t, rs[0].Forwards("help"))
	assert.True(t, rs[0].Forwards(module.DefaultExport))
}

func TestBuild_Edges(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	assert.Equal(t, []Edge{
		{From: "barrel.ts", To: "helpers.ts", Kind: EdgeReExportAll},
		{From: "barrel.ts", To: "utils.ts", Kind: EdgeReExport},
		{From: "index.ts", To: "barrel.ts", Kind: EdgeImport},
		{From: "orphan.ts", To: "utils.ts", Kind: EdgeImport},
	}, g.Edges())
}

func TestBuild_ImportAndReExportOfSameTarget(t *testing.T) {
	t.Parallel()

	g := Build(module.NewTable(map[string]module.ParsedFile{
		"a.ts": {
			Imports: []module.ImportRecord{imp("./b", "x")},
			Exports: []module.ExportItem{reexport("x", "./b")},
		},
		"b.ts": {Exports: []module.ExportItem{named("x")}},
	}))

	assert.Equal(t, []module.ModulePath{"b.ts"}, g.Dependencies("a.ts"))
	assert.Equal(t, 1, g.EdgeCount())
	assert.Len(t, g.Edges(), 2)
}

func TestReachable(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	t.Run("FollowsImportsAndReExports", func(t *testing.T) {
		got := g.Reachable([]string{"index.ts"})
		assert.Equal(t, []module.ModulePath{"barrel.ts", "helpers.ts", "index.ts", "utils.ts"}, got.Sorted())
	})

	t.Run("CanonicalizesEntrypoints", func(t *testing.T) {
		got := g.Reachable([]string{"./index.ts"})
		assert.True(t, got.Contains("index.ts"))
		assert.Len(t, got, 4)
	})

	t.Run("MissingEntrypointsIgnored", func(t *testing.T) {
		got := g.Reachable([]string{"nope.ts", "orphan.ts"})
		assert.Equal(t, []module.ModulePath{"orphan.ts", "utils.ts"}, got.Sorted())
	})

	t.Run("NoEntrypoints", func(t *testing.T) {
		assert.Empty(t, g.Reachable(nil))
		assert.Empty(t, g.Reachable([]string{"missing.ts"}))
	})
}

func TestReachable_CyclesTerminate(t *testing.T) {
	t.Parallel()

	g := Build(module.NewTable(map[string]module.ParsedFile{
		"a.ts": {Imports: []module.ImportRecord{imp("./b")}},
		"b.ts": {Imports: []module.ImportRecord{imp("./a")}},
		"c.ts": {Imports: []module.ImportRecord{imp("./c")}},
	}))

	assert.Equal(t, []module.ModulePath{"a.ts", "b.ts"}, g.Reachable([]string{"a.ts"}).Sorted())
	assert.Equal(t, []module.ModulePath{"c.ts"}, g.Reachable([]string{"c.ts"}).Sorted())
}

func TestReachable_Idempotent(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())
	first := g.Reachable([]string{"index.ts"}).Sorted()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, g.Reachable([]string{"index.ts"}).Sorted())
	}
}

func TestWriteDOT(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())
	reachable := g.Reachable([]string{"index.ts"})

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, g, reachable))

	out := buf.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, `"index.ts"`)
	assert.Contains(t, out, `"orphan.ts"`)
	assert.Contains(t, out, "dashed")
	assert.Contains(t, out, "reexport-all")
}

func TestWriteDOT_NoReachability(t *testing.T) {
	t.Parallel()

	g := Build(barrelTable())

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, g, nil))
	assert.NotContains(t, buf.String(), "dashed")
}
