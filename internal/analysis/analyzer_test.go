package analysis

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/module"
)

// project is a fluent builder for in-memory module tables.
type project struct {
	files   map[string]module.ParsedFile
	entries []string
}

func newProject() *project {
	return &project{files: make(map[string]module.ParsedFile)}
}

func (p *project) file(path string, imports []module.ImportRecord, exports ...module.ExportItem) *project {
	p.files[path] = module.ParsedFile{Imports: imports, Exports: exports}
	return p
}

func (p *project) entry(path string) *project {
	p.entries = append(p.entries, path)
	return p
}

func (p *project) analyze() *Result {
	return Analyze(module.NewTable(p.files), p.entries)
}

func imports(records ...module.ImportRecord) []module.ImportRecord { return records }

func named(source string, names ...string) module.ImportRecord {
	return module.ImportRecord{Source: source, Specifiers: names}
}

func defaultImport(source string, names ...string) module.ImportRecord {
	return module.ImportRecord{Source: source, Specifiers: names, HasDefault: true}
}

func namespace(source string) module.ImportRecord {
	return module.ImportRecord{Source: source, HasNamespace: true}
}

func sideEffect(source string) module.ImportRecord {
	return module.ImportRecord{Source: source}
}

func export(name string) module.ExportItem { return module.NamedExport{Name: name} }

func reexport(name, source string) module.ExportItem {
	return module.NamedExport{Name: name, Source: source}
}

func exportAll(source string) module.ExportItem { return module.AllExport{Source: source} }

func paths(ps ...string) []module.ModulePath {
	out := make([]module.ModulePath, len(ps))
	for i, p := range ps {
		out[i] = module.ModulePath(p)
	}
	return out
}

func unused(pairs ...string) []UnusedExport {
	out := []UnusedExport{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, UnusedExport{File: module.ModulePath(pairs[i]), Name: pairs[i+1]})
	}
	return out
}

func TestAnalyze_NamedExports(t *testing.T) {
	t.Parallel()

	t.Run("AllUnused", func(t *testing.T) {
		r := newProject().
			file("index.ts", nil).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "bar", "utils.ts", "foo"), r.UnusedExports)
	})

	t.Run("SomeUsed", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utils", "foo"))).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts", "utils.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "bar"), r.UnusedExports)
	})

	t.Run("AllUsed", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utils", "foo", "bar"))).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Empty(t, r.UnusedExports)
	})

	t.Run("SplitAcrossStatements", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./types", "MyType"), named("./types", "foo"))).
			file("types.ts", nil, export("MyType"), export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused("types.ts", "bar"), r.UnusedExports)
	})
}

func TestAnalyze_DefaultExports(t *testing.T) {
	t.Parallel()

	t.Run("Unused", func(t *testing.T) {
		r := newProject().
			file("index.ts", nil).
			file("utils.ts", nil, export(module.DefaultExport)).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused("utils.ts", "default"), r.UnusedExports)
	})

	t.Run("Used", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(defaultImport("./utils"))).
			file("utils.ts", nil, export(module.DefaultExport)).
			entry("index.ts").
			analyze()

		assert.Empty(t, r.UnusedExports)
	})

	t.Run("MixedWithNamed", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(defaultImport("./utils", "bar"))).
			file("utils.ts", nil, export(module.DefaultExport), export("bar"), export("baz")).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused("utils.ts", "baz"), r.UnusedExports)
	})

	t.Run("DefaultImportDoesNotUseNamed", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(defaultImport("./utils"))).
			file("utils.ts", nil, export(module.DefaultExport), export("foo")).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused("utils.ts", "foo"), r.UnusedExports)
	})

	t.Run("NamedImportDoesNotUseDefault", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utils", "foo"))).
			file("utils.ts", nil, export(module.DefaultExport), export("foo")).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused("utils.ts", "default"), r.UnusedExports)
	})
}

func TestAnalyze_NamespaceImport(t *testing.T) {
	t.Parallel()

	r := newProject().
		file("index.ts", imports(namespace("./utils"))).
		file("utils.ts", nil, export("foo"), export("bar"), export(module.DefaultExport)).
		entry("index.ts").
		analyze()

	assert.Equal(t, paths("index.ts", "utils.ts"), r.ReachableFiles)
	assert.Empty(t, r.UnusedExports)
}

func TestAnalyze_ReExports(t *testing.T) {
	t.Parallel()

	t.Run("WildcardUnused", func(t *testing.T) {
		r := newProject().
			file("index.ts", nil).
			file("barrel.ts", nil, exportAll("./utils")).
			file("utils.ts", nil, export("foo")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "foo"), r.UnusedExports)
	})

	t.Run("WildcardForwardsOnlyRequestedNames", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./barrel", "foo"))).
			file("barrel.ts", nil, exportAll("./utils")).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("barrel.ts", "index.ts", "utils.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "bar"), r.UnusedExports)
	})

	t.Run("NamedReExports", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./barrel", "foo"))).
			file("barrel.ts", nil, reexport("foo", "./utils"), reexport("bar", "./utils")).
			file("utils.ts", nil, export("foo"), export("bar"), export("baz")).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused(
			"barrel.ts", "bar",
			"utils.ts", "bar",
			"utils.ts", "baz",
		), r.UnusedExports)
	})

	t.Run("AliasNotFollowed", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./barrel", "myFoo"))).
			file("barrel.ts", nil, reexport("myFoo", "./utils")).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("barrel.ts", "index.ts", "utils.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "bar", "utils.ts", "foo"), r.UnusedExports)
	})

	t.Run("NamespaceThroughWildcard", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(namespace("./barrel"))).
			file("barrel.ts", nil, exportAll("./utils")).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Empty(t, r.UnusedExports)
	})

	t.Run("WildcardForwardsDefault", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(defaultImport("./barrel"))).
			file("barrel.ts", nil, exportAll("./utils")).
			file("utils.ts", nil, export(module.DefaultExport)).
			entry("index.ts").
			analyze()

		assert.Empty(t, r.UnusedExports)
	})

	t.Run("MultiHop", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./outer", "foo"))).
			file("outer.ts", nil, exportAll("./inner")).
			file("inner.ts", nil, reexport("foo", "./utils"), reexport("bar", "./utils")).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, unused("inner.ts", "bar", "utils.ts", "bar"), r.UnusedExports)
	})

	t.Run("ReExportCycleTerminates", func(t *testing.T) {
		r := newProject().
			file("a.ts", nil, exportAll("./b"), export("x")).
			file("b.ts", nil, exportAll("./a"), export("y")).
			file("index.ts", imports(named("./a", "y"))).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("a.ts", "b.ts", "index.ts"), r.ReachableFiles)
		assert.Equal(t, unused("a.ts", "x"), r.UnusedExports)
	})
}

func TestAnalyze_PathResolution(t *testing.T) {
	t.Parallel()

	t.Run("DeepRelativePath", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(sideEffect("./deep/folder/module"))).
			file("deep/folder/module.ts", imports(named("../../utils", "foo"))).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("deep/folder/module.ts", "index.ts", "utils.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "bar"), r.UnusedExports)
	})

	t.Run("JSExtensionSubstituted", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utils.js", "foo"))).
			file("utils.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts", "utils.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "bar"), r.UnusedExports)
	})

	t.Run("ExplicitIndex", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utils/index", "foo"))).
			file("utils/index.ts", nil, export("foo"), export("bar")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts", "utils/index.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils/index.ts", "bar"), r.UnusedExports)
	})

	t.Run("DirectoryIndex", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utils", "foo"))).
			file("utils/index.ts", nil, export("foo")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts", "utils/index.ts"), r.ReachableFiles)
		assert.Empty(t, r.UnusedExports)
	})

	t.Run("UnresolvableImportDoesNotUse", func(t *testing.T) {
		r := newProject().
			file("index.ts", imports(named("./utlis", "foo"), named("lodash", "foo"))).
			file("utils.ts", nil, export("foo")).
			entry("index.ts").
			analyze()

		assert.Equal(t, paths("index.ts"), r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "foo"), r.UnusedExports)
	})
}

func TestAnalyze_SideEffectImport(t *testing.T) {
	t.Parallel()

	r := newProject().
		file("index.ts", imports(sideEffect("./setup"))).
		file("setup.ts", nil, export("config")).
		entry("index.ts").
		analyze()

	assert.Equal(t, paths("index.ts", "setup.ts"), r.ReachableFiles)
	assert.Equal(t, unused("setup.ts", "config"), r.UnusedExports)
}

func TestAnalyze_MultipleEntrypoints(t *testing.T) {
	t.Parallel()

	r := newProject().
		file("entry1.ts", imports(named("./utils", "foo"))).
		file("entry2.ts", imports(named("./utils", "bar"))).
		file("utils.ts", nil, export("foo"), export("bar"), export("baz")).
		entry("entry1.ts").
		entry("entry2.ts").
		analyze()

	assert.Equal(t, paths("entry1.ts", "entry2.ts", "utils.ts"), r.ReachableFiles)
	assert.Equal(t, unused("utils.ts", "baz"), r.UnusedExports)
}

func TestAnalyze_ImportAlias(t *testing.T) {
	t.Parallel()

	// Specifiers carry the imported name, not the local alias.
	r := newProject().
		file("index.ts", imports(named("./utils", "foo"))).
		file("utils.ts", nil, export("foo"), export("bar")).
		entry("index.ts").
		analyze()

	assert.Equal(t, unused("utils.ts", "bar"), r.UnusedExports)
}

func TestAnalyze_UnreachableImporterStillUses(t *testing.T) {
	t.Parallel()

	r := newProject().
		file("index.ts", nil).
		file("dead.ts", imports(named("./utils", "foo"))).
		file("utils.ts", nil, export("foo")).
		entry("index.ts").
		analyze()

	assert.Equal(t, paths("index.ts"), r.ReachableFiles)
	assert.Empty(t, r.UnusedExports)
}

func TestAnalyze_Cycles(t *testing.T) {
	t.Parallel()

	r := newProject().
		file("a.ts", imports(named("./b", "b")), export("a")).
		file("b.ts", imports(named("./a", "a")), export("b")).
		entry("a.ts").
		analyze()

	assert.Equal(t, paths("a.ts", "b.ts"), r.ReachableFiles)
	assert.Empty(t, r.UnusedExports)
}

func TestAnalyze_DegenerateInputs(t *testing.T) {
	t.Parallel()

	t.Run("EmptyTable", func(t *testing.T) {
		r := Analyze(module.NewTable(nil), []string{"index.ts"})
		assert.Empty(t, r.ReachableFiles)
		assert.Empty(t, r.UnusedExports)
	})

	t.Run("AllEntrypointsMissing", func(t *testing.T) {
		r := newProject().
			file("utils.ts", nil, export("foo")).
			entry("index.ts").
			analyze()

		assert.Empty(t, r.ReachableFiles)
		assert.Equal(t, unused("utils.ts", "foo"), r.UnusedExports)
	})

	t.Run("DuplicateExportReportedOnce", func(t *testing.T) {
		r := newProject().
			file("utils.ts", nil, export("foo"), export("foo")).
			analyze()

		assert.Equal(t, unused("utils.ts", "foo"), r.UnusedExports)
	})

	t.Run("WildcardNeverReported", func(t *testing.T) {
		r := newProject().
			file("barrel.ts", nil, exportAll("./utils")).
			file("utils.ts", nil).
			analyze()

		assert.Empty(t, r.UnusedExports)
	})
}

// barrelDiamonds stacks layers of two wildcard barrels, each re-exporting
// both barrels of the layer below, over a single u.ts exporting x.
func barrelDiamonds(layers int) *project {
	p := newProject().file("u.ts", nil, export("x"))
	below := []string{"./u"}
	for i := 0; i < layers; i++ {
		var current []string
		for _, side := range []string{"a", "b"} {
			name := fmt.Sprintf("l%d%s", i, side)
			var items []module.ExportItem
			for _, src := range below {
				items = append(items, exportAll(src))
			}
			p.file(name+".ts", nil, items...)
			current = append(current, "./"+name)
		}
		below = current
	}
	return p
}

func TestFindUnusedExports_BarrelDiamonds(t *testing.T) {
	t.Parallel()

	const layers = 30

	t.Run("Unused", func(t *testing.T) {
		p := barrelDiamonds(layers)
		assert.Equal(t, unused("u.ts", "x"), analyzeWithin(t, p, 10*time.Second).UnusedExports)
	})

	t.Run("UsedAtTheTop", func(t *testing.T) {
		top := fmt.Sprintf("./l%da", layers-1)
		p := barrelDiamonds(layers).file("index.ts", imports(named(top, "x"))).entry("index.ts")
		assert.Empty(t, analyzeWithin(t, p, 10*time.Second).UnusedExports)
	})
}

func analyzeWithin(t *testing.T, p *project, limit time.Duration) *Result {
	t.Helper()
	done := make(chan *Result, 1)
	go func() { done <- p.analyze() }()
	select {
	case r := <-done:
		return r
	case <-time.After(limit):
		t.Fatalf("analysis did not finish within %s", limit)
		return nil
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	t.Parallel()

	p := newProject().
		file("index.ts", imports(named("./barrel", "foo"))).
		file("barrel.ts", nil, exportAll("./utils"), reexport("x", "./other")).
		file("utils.ts", nil, export("foo"), export("bar")).
		file("other.ts", nil, export("x"), export("y")).
		entry("index.ts")

	first := p.analyze()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, p.analyze())
	}
}

func TestFindUnusedExports_NamespaceMonotonicity(t *testing.T) {
	t.Parallel()

	table := module.NewTable(map[string]module.ParsedFile{
		"a.ts": {Imports: []module.ImportRecord{namespace("./m"), named("./m", "one")}},
		"m.ts": {Exports: []module.ExportItem{export("one"), export("two"), export(module.DefaultExport)}},
	})

	got := FindUnusedExports(graph.Build(table))
	for _, ue := range got {
		assert.NotEqual(t, module.ModulePath("m.ts"), ue.File)
	}
}

func TestProbeEntrypoints(t *testing.T) {
	t.Parallel()

	files := module.FileSet{"index.tsx": {}, "src/main.ts": {}, "src/index.ts": {}, "lib.ts": {}}
	assert.Equal(t, []string{"src/index.ts", "index.tsx", "src/main.ts"}, ProbeEntrypoints(files))
	assert.Empty(t, ProbeEntrypoints(module.FileSet{}))
}

func TestUnreachableFiles(t *testing.T) {
	t.Parallel()

	table := module.NewTable(map[string]module.ParsedFile{
		"index.ts": {Imports: []module.ImportRecord{sideEffect("./a")}},
		"a.ts":     {},
		"b.ts":     {},
	})
	r := Analyze(table, []string{"index.ts"})

	require.Equal(t, paths("a.ts", "index.ts"), r.ReachableFiles)
	assert.Equal(t, paths("b.ts"), UnreachableFiles(table, r))
}

func TestWriteText(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	err := WriteText(&sb, &Result{
		ReachableFiles: paths("index.ts", "utils.ts"),
		UnusedExports:  unused("utils.ts", "bar"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Reachable files:\n  - index.ts\n  - utils.ts\n\nUnused exports:\n  - utils.ts -> bar\n", sb.String())

	sb.Reset()
	require.NoError(t, WriteText(&sb, &Result{}))
	assert.Equal(t, "Reachable files:\n\nUnused exports:\n", sb.String())
}

func TestWriteImporters(t *testing.T) {
	t.Parallel()

	p := newProject().
		file("index.ts", imports(defaultImport("./utils", "foo"), sideEffect("./utils"))).
		file("lib.ts", imports(namespace("./utils")), exportAll("./utils"), reexport("bar", "./utils")).
		file("utils.ts", nil, export("foo"), export("bar"))
	g := graph.Build(module.NewTable(p.files))

	var sb strings.Builder
	require.NoError(t, WriteImporters(&sb, g, "utils.ts"))
	assert.Equal(t,
		"  - index.ts imports default, foo\n"+
			"  - index.ts imports (side effect)\n"+
			"  - lib.ts imports * (namespace)\n"+
			"  - lib.ts re-exports *\n"+
			"  - lib.ts re-exports bar\n",
		sb.String())

	sb.Reset()
	require.NoError(t, WriteImporters(&sb, g, "index.ts"))
	assert.Equal(t, "No module imports this file.\n", sb.String())
}
