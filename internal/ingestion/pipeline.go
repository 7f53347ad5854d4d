package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/sweepy-go/internal/analysis"
	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/module"
	"github.com/Benny93/sweepy-go/internal/parsers"
)

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Options configures a pipeline run.
type Options struct {
	// Entrypoints are absolute, root-prefixed or root-relative paths. When
	// empty, analysis.DefaultEntrypoints are probed.
	Entrypoints []string

	// Ignore holds glob patterns excluded from the walk.
	Ignore []string

	// Workers bounds parallel extraction; zero means GOMAXPROCS.
	Workers int

	// Progress receives phase updates; may be nil.
	Progress ProgressCallback
}

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	Files        int
	ParseErrors  int
	Edges        int
	DurationSecs float64

	// Entrypoints are the root-relative entrypoints the analysis used.
	Entrypoints []string

	// DefaultEntrypoints is set when Entrypoints were probed rather than given.
	DefaultEntrypoints bool

	Table     *module.Table
	Graph     *graph.DependencyGraph
	Reachable module.FileSet
	Result    *analysis.Result
}

// RunPipeline walks root, extracts every file, and analyzes the resulting
// module table.
func RunPipeline(ctx context.Context, root string, opts Options) (*PipelineResult, error) {
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	progress("Walking files", 0.0)
	walker, err := NewWalker(root, opts.Ignore)
	if err != nil {
		return nil, err
	}
	entries, err := walker.Walk()
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	progress("Walking files", 1.0)
	slog.Debug("walked source tree", "root", root, "files", len(entries))

	sources, parseErrors, err := ProcessParsing(ctx, entries, parsers.NewRegistry(), opts.Workers, progress)
	if err != nil {
		return nil, err
	}

	progress("Analyzing", 0.0)
	result := analyzeTable(module.NewTable(sources), RelativeEntrypoints(root, opts.Entrypoints))
	result.ParseErrors = parseErrors
	result.DurationSecs = time.Since(start).Seconds()
	progress("Analyzing", 1.0)

	return result, nil
}

func analyzeTable(table *module.Table, entrypoints []string) *PipelineResult {
	result := &PipelineResult{
		Files:       table.Len(),
		Entrypoints: entrypoints,
		Table:       table,
	}
	if len(entrypoints) == 0 {
		result.Entrypoints = analysis.ProbeEntrypoints(table.Files())
		result.DefaultEntrypoints = true
	}

	result.Graph = graph.Build(table)
	result.Edges = result.Graph.EdgeCount()
	result.Result, result.Reachable = analysis.AnalyzeGraph(result.Graph, result.Entrypoints)
	return result
}

// ProcessParsing extracts the records of every entry in parallel. A file that
// fails to parse is logged and contributes whatever records were recovered;
// only context cancellation aborts the phase.
func ProcessParsing(
	ctx context.Context,
	entries []FileEntry,
	registry *parsers.Registry,
	workers int,
	progress ProgressCallback,
) (map[string]module.ParsedFile, int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if progress == nil {
		progress = func(string, float64) {}
	}

	results := make([]module.ParsedFile, len(entries))
	failed := make([]bool, len(entries))

	var (
		mu   sync.Mutex
		done int
	)

	progress("Parsing code", 0.0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			pf, err := registry.Parse(entries[i].RelPath, entries[i].Content)
			if err != nil {
				failed[i] = true
				slog.Warn("extraction failed", "path", entries[i].RelPath, "error", err)
			}
			if pf != nil {
				results[i] = *pf
			}

			mu.Lock()
			done++
			progress("Parsing code", float64(done)/float64(len(entries)))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("parsing: %w", err)
	}

	sources := make(map[string]module.ParsedFile, len(entries))
	parseErrors := 0
	for i, e := range entries {
		sources[e.RelPath] = results[i]
		if failed[i] {
			parseErrors++
		}
	}

	progress("Parsing code", 1.0)
	return sources, parseErrors, nil
}

// Sweep analyzes the source tree at root from the given entrypoints. It is
// the embeddable entry point: a single synchronous call returning the
// reachable files and unused exports.
func Sweep(ctx context.Context, root string, entries []string) (*analysis.Result, error) {
	result, err := RunPipeline(ctx, root, Options{Entrypoints: entries})
	if err != nil {
		return nil, err
	}
	return result.Result, nil
}

// AnalyzeSources analyzes in-memory sources keyed by path. Files whose
// extension no parser claims are read as TypeScript.
func AnalyzeSources(sources map[string]string, entries []string) *analysis.Result {
	registry := parsers.NewRegistry()
	fallback := parsers.NewTypeScriptParser()

	parsed := make(map[string]module.ParsedFile, len(sources))
	for p, content := range sources {
		pf, err := registry.Parse(p, []byte(content))
		if errors.Is(err, parsers.ErrUnsupported) {
			pf, err = fallback.Parse(p, []byte(content))
		}
		if err != nil {
			slog.Warn("extraction failed", "path", p, "error", err)
		}
		if pf != nil {
			parsed[p] = *pf
		}
	}

	return analysis.Analyze(module.NewTable(parsed), entries)
}

// RelativeEntrypoints makes entrypoints relative to root. Absolute paths and
// paths prefixed with root are rewritten; anything else is taken as already
// root-relative.
func RelativeEntrypoints(root string, entries []string) []string {
	if len(entries) == 0 {
		return nil
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	cleanRoot := filepath.Clean(root)

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, filepath.ToSlash(relativeTo(e, absRoot, cleanRoot)))
	}
	return out
}

func relativeTo(entry, absRoot, cleanRoot string) string {
	clean := filepath.Clean(entry)
	if filepath.IsAbs(clean) {
		if rel, err := filepath.Rel(absRoot, clean); err == nil {
			return rel
		}
		return clean
	}
	if cleanRoot != "." && strings.HasPrefix(clean, cleanRoot+string(filepath.Separator)) {
		return strings.TrimPrefix(clean, cleanRoot+string(filepath.Separator))
	}
	return entry
}
