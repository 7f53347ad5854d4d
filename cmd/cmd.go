// Package cmd provides CLI command implementations for sweepy.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/sweepy-go/internal/analysis"
	"github.com/Benny93/sweepy-go/internal/config"
	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/ingestion"
	"github.com/Benny93/sweepy-go/internal/module"
	"github.com/Benny93/sweepy-go/internal/storage"
	"github.com/Benny93/sweepy-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// StateDir is the per-project directory holding the report store.
const StateDir = ".sweepy"

// maxStoredReports bounds the report history kept by analyze and watch.
const maxStoredReports = 50

// Globals are the flags and streams shared by every command.
type Globals struct {
	Verbose bool `short:"v" help:"Enable debug logging"`
	Quiet   bool `short:"q" help:"Suppress non-essential output"`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// ProjectFlags select the project and entrypoints to analyze.
type ProjectFlags struct {
	Root   string   `short:"r" default:"." type:"existingdir" help:"Project root directory"`
	Entry  []string `short:"e" help:"Entrypoint file (repeatable); defaults to sweepy.toml or the conventional entrypoints"`
	Config string   `help:"Path to the configuration file (default: <root>/sweepy.toml)"`
}

// load resolves the root and reads the configuration. Entry flags override
// the configured entrypoints.
func (f *ProjectFlags) load() (string, *config.Config, ingestion.Options, error) {
	root, err := filepath.Abs(f.Root)
	if err != nil {
		return "", nil, ingestion.Options{}, fmt.Errorf("resolving path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", nil, ingestion.Options{}, fmt.Errorf("accessing %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", nil, ingestion.Options{}, fmt.Errorf("%s is not a directory", root)
	}

	var cfg *config.Config
	if f.Config != "" {
		cfg, err = config.Load(f.Config)
	} else {
		cfg, err = config.LoadFromRoot(root)
	}
	if err != nil {
		return "", nil, ingestion.Options{}, fmt.Errorf("loading configuration: %w", err)
	}

	opts := ingestion.Options{
		Entrypoints: cfg.Entry,
		Ignore:      cfg.Ignore,
	}
	if len(f.Entry) > 0 {
		// Entries may be written relative to the working directory with the
		// root as prefix ("web/src/index.ts" for --root web), so they are
		// rewritten against the root as the user typed it.
		opts.Entrypoints = ingestion.RelativeEntrypoints(f.Root, f.Entry)
	}
	return root, cfg, opts, nil
}

// AnalyzeCmd reports reachable files and unused exports.
type AnalyzeCmd struct {
	ProjectFlags

	JSON    bool `help:"Print the result as JSON"`
	NoStore bool `help:"Do not save the report to the project store"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, cfg, opts, err := c.load()
	if err != nil {
		return err
	}

	asJSON := c.JSON || cfg.Output.Format == config.FormatJSON

	var progress *progressReporter
	if !g.Quiet && !asJSON {
		progress = newProgressReporter(g.Stderr)
		opts.Progress = progress.Callback()
	}

	result, err := ingestion.RunPipeline(ctx, root, opts)
	if progress != nil {
		progress.finish()
	}
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	if result.DefaultEntrypoints && !g.Quiet {
		notice := color.New(color.FgYellow)
		if len(result.Entrypoints) == 0 {
			notice.Fprintf(g.Stderr,
				"No entrypoints provided and none of the defaults exist (%s); every file is unreachable\n",
				strings.Join(analysis.DefaultEntrypoints, ", "))
		} else {
			notice.Fprintf(g.Stderr,
				"No entrypoints provided, using defaults: %s\n", strings.Join(result.Entrypoints, ", "))
		}
	}

	if asJSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Result); err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
	} else if err := analysis.WriteText(g.Stdout, result.Result); err != nil {
		return err
	}

	if !c.NoStore && cfg.Store.Enabled {
		if err := saveReport(ctx, root, result); err != nil {
			slog.Warn("report not saved", "root", root, "error", err)
		}
	}

	if !g.Quiet && !asJSON {
		color.New(color.FgGreen).Fprintf(g.Stderr, "\n✓ Analysis complete\n")
		fmt.Fprintf(g.Stderr, "  Files:          %d\n", result.Files)
		fmt.Fprintf(g.Stderr, "  Edges:          %d\n", result.Edges)
		fmt.Fprintf(g.Stderr, "  Parse errors:   %d\n", result.ParseErrors)
		fmt.Fprintf(g.Stderr, "  Duration:       %.2fs\n", result.DurationSecs)
	}

	return nil
}

// GraphCmd prints the dependency graph in DOT format.
type GraphCmd struct {
	ProjectFlags
}

// Run executes the graph command.
func (c *GraphCmd) Run(g *Globals) error {
	root, _, opts, err := c.load()
	if err != nil {
		return err
	}

	result, err := ingestion.RunPipeline(context.Background(), root, opts)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	return graph.WriteDOT(g.Stdout, result.Graph, result.Reachable)
}

// ImportersCmd shows which modules consume a file.
type ImportersCmd struct {
	File string `arg:"" help:"File to inspect (root-relative or absolute)"`

	ProjectFlags
}

// Run executes the importers command.
func (c *ImportersCmd) Run(g *Globals) error {
	root, _, opts, err := c.load()
	if err != nil {
		return err
	}

	result, err := ingestion.RunPipeline(context.Background(), root, opts)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	target := module.Canonicalize(ingestion.RelativeEntrypoints(c.Root, []string{c.File})[0])
	if !result.Table.Has(target) {
		return fmt.Errorf("%s is not a source file under %s", target, root)
	}

	color.New(color.Bold).Fprintf(g.Stdout, "Importers of %s:\n", target)
	return analysis.WriteImporters(g.Stdout, result.Graph, target)
}

// WatchCmd re-runs the analysis whenever sources change.
type WatchCmd struct {
	ProjectFlags

	NoStore bool `help:"Do not save reports to the project store"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	root, cfg, opts, err := c.load()
	if err != nil {
		return err
	}

	var store storage.ReportStore
	if !c.NoStore && cfg.Store.Enabled {
		badgerStore, err := openStore(root, false)
		if err != nil {
			return err
		}
		defer func() { _ = badgerStore.Close() }()
		store = badgerStore
	}

	fmt.Fprintln(g.Stdout, "## Watch Mode")
	fmt.Fprintf(g.Stdout, "Watching %s for changes (Ctrl+C to stop)\n\n", root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-osSignalChannel()
		fmt.Fprintln(g.Stdout, "\nStopping watch mode...")
		cancel()
	}()

	err = ingestion.WatchRepo(ctx, root, opts, cfg.Watch.Debounce, func(result *ingestion.PipelineResult, changed []string, runErr error) {
		stamp := time.Now().Format("15:04:05")
		if runErr != nil {
			color.New(color.FgRed).Fprintf(g.Stdout, "[%s] analysis failed: %v\n", stamp, runErr)
			return
		}
		printRunSummary(g.Stdout, stamp, result, changed)
		if store != nil {
			if err := store.SaveReport(ctx, result.Report(root)); err != nil {
				slog.Warn("report not saved", "root", root, "error", err)
			}
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(g.Stdout, "Watch mode stopped.")
	return nil
}

func printRunSummary(w io.Writer, stamp string, result *ingestion.PipelineResult, changed []string) {
	if len(changed) > 0 {
		fmt.Fprintf(w, "[%s] %d file(s) changed\n", stamp, len(changed))
	}
	unreachable := analysis.UnreachableFiles(result.Table, result.Result)
	fmt.Fprintf(w, "[%s] %d files, %d reachable, %d unreachable, %d unused exports\n",
		stamp, result.Files, len(result.Result.ReachableFiles), len(unreachable), len(result.Result.UnusedExports))
}

// ReportCmd prints a stored report.
type ReportCmd struct {
	Root string `short:"r" default:"." help:"Project root directory"`
	ID   string `help:"Report ID (default: latest)"`
	JSON bool   `help:"Print the report as JSON"`
}

// Run executes the report command.
func (c *ReportCmd) Run(g *Globals) error {
	store, err := openStore(c.Root, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var report *storage.Report
	if c.ID != "" {
		report, err = store.GetReport(ctx, c.ID)
	} else {
		report, err = store.LatestReport(ctx)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no report found. Run 'sweepy analyze' first")
	}
	if err != nil {
		return fmt.Errorf("reading report: %w", err)
	}

	if c.JSON {
		enc := json.NewEncoder(g.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	color.New(color.Bold).Fprintf(g.Stdout, "Report %s\n", report.ID)
	fmt.Fprintf(g.Stdout, "  Created:      %s\n", report.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(g.Stdout, "  Entrypoints:  %s\n", strings.Join(report.Entrypoints, ", "))
	fmt.Fprintf(g.Stdout, "  Files:        %d (%d reachable, %d unreachable)\n",
		report.Stats.Files, report.Stats.Reachable, report.Stats.Unreachable)
	fmt.Fprintf(g.Stdout, "  Unused:       %d\n\n", report.Stats.Unused)
	return analysis.WriteText(g.Stdout, report.Result)
}

// HistoryCmd lists stored reports.
type HistoryCmd struct {
	Root  string `short:"r" default:"." help:"Project root directory"`
	Limit int    `short:"n" default:"10" help:"Maximum reports to list"`
}

// Run executes the history command.
func (c *HistoryCmd) Run(g *Globals) error {
	store, err := openStore(c.Root, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	reports, err := store.ListReports(context.Background(), c.Limit)
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}

	if len(reports) == 0 {
		fmt.Fprintln(g.Stdout, "No reports found")
		return nil
	}

	for _, r := range reports {
		fmt.Fprintf(g.Stdout, "%s  %s  files=%d reachable=%d unused=%d\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Stats.Files, r.Stats.Reachable, r.Stats.Unused)
	}
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct {
	ProjectFlags

	NoStore bool `help:"Keep reports in memory only"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(g *Globals) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, cfg, opts, err := c.load()
	if err != nil {
		return err
	}

	var store storage.ReportStore
	if !c.NoStore && cfg.Store.Enabled {
		badgerStore, err := openStore(root, false)
		if err != nil {
			return err
		}
		defer func() { _ = badgerStore.Close() }()
		store = badgerStore
	}

	server := mcp.NewServer(root, opts, store, Version)

	// stdout carries JSON-RPC only.
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serving MCP: %w", err)
	}
	return nil
}

// CleanCmd deletes the report store of a project.
type CleanCmd struct {
	Root  string `short:"r" default:"." help:"Project root directory"`
	Force bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	stateDir := filepath.Join(root, StateDir)
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		return fmt.Errorf("no reports found at %s. Nothing to clean", root)
	}

	if !c.Force {
		fmt.Fprintf(g.Stdout, "Delete %s? [y/N] ", stateDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(g.Stdout, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("deleting reports: %w", err)
	}

	color.New(color.FgGreen).Fprintf(g.Stdout, "Deleted %s\n", stateDir)
	return nil
}

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

// openStore opens the badger report store of root. A read-only open fails
// when no store exists yet.
func openStore(root string, readOnly bool) (*storage.BadgerBackend, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	dbPath := filepath.Join(absRoot, StateDir, "badger")
	if readOnly {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no reports found at %s. Run 'sweepy analyze' first", absRoot)
		}
	} else if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s directory: %w", StateDir, err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// saveReport stores the result of a run and prunes old reports.
func saveReport(ctx context.Context, root string, result *ingestion.PipelineResult) error {
	store, err := openStore(root, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report := result.Report(root)
	if err := store.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	pruned, err := store.Prune(ctx, maxStoredReports)
	if err != nil {
		return fmt.Errorf("pruning reports: %w", err)
	}
	slog.Debug("report saved", "id", report.ID, "pruned", pruned)
	return nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Analyze   AnalyzeCmd   `cmd:"" default:"withargs" help:"Report reachable files and unused exports"`
	Graph     GraphCmd     `cmd:"" help:"Print the module dependency graph in DOT format"`
	Importers ImportersCmd `cmd:"" help:"Show which modules import a file"`
	Watch     WatchCmd     `cmd:"" help:"Watch mode with live re-analysis"`
	Report    ReportCmd    `cmd:"" help:"Show a stored report"`
	History   HistoryCmd   `cmd:"" help:"List stored reports"`
	Setup     SetupCmd     `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Clean     CleanCmd     `cmd:"" help:"Delete stored reports for a project"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("sweepy"),
		kong.Description("Find unreachable files and unused exports in TypeScript and JavaScript projects"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	setupLogging(c.Stderr, c.Verbose, c.Quiet)

	return kongCtx.Run(&c.Globals)
}

func setupLogging(w io.Writer, verbose, quiet bool) {
	level := slog.LevelInfo
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
