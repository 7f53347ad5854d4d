// Package mcp provides the MCP (Model Context Protocol) server for sweepy.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/sweepy-go/internal/analysis"
	"github.com/Benny93/sweepy-go/internal/graph"
	"github.com/Benny93/sweepy-go/internal/ingestion"
	"github.com/Benny93/sweepy-go/internal/module"
	"github.com/Benny93/sweepy-go/internal/storage"
)

// Server represents the MCP server. Tools and resources are registered on an
// SDK server, which owns the protocol and the transport.
type Server struct {
	root  string
	opts  ingestion.Options
	store storage.ReportStore
	sdk   *mcp.Server

	mu   sync.Mutex
	last *ingestion.PipelineResult
}

// NewServer creates a server analyzing root. store may be nil, in which case
// reports are kept only for the lifetime of the server.
func NewServer(root string, opts ingestion.Options, store storage.ReportStore, version string) *Server {
	if store == nil {
		store = storage.NewMemoryBackend()
	}
	s := &Server{
		root:  root,
		opts:  opts,
		store: store,
		sdk: mcp.NewServer(&mcp.Implementation{
			Name:    "sweepy",
			Version: version,
		}, nil),
	}
	for _, tool := range s.ListTools() {
		s.sdk.AddTool(tool, s.toolHandler(tool.Name))
	}
	for _, res := range s.ListResources() {
		s.sdk.AddResource(res, s.resourceHandler(res.MIMEType))
	}
	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []*mcp.Tool {
	entriesSchema := &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string"},
		Description: "Entrypoint files, root-relative. Defaults to the configured or conventional entrypoints.",
	}

	return []*mcp.Tool{
		{
			Name:        "sweepy_analyze",
			Description: "Re-analyze the project: walk the source tree, rebuild the module graph and report reachable files and unused exports.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"entries": entriesSchema,
				},
			},
		},
		{
			Name:        "sweepy_unused_exports",
			Description: "List named exports that no module consumes, directly or through re-exports.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"prefix": {Type: "string", Description: "Only report files whose path starts with this prefix"},
				},
			},
		},
		{
			Name:        "sweepy_reachable",
			Description: "List files reachable from the entrypoints, and the files that are not.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
		},
		{
			Name:        "sweepy_importers",
			Description: "Show which modules import or re-export a file, and which names they take from it.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"file": {Type: "string", Description: "Root-relative path of the file"},
				},
				Required: []string{"file"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []*mcp.Resource {
	return []*mcp.Resource{
		{
			URI:         "sweepy://report",
			Name:        "Latest Report",
			Description: "The most recent stored analysis report as JSON",
			MIMEType:    "application/json",
		},
		{
			URI:         "sweepy://graph",
			Name:        "Dependency Graph",
			Description: "The module dependency graph in Graphviz DOT format",
			MIMEType:    "text/vnd.graphviz",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "sweepy_analyze":
		return s.handleAnalyze(ctx, stringSlice(args["entries"]))
	case "sweepy_unused_exports":
		prefix, _ := args["prefix"].(string)
		return s.handleUnusedExports(ctx, prefix)
	case "sweepy_reachable":
		return s.handleReachable(ctx)
	case "sweepy_importers":
		file, _ := args["file"].(string)
		return s.handleImporters(ctx, file)
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "sweepy://report":
		return s.readReport(ctx)
	case "sweepy://graph":
		return s.readGraph(ctx)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// Run serves MCP over the transport until the client disconnects or ctx is
// done. The command line uses mcp.StdioTransport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.sdk.Run(ctx, transport)
}

// Connect starts a single session over the transport and returns without
// waiting for it to end.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.sdk.Connect(ctx, transport, nil)
}

// toolHandler adapts CallTool to the SDK. Tool failures are reported in the
// result so the client can show them, not as protocol errors.
func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("decoding %s arguments: %w", name, err)
			}
		}

		text, err := s.CallTool(ctx, name, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

func (s *Server) resourceHandler(mimeType string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := s.ReadResource(ctx, req.Params.URI)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: mimeType,
				Text:     text,
			}},
		}, nil
	}
}

// Analysis state

// analyze runs the pipeline, stores the report and caches the result.
func (s *Server) analyze(ctx context.Context, entries []string) (*ingestion.PipelineResult, error) {
	opts := s.opts
	if len(entries) > 0 {
		opts.Entrypoints = entries
	}

	result, err := ingestion.RunPipeline(ctx, s.root, opts)
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveReport(ctx, result.Report(s.root)); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()
	return result, nil
}

// current returns the cached analysis, running one first if needed.
func (s *Server) current(ctx context.Context) (*ingestion.PipelineResult, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return last, nil
	}
	return s.analyze(ctx, nil)
}

// Tool Handlers

func (s *Server) handleAnalyze(ctx context.Context, entries []string) (string, error) {
	result, err := s.analyze(ctx, entries)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("## Sweepy Analysis\n\n")
	if result.DefaultEntrypoints && len(result.Entrypoints) == 0 {
		fmt.Fprintf(&sb, "No entrypoints provided and none of the defaults exist (%s).\n",
			strings.Join(analysis.DefaultEntrypoints, ", "))
	}
	fmt.Fprintf(&sb, "**Entrypoints:** %s\n", strings.Join(result.Entrypoints, ", "))
	fmt.Fprintf(&sb, "**Files:** %d  **Edges:** %d  **Parse errors:** %d\n\n", result.Files, result.Edges, result.ParseErrors)
	if err := analysis.WriteText(&sb, result.Result); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (s *Server) handleUnusedExports(ctx context.Context, prefix string) (string, error) {
	result, err := s.current(ctx)
	if err != nil {
		return "", err
	}

	byFile := make(map[module.ModulePath][]string)
	for _, ue := range result.Result.UnusedExports {
		if strings.HasPrefix(string(ue.File), prefix) {
			byFile[ue.File] = append(byFile[ue.File], ue.Name)
		}
	}

	if len(byFile) == 0 {
		return "No unused exports found.", nil
	}

	files := make([]module.ModulePath, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i] < files[j] })

	var sb strings.Builder
	sb.WriteString("## Unused Exports\n\n")
	for _, f := range files {
		fmt.Fprintf(&sb, "### %s (%d)\n", f, len(byFile[f]))
		for _, name := range byFile[f] {
			fmt.Fprintf(&sb, "- `%s`\n", name)
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (s *Server) handleReachable(ctx context.Context) (string, error) {
	result, err := s.current(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Reachable Files (%d)\n\n", len(result.Result.ReachableFiles))
	for _, f := range result.Result.ReachableFiles {
		fmt.Fprintf(&sb, "- %s\n", f)
	}

	unreachable := analysis.UnreachableFiles(result.Table, result.Result)
	fmt.Fprintf(&sb, "\n## Unreachable Files (%d)\n\n", len(unreachable))
	for _, f := range unreachable {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	return sb.String(), nil
}

func (s *Server) handleImporters(ctx context.Context, file string) (string, error) {
	if file == "" {
		return "No file provided", nil
	}

	result, err := s.current(ctx)
	if err != nil {
		return "", err
	}

	target := module.Canonicalize(file)
	if !result.Table.Has(target) {
		return fmt.Sprintf("File %s is not part of the analyzed module table.", target), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Importers of %s\n\n", target)
	if err := analysis.WriteImporters(&sb, result.Graph, target); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Resources

func (s *Server) readReport(ctx context.Context) (string, error) {
	report, err := s.store.LatestReport(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		if _, err := s.analyze(ctx, nil); err != nil {
			return "", err
		}
		report, err = s.store.LatestReport(ctx)
	}
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	return string(data), nil
}

func (s *Server) readGraph(ctx context.Context) (string, error) {
	result, err := s.current(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := graph.WriteDOT(&sb, result.Graph, result.Reachable); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Helper functions

func stringSlice(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
