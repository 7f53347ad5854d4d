package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// SetupCmd configures MCP clients to launch `sweepy mcp`.
type SetupCmd struct {
	Root   string `short:"r" default:"." help:"Project root the MCP server analyzes"`
	Claude bool   `help:"Configure for Claude Code"`
	Cursor bool   `help:"Configure for Cursor"`
	Global bool   `help:"Write the global configuration under the home directory"`
	Dir    string `default:"." help:"Directory receiving project-local configuration"`
	Format string `help:"Output format (json|text)" enum:"json,text" default:"json"`
}

// Run executes the setup command.
func (c *SetupCmd) Run(g *Globals) error {
	if c.Format != "json" && c.Format != "text" {
		return fmt.Errorf("invalid format: %s (must be json or text)", c.Format)
	}

	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	config := generateMCPConfig(root)

	if !c.Claude && !c.Cursor {
		content, err := renderConfig(config, c.Format)
		if err != nil {
			return err
		}
		_, err = g.Stdout.Write(content)
		return err
	}

	for _, client := range c.clients() {
		path := filepath.Join(c.Dir, clientConfigDir(client), "mcp.json")
		if c.Global {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("locating home directory: %w", err)
			}
			path = filepath.Join(home, clientConfigDir(client), "global", "mcp.json")
		}

		if err := writeConfig(path, config, c.Format); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(g.Stdout, "✓ Created %s MCP config at %s\n", client, path)
	}
	return nil
}

func (c *SetupCmd) clients() []string {
	var out []string
	if c.Claude {
		out = append(out, "claude")
	}
	if c.Cursor {
		out = append(out, "cursor")
	}
	return out
}

func generateMCPConfig(root string) map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"sweepy": map[string]any{
				"command": "sweepy",
				"args":    []string{"mcp", "--root", root},
			},
		},
	}
}

func clientConfigDir(client string) string {
	switch client {
	case "cursor":
		return ".cursor"
	default:
		return ".claude"
	}
}

func renderConfig(config map[string]any, format string) ([]byte, error) {
	if format == "json" {
		content, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(content, '\n'), nil
	}

	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("# MCP configuration for sweepy\n")
	sb.WriteString("# Generated by sweepy setup\n\n")
	for _, k := range keys {
		value, err := json.Marshal(config[k])
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", k, err)
		}
		fmt.Fprintf(&sb, "%s: %s\n", k, value)
	}
	return []byte(sb.String()), nil
}

func writeConfig(configPath string, config map[string]any, format string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	content, err := renderConfig(config, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
