// Package parsers extracts per-file import and export records from
// JavaScript and TypeScript sources using tree-sitter grammars.
package parsers

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Benny93/sweepy-go/internal/module"
)

var (
	// ErrSyntax marks a file that parsed with syntax errors. The records
	// returned alongside it are whatever could be recovered.
	ErrSyntax = errors.New("syntax error")

	// ErrUnsupported is returned for files no registered parser handles.
	ErrUnsupported = errors.New("unsupported file type")
)

// Parser defines the interface for language-specific record extractors.
type Parser interface {
	// Parse extracts the top-level import and export records of a file.
	// On ErrSyntax the returned file is non-nil and holds the partial records.
	Parse(filePath string, content []byte) (*module.ParsedFile, error)

	// Language returns the language this parser handles.
	Language() string

	// SupportsFile reports whether the parser handles the given file name.
	SupportsFile(filename string) bool
}

// Registry selects a parser by file extension.
type Registry struct {
	parsers []Parser
}

// NewRegistry returns a registry with the TypeScript, TSX and JavaScript
// parsers.
func NewRegistry() *Registry {
	return &Registry{parsers: []Parser{
		NewTypeScriptParser(),
		NewTSXParser(),
		NewJavaScriptParser(),
	}}
}

// ForFile returns the parser for filename.
func (r *Registry) ForFile(filename string) (Parser, error) {
	for _, p := range r.parsers {
		if p.SupportsFile(filename) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", filename, ErrUnsupported)
}

// Parse extracts the records of a file with the matching parser.
func (r *Registry) Parse(filePath string, content []byte) (*module.ParsedFile, error) {
	p, err := r.ForFile(filePath)
	if err != nil {
		return nil, err
	}
	return p.Parse(filePath, content)
}

// Supported reports whether any registered parser handles filename.
func (r *Registry) Supported(filename string) bool {
	_, err := r.ForFile(filename)
	return err == nil
}

func hasExtension(filename string, exts ...string) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
