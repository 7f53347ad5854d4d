package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
)

// NewJavaScriptParser creates a parser for JavaScript and JSX files. The
// JavaScript grammar parses JSX natively.
func NewJavaScriptParser() Parser {
	return mustTreeSitterParser("javascript",
		sitter.NewLanguage(tree_sitter_javascript.Language()),
		".js", ".jsx")
}
