package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// NewTypeScriptParser creates a parser for .ts files.
func NewTypeScriptParser() Parser {
	return mustTreeSitterParser("typescript",
		sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		".ts")
}

// NewTSXParser creates a parser for .tsx files.
func NewTSXParser() Parser {
	return mustTreeSitterParser("tsx",
		sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
		".tsx")
}
