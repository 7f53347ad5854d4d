package parsers

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/Benny93/sweepy-go/internal/module"
)

// treeSitterParser runs the shared record extraction over one grammar.
// tree-sitter parsers are not safe for concurrent use, so instances are
// recycled through a pool.
type treeSitterParser struct {
	language   string
	extensions []string
	lang       *sitter.Language
	pool       sync.Pool
}

// newTreeSitterParser fails when the grammar cannot be loaded, for example
// when its ABI version is outside the range the runtime supports.
func newTreeSitterParser(language string, lang *sitter.Language, extensions ...string) (*treeSitterParser, error) {
	if lang == nil {
		return nil, fmt.Errorf("%s grammar: no language", language)
	}
	first := sitter.NewParser()
	if err := first.SetLanguage(lang); err != nil {
		first.Close()
		return nil, fmt.Errorf("%s grammar: %w", language, err)
	}

	p := &treeSitterParser{
		language:   language,
		extensions: extensions,
		lang:       lang,
	}
	// SetLanguage succeeded once for lang, so it cannot fail in New.
	p.pool.New = func() any {
		sp := sitter.NewParser()
		_ = sp.SetLanguage(lang)
		return sp
	}
	p.pool.Put(first)
	return p, nil
}

// mustTreeSitterParser panics if the grammar cannot be loaded. The grammars
// are compiled in, so a failure is a build problem rather than a runtime one.
func mustTreeSitterParser(language string, lang *sitter.Language, extensions ...string) *treeSitterParser {
	p, err := newTreeSitterParser(language, lang, extensions...)
	if err != nil {
		panic(err)
	}
	return p
}

// Language returns the language this parser handles.
func (p *treeSitterParser) Language() string {
	return p.language
}

// SupportsFile checks if this parser can handle the given file.
func (p *treeSitterParser) SupportsFile(filename string) bool {
	return hasExtension(filename, p.extensions...)
}

// Parse extracts the top-level import and export records of a file.
func (p *treeSitterParser) Parse(filePath string, content []byte) (*module.ParsedFile, error) {
	sp := p.pool.Get().(*sitter.Parser)
	defer func() {
		sp.Reset()
		p.pool.Put(sp)
	}()

	tree := sp.Parse(content, nil)
	if tree == nil {
		return &module.ParsedFile{}, fmt.Errorf("parsing %s: %w", filePath, ErrSyntax)
	}
	defer tree.Close()

	root := tree.RootNode()
	result := extractRecords(root, content)

	if root.HasError() {
		return result, fmt.Errorf("parsing %s (line %d): %w", filePath, firstErrorLine(root), ErrSyntax)
	}
	return result, nil
}

// firstErrorLine returns the 1-based line of the first error or missing node.
func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPosition().Row) + 1
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPosition().Row) + 1
}
