// Package ingestion turns a source tree on disk into an analysis result:
// walk, extract records in parallel, build the module table, analyze.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/gobwas/glob"
)

// FileEntry represents a file to be processed.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the slash-separated path relative to the root.
	RelPath string

	// Language is the detected language.
	Language string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Supported file extensions and their languages.
var supportedExtensions = map[string]string{
	".ts":  "typescript",
	".tsx": "tsx",
	".js":  "javascript",
	".jsx": "javascript",
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".sweepy/",
}

// Walker lists the source files under a root, honouring .gitignore, the
// default ignore patterns and user supplied glob patterns.
type Walker struct {
	root    string
	matcher gitignore.Matcher
	globs   []glob.Glob
}

// NewWalker creates a walker for root. ignore holds glob patterns matched
// against slash-separated root-relative paths.
func NewWalker(root string, ignore []string) (*Walker, error) {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns))
	for _, p := range defaultIgnorePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	loaded, err := loadGitignore(root)
	if err != nil {
		return nil, fmt.Errorf("loading .gitignore: %w", err)
	}
	patterns = append(patterns, loaded...)

	globs := make([]glob.Glob, 0, len(ignore))
	for _, p := range ignore {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}

	return &Walker{
		root:    root,
		matcher: gitignore.NewMatcher(patterns),
		globs:   globs,
	}, nil
}

// Root returns the directory the walker lists.
func (w *Walker) Root() string {
	return w.root
}

// Walk returns every supported, non-ignored file under the root with its
// content loaded.
func (w *Walker) Walk() ([]FileEntry, error) {
	var entries []FileEntry

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := w.rel(path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if relPath != "." && w.Ignored(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isSupportedFile(d.Name()) || w.Ignored(relPath, false) {
			return nil
		}

		entry, err := readEntry(path, relPath)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})

	return entries, err
}

// Ignored reports whether a root-relative, slash-separated path is excluded.
func (w *Walker) Ignored(relPath string, isDir bool) bool {
	if w.matcher.Match(strings.Split(relPath, "/"), isDir) {
		return true
	}
	for _, g := range w.globs {
		if g.Match(relPath) || (isDir && g.Match(relPath+"/")) {
			return true
		}
	}
	return false
}

// Accepts reports whether an absolute path names a file the walker would list.
func (w *Walker) Accepts(path string) bool {
	relPath, err := w.rel(path)
	if err != nil || strings.HasPrefix(relPath, "../") {
		return false
	}
	return isSupportedFile(path) && !w.Ignored(relPath, false)
}

func (w *Walker) rel(path string) (string, error) {
	relPath, err := filepath.Rel(w.root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(relPath), nil
}

func readEntry(path, relPath string) (FileEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return FileEntry{}, err
	}

	hash := sha256.Sum256(content)

	return FileEntry{
		Path:     path,
		RelPath:  relPath,
		Language: getLanguage(path),
		Content:  content,
		SHA256:   hex.EncodeToString(hash[:]),
	}, nil
}

// loadGitignore loads .gitignore patterns from the repository root.
func loadGitignore(repoPath string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(repoPath, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return patterns, nil
}

// isSupportedFile checks if a file has a supported extension.
func isSupportedFile(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// getLanguage returns the language for a file extension.
func getLanguage(filename string) string {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
