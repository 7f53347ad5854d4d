package module

import (
	"path"
	"strings"
)

// SourceExtensions are the file extensions tried, in order, when resolving a
// relative specifier.
var SourceExtensions = []string{".ts", ".tsx", ".js", ".jsx"}

// IsRelative reports whether a specifier is relative (leading "."). Only
// relative specifiers are resolved; everything else is an external package.
func IsRelative(specifier string) bool {
	return strings.HasPrefix(specifier, ".")
}

// Resolve returns the module a specifier written in from denotes, or false.
//
// The candidate is the specifier joined to from's directory. Resolution tries,
// first match wins:
//  1. the candidate with each of SourceExtensions (substituted when the
//     candidate already ends in one of them, appended otherwise)
//  2. the candidate taken literally
//  3. candidate/index.<ext> for each of SourceExtensions
//
// Resolve depends on nothing but its arguments.
func Resolve(from ModulePath, specifier string, files FileSet) (ModulePath, bool) {
	if !IsRelative(specifier) {
		return "", false
	}

	candidate := Canonicalize(path.Join(string(from.Dir()), strings.ReplaceAll(specifier, `\`, "/")))

	stem := string(candidate)
	if ext := path.Ext(stem); isSourceExtension(ext) {
		stem = strings.TrimSuffix(stem, ext)
	}
	for _, ext := range SourceExtensions {
		if p := ModulePath(stem + ext); files.Contains(p) {
			return p, true
		}
	}

	if files.Contains(candidate) {
		return candidate, true
	}

	for _, ext := range SourceExtensions {
		if p := Canonicalize(string(candidate) + "/index" + ext); files.Contains(p) {
			return p, true
		}
	}

	return "", false
}

func isSourceExtension(ext string) bool {
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
