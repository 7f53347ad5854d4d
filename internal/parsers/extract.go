package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/Benny93/sweepy-go/internal/module"
)

// extractRecords walks the top-level statements of a program. Nested
// statements (inside functions, blocks or namespaces) are not inspected.
func extractRecords(root *sitter.Node, src []byte) *module.ParsedFile {
	result := &module.ParsedFile{}

	for i := uint(0); i < root.NamedChildCount(); i++ {
		stmt := root.NamedChild(i)
		if stmt == nil {
			continue
		}
		switch stmt.Kind() {
		case "import_statement":
			if rec, ok := importRecord(stmt, src); ok {
				result.Imports = append(result.Imports, rec)
			}
		case "export_statement":
			result.Exports = append(result.Exports, exportItems(stmt, src)...)
		}
	}

	return result
}

func importRecord(stmt *sitter.Node, src []byte) (module.ImportRecord, bool) {
	rec := module.ImportRecord{}

	if source := stmt.ChildByFieldName("source"); source != nil {
		rec.Source = stringValue(source, src)
	}

	for i := uint(0); i < stmt.NamedChildCount(); i++ {
		child := stmt.NamedChild(i)
		switch child.Kind() {
		case "import_clause":
			importClause(child, src, &rec)
		case "import_require_clause":
			// import x = require('./y')
			rec.HasNamespace = true
			if source := child.ChildByFieldName("source"); source != nil {
				rec.Source = stringValue(source, src)
			}
		}
	}

	return rec, rec.Source != ""
}

func importClause(clause *sitter.Node, src []byte, rec *module.ImportRecord) {
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		child := clause.NamedChild(i)
		switch child.Kind() {
		case "identifier":
			rec.HasDefault = true
		case "namespace_import":
			rec.HasNamespace = true
		case "named_imports":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec.Kind() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				imported := identifierValue(name, src)
				if imported == module.DefaultExport {
					// import { default as x } from './y'
					rec.HasDefault = true
					continue
				}
				rec.Specifiers = append(rec.Specifiers, imported)
			}
		}
	}
}

func exportItems(stmt *sitter.Node, src []byte) []module.ExportItem {
	var source string
	if s := stmt.ChildByFieldName("source"); s != nil {
		source = stringValue(s, src)
	}

	var (
		items       []module.ExportItem
		isDefault   bool
		hasWildcard bool
	)

	for i := uint(0); i < stmt.ChildCount(); i++ {
		child := stmt.Child(i)
		switch child.Kind() {
		case "default", "=":
			// export default ... and TypeScript's export = ...
			isDefault = true
		case "*", "namespace_export":
			hasWildcard = true
		case "export_clause":
			items = append(items, exportClause(child, src, source)...)
		}
	}

	switch {
	case isDefault:
		return []module.ExportItem{module.NamedExport{Name: module.DefaultExport}}
	case hasWildcard:
		if source == "" {
			return nil
		}
		return []module.ExportItem{module.AllExport{Source: source}}
	}

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		for _, name := range declarationNames(decl, src) {
			items = append(items, module.NamedExport{Name: name})
		}
	}

	return items
}

func exportClause(clause *sitter.Node, src []byte, source string) []module.ExportItem {
	var items []module.ExportItem
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		spec := clause.NamedChild(i)
		if spec.Kind() != "export_specifier" {
			continue
		}
		exported := spec.ChildByFieldName("alias")
		if exported == nil {
			exported = spec.ChildByFieldName("name")
		}
		if exported == nil {
			continue
		}
		items = append(items, module.NamedExport{Name: identifierValue(exported, src), Source: source})
	}
	return items
}

// declarationNames returns the names an exported declaration binds.
func declarationNames(decl *sitter.Node, src []byte) []string {
	switch decl.Kind() {
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			declarator := decl.NamedChild(i)
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			if name := declarator.ChildByFieldName("name"); name != nil {
				names = append(names, bindingNames(name, src)...)
			}
		}
		return names

	case "ambient_declaration":
		// export declare const x: number;
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			if names := declarationNames(decl.NamedChild(i), src); len(names) > 0 {
				return names
			}
		}
		return nil

	case "function_declaration", "generator_function_declaration", "function_signature",
		"class_declaration", "abstract_class_declaration", "interface_declaration",
		"type_alias_declaration", "enum_declaration", "module", "internal_module":
		if name := decl.ChildByFieldName("name"); name != nil {
			return []string{identifierValue(name, src)}
		}
	}
	return nil
}

// bindingNames collects the identifiers bound by a declarator name, which may
// be a destructuring pattern.
func bindingNames(n *sitter.Node, src []byte) []string {
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{n.Utf8Text(src)}
	case "pair_pattern":
		if value := n.ChildByFieldName("value"); value != nil {
			return bindingNames(value, src)
		}
		return nil
	case "assignment_pattern", "object_assignment_pattern":
		if left := n.ChildByFieldName("left"); left != nil {
			return bindingNames(left, src)
		}
		return nil
	case "object_pattern", "array_pattern", "rest_pattern":
		var names []string
		for i := uint(0); i < n.NamedChildCount(); i++ {
			names = append(names, bindingNames(n.NamedChild(i), src)...)
		}
		return names
	}
	return nil
}

// identifierValue returns the name of an identifier, or the contents of a
// string used as a module export name (export { x as "y" }).
func identifierValue(n *sitter.Node, src []byte) string {
	if n.Kind() == "string" {
		return stringValue(n, src)
	}
	return n.Utf8Text(src)
}

// stringValue returns the contents of a string literal without its quotes.
func stringValue(n *sitter.Node, src []byte) string {
	text := n.Utf8Text(src)
	if len(text) >= 2 {
		if q := text[0]; (q == '\'' || q == '"' || q == '`') && text[len(text)-1] == q {
			return text[1 : len(text)-1]
		}
	}
	return text
}
