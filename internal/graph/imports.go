package graph

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// ImportTable maps locally bound names to fully qualified names for one file.
// Later bindings of the same local name overwrite earlier ones.
type ImportTable struct {
	bindings       map[string]string
	resolveAliases bool
}

// NewImportTable creates an empty table. When resolveAliases is false the key
// of every binding is the declared name, even if an "as" rename is present.
func NewImportTable(resolveAliases bool) *ImportTable {
	return &ImportTable{
		bindings:       make(map[string]string),
		resolveAliases: resolveAliases,
	}
}

// Bind records local -> qualified.
func (t *ImportTable) Bind(local, qualified string) {
	t.bindings[local] = qualified
}

// Lookup returns the qualified name bound to local.
func (t *ImportTable) Lookup(local string) (string, bool) {
	qualified, ok := t.bindings[local]
	return qualified, ok
}

// Len returns the number of bindings.
func (t *ImportTable) Len() int {
	return len(t.bindings)
}

// AddImport records an import_statement: "import a", "import a.b", "import a as b".
// The declared name is bound to itself.
func (t *ImportTable) AddImport(node *sitter.Node, source []byte) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			name := parsers.NodeText(child, source)
			t.Bind(name, name)
		case "aliased_import":
			name, alias := aliasedImport(child, source)
			t.Bind(t.localName(name, alias), name)
		}
	}
}

// AddImportFrom records an import_from_statement: "from src import name".
// Each name is bound to "<src>.<name>".
func (t *ImportTable) AddImportFrom(node *sitter.Node, source []byte) {
	module := parsers.NodeText(node.ChildByFieldName("module_name"), source)
	t.addFromNames(node, module, source)
}

// AddFutureImport records "from __future__ import name".
func (t *ImportTable) AddFutureImport(node *sitter.Node, source []byte) {
	t.addFromNames(node, "__future__", source)
}

func (t *ImportTable) addFromNames(node *sitter.Node, module string, source []byte) {
	afterImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		kind := child.Kind()
		if kind == "import" {
			afterImport = true
			continue
		}
		if !afterImport {
			continue
		}

		switch kind {
		case "dotted_name":
			name := parsers.NodeText(child, source)
			t.Bind(name, qualify(module, name))
		case "aliased_import":
			name, alias := aliasedImport(child, source)
			t.Bind(t.localName(name, alias), qualify(module, name))
		case "wildcard_import":
			t.Bind("*", qualify(module, "*"))
		}
	}
}

func (t *ImportTable) localName(name, alias string) string {
	if t.resolveAliases && alias != "" {
		return alias
	}
	return name
}

// aliasedImport returns (declared name, alias) of an aliased_import node.
func aliasedImport(node *sitter.Node, source []byte) (name, alias string) {
	name = parsers.NodeText(node.ChildByFieldName("name"), source)
	alias = parsers.NodeText(node.ChildByFieldName("alias"), source)
	return name, alias
}

// qualify joins a from-import source and a name. Relative sources keep their
// leading dots: ("." , "x") -> ".x", ("..pkg", "x") -> "..pkg.x".
func qualify(module, name string) string {
	if module == "" || strings.HasSuffix(module, ScopeSeparator) {
		return module + name
	}
	return module + ScopeSeparator + name
}
