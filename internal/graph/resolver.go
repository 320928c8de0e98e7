package graph

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// CalleeLabel extracts the syntactic callee of a call node.
//
//	x.y(...) -> "x.y"
//	f(...)   -> "f"
//
// Grouping parentheses around the function or the attribute's object are
// ignored, so (f)() is "f" and (x).y() is "x.y".
//
// Any other shape (chained attributes, subscripts, calls on call results)
// has no label and the call site is skipped.
func CalleeLabel(call *sitter.Node, source []byte) (string, bool) {
	fn := unwrapParens(call.ChildByFieldName("function"))
	if fn == nil {
		return "", false
	}

	switch fn.Kind() {
	case "identifier":
		return parsers.NodeText(fn, source), true
	case "attribute":
		object := unwrapParens(fn.ChildByFieldName("object"))
		attr := fn.ChildByFieldName("attribute")
		if object == nil || attr == nil || object.Kind() != "identifier" {
			return "", false
		}
		return parsers.NodeText(object, source) + ScopeSeparator + parsers.NodeText(attr, source), true
	}
	return "", false
}

// unwrapParens strips any number of grouping parentheses around node.
func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.Kind() == "parenthesized_expression" {
		node = node.NamedChild(0)
	}
	return node
}

// Resolver rewrites callee labels through a file's import table.
type Resolver struct {
	imports          *ImportTable
	recordUnresolved bool
}

// NewResolver creates a resolver over imports. With recordUnresolved set,
// labels whose leading segment is not imported are kept verbatim instead of
// being dropped.
func NewResolver(imports *ImportTable, recordUnresolved bool) *Resolver {
	return &Resolver{imports: imports, recordUnresolved: recordUnresolved}
}

// Resolve returns the callee identity for label, or false when the call
// must not be recorded.
func (r *Resolver) Resolve(label string) (string, bool) {
	if IsBuiltin(label) {
		return "", false
	}

	head, rest, dotted := strings.Cut(label, ScopeSeparator)
	qualified, ok := r.imports.Lookup(head)
	if !ok {
		if r.recordUnresolved {
			return label, true
		}
		return "", false
	}

	if dotted {
		return qualified + ScopeSeparator + rest, true
	}
	return qualified, true
}
