package parsers

import (
	"context"
	"fmt"
	"os"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"
)

// PythonExtension is the file extension recognized as Python source.
const PythonExtension = ".py"

// PythonParser parses Python files.
type PythonParser struct {
	*treeSitterParser
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	lang := sitter.NewLanguage(python.Language())
	return &PythonParser{
		treeSitterParser: newTreeSitterParser(lang, "python"),
	}
}

// ParseFile reads a Python source file and parses it.
func (p *PythonParser) ParseFile(ctx context.Context, filePath string) (*SyntaxTree, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	return p.Parse(ctx, filePath, source)
}

// Parse parses Python source text. A tree containing syntax errors, or a
// construct the grammar accepts but Python 3 does not, is rejected with a
// *ParseError carrying the path and location.
func (p *PythonParser) Parse(ctx context.Context, filePath string, source []byte) (*SyntaxTree, error) {
	tree, err := p.parse(ctx, filePath, source)
	if err != nil {
		return nil, err
	}

	if node := findRejectedNode(tree.Root()); node != nil {
		tree.Close()
		return nil, parseErrorAt(filePath, node, source)
	}
	return tree, nil
}

// findRejectedNode returns the first node, in pre-order, of a production the
// grammar accepts but the Python 3 parser rejects:
//
//	print "x"            print_statement
//	exec "x"             exec_statement
//	x := 1               unparenthesized named_expression as a statement
//	del f()              delete target that is a call
//	f(a for a in b, c)   comprehension iterating over a bare tuple
func findRejectedNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}

	switch node.Kind() {
	case "print_statement", "exec_statement":
		return node
	case "expression_statement":
		if child := node.NamedChild(0); child != nil && child.Kind() == "named_expression" {
			return child
		}
	case "delete_statement":
		if target := deletedCall(node); target != nil {
			return target
		}
	case "for_in_clause":
		if comma := FindChildByType(node, ","); comma != nil {
			return comma
		}
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		if found := findRejectedNode(node.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

// deletedCall returns the first del target that is a call expression.
func deletedCall(del *sitter.Node) *sitter.Node {
	for i := uint(0); i < del.NamedChildCount(); i++ {
		target := del.NamedChild(i)
		if target.Kind() == "expression_list" {
			for j := uint(0); j < target.NamedChildCount(); j++ {
				if el := target.NamedChild(j); el.Kind() == "call" {
					return el
				}
			}
			continue
		}
		if target.Kind() == "call" {
			return target
		}
	}
	return nil
}
