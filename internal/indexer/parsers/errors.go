package parsers

import (
	"errors"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ErrSyntax indicates that file text does not conform to the source grammar.
var ErrSyntax = errors.New("invalid syntax")

// ParseError reports the first syntax problem found in a file.
// Line and Column are 1-indexed.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("%s:%d:%d: %v", e.Path, e.Line, e.Column, ErrSyntax)
	}
	return fmt.Sprintf("%s:%d:%d: %v near %q", e.Path, e.Line, e.Column, ErrSyntax, e.Snippet)
}

// Unwrap lets errors.Is(err, ErrSyntax) match any ParseError.
func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

// newParseError locates the first error node under root.
func newParseError(filePath string, root *sitter.Node, source []byte) *ParseError {
	node := findErrorNode(root)
	if node == nil {
		node = root
	}
	return parseErrorAt(filePath, node, source)
}

// parseErrorAt reports a syntax problem at node.
func parseErrorAt(filePath string, node *sitter.Node, source []byte) *ParseError {
	pos := node.StartPosition()
	return &ParseError{
		Path:    filePath,
		Line:    int(pos.Row) + 1,
		Column:  int(pos.Column) + 1,
		Snippet: snippet(node, source),
	}
}
