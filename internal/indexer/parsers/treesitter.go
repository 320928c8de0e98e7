package parsers

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SyntaxTree is the parsed representation of one source file.
// It is owned by the traversal that produced it and must be closed when done.
type SyntaxTree struct {
	Path   string // File path as given by the caller
	Source []byte // Raw file text the tree points into
	Lang   string

	tree *sitter.Tree
}

// Root returns the root node of the tree.
func (t *SyntaxTree) Root() *sitter.Node {
	return t.tree.RootNode()
}

// Close releases the underlying tree-sitter tree. Safe to call more than once.
func (t *SyntaxTree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// treeSitterParser provides common tree-sitter parsing functionality.
type treeSitterParser struct {
	language *sitter.Language
	lang     string
}

// newTreeSitterParser creates a new tree-sitter parser for the given language.
func newTreeSitterParser(language *sitter.Language, lang string) *treeSitterParser {
	return &treeSitterParser{
		language: language,
		lang:     lang,
	}
}

// parse turns source into a SyntaxTree, rejecting trees that contain syntax errors.
func (p *treeSitterParser) parse(ctx context.Context, filePath string, source []byte) (*SyntaxTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(p.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s file: %s", p.lang, filePath)
	}

	rootNode := tree.RootNode()
	if rootNode.HasError() {
		parseErr := newParseError(filePath, rootNode, source)
		tree.Close()
		return nil, parseErr
	}

	return &SyntaxTree{
		Path:   filePath,
		Source: source,
		Lang:   p.lang,
		tree:   tree,
	}, nil
}

// NodeText extracts the text content of a tree-sitter node.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// FindChildByType finds the first child node with the given type.
func FindChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findErrorNode returns the first ERROR or MISSING node in pre-order.
// Only subtrees that report errors are descended into.
func findErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := findErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// snippet returns a short single-line excerpt of the node text.
func snippet(node *sitter.Node, source []byte) string {
	if node.IsMissing() {
		return "missing " + node.Kind()
	}

	text := NodeText(node, source)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	text = strings.TrimSpace(text)

	const maxSnippet = 40
	if len(text) > maxSnippet {
		text = text[:maxSnippet] + "..."
	}
	return text
}
