package graph

import (
	"context"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// Options controls how call sites are resolved.
type Options struct {
	// RecordUnresolved keeps calls whose leading segment is not imported,
	// using the label verbatim. By default they are dropped.
	RecordUnresolved bool

	// ResolveAliases binds "import a as b" under "b" instead of "a".
	ResolveAliases bool
}

// Extractor extracts call sites from Python source files.
type Extractor interface {
	// ExtractFile reads and parses a file, then extracts its call sites.
	ExtractFile(ctx context.Context, filePath string) (*FileCalls, error)

	// ExtractSource extracts call sites from in-memory source text.
	ExtractSource(ctx context.Context, filePath string, source []byte) (*FileCalls, error)
}

// pyExtractor implements Extractor using tree-sitter.
type pyExtractor struct {
	rootDir string // Root used to derive module paths
	opts    Options
	parser  *parsers.PythonParser
}

// NewExtractor creates a new call site extractor for Python files.
func NewExtractor(rootDir string, opts Options) Extractor {
	return &pyExtractor{
		rootDir: rootDir,
		opts:    opts,
		parser:  parsers.NewPythonParser(),
	}
}

// ExtractFile extracts call sites from a Python source file.
func (e *pyExtractor) ExtractFile(ctx context.Context, filePath string) (*FileCalls, error) {
	tree, err := e.parser.ParseFile(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return e.extract(tree), nil
}

// ExtractSource extracts call sites from source text.
func (e *pyExtractor) ExtractSource(ctx context.Context, filePath string, source []byte) (*FileCalls, error) {
	tree, err := e.parser.Parse(ctx, filePath, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return e.extract(tree), nil
}

func (e *pyExtractor) extract(tree *parsers.SyntaxTree) *FileCalls {
	module := ModulePath(e.rootDir, tree.Path)
	imports := NewImportTable(e.opts.ResolveAliases)

	w := &fileWalk{
		source:   tree.Source,
		imports:  imports,
		resolver: NewResolver(imports, e.opts.RecordUnresolved),
		result: &FileCalls{
			FilePath: tree.Path,
			Module:   module,
			Sites:    []CallSite{},
		},
	}
	w.visit(tree.Root(), NewModuleScope(module))
	return w.result
}

// fileWalk holds the per-file state of a single traversal. The import table
// fills up as the walk proceeds, so a call only sees imports declared before it.
type fileWalk struct {
	source   []byte
	imports  *ImportTable
	resolver *Resolver
	result   *FileCalls
}

// visit walks node in pre-order. Scope changes are passed down by value.
func (w *fileWalk) visit(node *sitter.Node, scope ScopeContext) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "import_statement":
		w.imports.AddImport(node, w.source)
		return
	case "import_from_statement":
		w.imports.AddImportFrom(node, w.source)
		return
	case "future_import_statement":
		w.imports.AddFutureImport(node, w.source)
		return
	case "decorated_definition":
		// Decorators are evaluated in the scope of the definition they wrap.
		scope = w.enter(node.ChildByFieldName("definition"), scope)
	case "class_definition", "function_definition":
		scope = w.enter(node, scope)
	case "call":
		w.recordCall(node, scope)
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		w.visit(node.NamedChild(i), scope)
	}
}

// enter returns the scope inside a class or function definition.
func (w *fileWalk) enter(def *sitter.Node, scope ScopeContext) ScopeContext {
	if def == nil {
		return scope
	}
	name := parsers.NodeText(def.ChildByFieldName("name"), w.source)
	if name == "" {
		return scope
	}

	switch def.Kind() {
	case "class_definition":
		return scope.EnterType(name)
	case "function_definition":
		return scope.EnterFunction(name)
	}
	return scope
}

func (w *fileWalk) recordCall(call *sitter.Node, scope ScopeContext) {
	label, ok := CalleeLabel(call, w.source)
	if !ok {
		return
	}
	callee, ok := w.resolver.Resolve(label)
	if !ok {
		return
	}

	w.result.Sites = append(w.result.Sites, CallSite{
		Caller: scope.Caller(),
		Callee: callee,
		Line:   int(call.StartPosition().Row) + 1,
	})
}

