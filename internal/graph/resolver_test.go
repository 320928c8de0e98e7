package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// Test Plan for Call Resolver:
// - Identifier and single attribute calls produce labels
// - Chained attributes, subscripts and call results produce no label
// - Built-in names are discarded before lookup
// - Leading segment is substituted through the import table
// - Unresolved labels are dropped unless recording is enabled

// firstCall returns the outermost call node of a single expression statement.
func firstCall(t *testing.T, src string) (*sitter.Node, []byte, func()) {
	t.Helper()

	tree, err := parsers.NewPythonParser().Parse(context.Background(), "calls.py", []byte(src))
	require.NoError(t, err)

	var find func(n *sitter.Node) *sitter.Node
	find = func(n *sitter.Node) *sitter.Node {
		if n.Kind() == "call" {
			return n
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if found := find(n.NamedChild(i)); found != nil {
				return found
			}
		}
		return nil
	}

	call := find(tree.Root())
	require.NotNil(t, call, "no call in %q", src)
	return call, tree.Source, tree.Close
}

func TestCalleeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src   string
		label string
		ok    bool
	}{
		{src: "f()\n", label: "f", ok: true},
		{src: "x.y(1, 2)\n", label: "x.y", ok: true},
		{src: "a.b.c()\n", ok: false},
		{src: "get_handler()()\n", ok: false},
		{src: "arr[0]()\n", ok: false},
		{src: "(lambda: 1)()\n", ok: false},
		{src: "f().g()\n", ok: false},
		{src: "(f)()\n", label: "f", ok: true},
		{src: "((f))()\n", label: "f", ok: true},
		{src: "(x).y()\n", label: "x.y", ok: true},
		{src: "((x)).y()\n", label: "x.y", ok: true},
		{src: "(x.y)()\n", label: "x.y", ok: true},
		{src: "(a.b).c()\n", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()

			call, source, done := firstCall(t, tt.src)
			defer done()

			label, ok := CalleeLabel(call, source)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	imports := NewImportTable(false)
	imports.Bind("os", "os")
	imports.Bind("item", "pkg.item")
	imports.Bind("helper", "lib.helpers.helper")

	r := NewResolver(imports, false)

	tests := []struct {
		label    string
		expected string
		ok       bool
	}{
		{label: "os.getcwd", expected: "os.getcwd", ok: true},
		{label: "item.method", expected: "pkg.item.method", ok: true},
		{label: "helper", expected: "lib.helpers.helper", ok: true},
		{label: "print", ok: false},
		{label: "len", ok: false},
		{label: "unknown", ok: false},
		{label: "self.run", ok: false},
	}

	for _, tt := range tests {
		callee, ok := r.Resolve(tt.label)
		assert.Equal(t, tt.ok, ok, tt.label)
		assert.Equal(t, tt.expected, callee, tt.label)
	}
}

func TestResolver_RecordUnresolved(t *testing.T) {
	t.Parallel()

	r := NewResolver(NewImportTable(false), true)

	callee, ok := r.Resolve("self.run")
	assert.True(t, ok)
	assert.Equal(t, "self.run", callee)

	callee, ok = r.Resolve("local_fn")
	assert.True(t, ok)
	assert.Equal(t, "local_fn", callee)

	_, ok = r.Resolve("print")
	assert.False(t, ok, "built-ins stay excluded")
}

func TestResolver_BuiltinCheckIsUnqualified(t *testing.T) {
	t.Parallel()

	imports := NewImportTable(false)
	imports.Bind("str", "mylib.str")
	r := NewResolver(imports, false)

	// Only the bare label is checked against built-ins
	_, ok := r.Resolve("str")
	assert.False(t, ok)

	callee, ok := r.Resolve("str.join")
	assert.True(t, ok)
	assert.Equal(t, "mylib.str.join", callee)
}

func TestIsBuiltin(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"print", "len", "isinstance", "ValueError", "super", "__import__"} {
		assert.True(t, IsBuiltin(name), name)
	}
	for _, name := range []string{"os", "print.x", "helper", ""} {
		assert.False(t, IsBuiltin(name), name)
	}
}
