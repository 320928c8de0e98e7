package graph

import (
	"path/filepath"
	"strings"
)

// ScopeSeparator joins module, type and function segments of an identity.
const ScopeSeparator = "."

// ScopeContext is the lexical context at a point of the traversal.
// It is a value: entering a declaration returns a new context and leaving it
// is simply returning from the recursive call that received it.
type ScopeContext struct {
	Module   string // Dotted module path derived from the file path
	Type     string // Enclosing class name, empty at module level
	Function string // Enclosing method name, only set while inside a class
}

// NewModuleScope returns the initial context for a file.
func NewModuleScope(module string) ScopeContext {
	return ScopeContext{Module: module}
}

// EnterType returns the context inside a class declaration.
// Any function scope is cleared: methods do not nest across class boundaries.
func (s ScopeContext) EnterType(name string) ScopeContext {
	s.Type = name
	s.Function = ""
	return s
}

// EnterFunction returns the context inside a function declaration.
// Free functions (no enclosing class) are not named scopes, so the context
// is returned unchanged.
func (s ScopeContext) EnterFunction(name string) ScopeContext {
	if s.Type == "" {
		return s
	}
	s.Function = name
	return s
}

// Caller returns the caller identity for a call made in this context.
func (s ScopeContext) Caller() string {
	switch {
	case s.Type != "" && s.Function != "":
		return s.Module + ScopeSeparator + s.Type + ScopeSeparator + s.Function
	case s.Type != "":
		return s.Module + ScopeSeparator + s.Type
	default:
		return s.Module
	}
}

// ModulePath converts a file path into a dotted module path: the extension is
// stripped, the path is made relative to rootDir and separators become dots.
//
// Examples (rootDir "."): "pkg/mod.py" -> "pkg.mod", "./app.py" -> "app".
func ModulePath(rootDir, filePath string) string {
	trimmed := strings.TrimSuffix(filePath, filepath.Ext(filePath))

	rel, err := filepath.Rel(rootDir, trimmed)
	if err != nil {
		// Rel fails when one path is absolute and the other is not.
		rel = trimmed
		absRoot, rootErr := filepath.Abs(rootDir)
		absPath, pathErr := filepath.Abs(trimmed)
		if rootErr == nil && pathErr == nil {
			if r, err := filepath.Rel(absRoot, absPath); err == nil {
				rel = r
			}
		}
	}

	return strings.ReplaceAll(rel, string(filepath.Separator), ScopeSeparator)
}
