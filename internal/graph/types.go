package graph

// CallSite is one resolved caller/callee pair observed during traversal.
// Sites are folded into a CallGraph and never persisted individually.
type CallSite struct {
	Caller string // Enclosing scope identity (e.g., "pkg.mod.C.run")
	Callee string // Resolved callee identity (e.g., "pkg.item.method")
	Line   int    // 1-indexed line of the call expression
}

// FileCalls holds the call sites extracted from a single file, in traversal order.
type FileCalls struct {
	FilePath string
	Module   string // Module path derived from FilePath
	Sites    []CallSite
}

// FileFailure records a file that could not be extracted in keep-going mode.
type FileFailure struct {
	FilePath string
	Err      error
}

// Result is the outcome of a build.
type Result struct {
	Graph    *CallGraph
	Files    int           // Files successfully extracted
	Failures []FileFailure // Only populated when failures are isolated
}
