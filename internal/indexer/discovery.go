package indexer

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/py-flow-trace/internal/indexer/parsers"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery finds Python source files under a root, pruning ignored paths.
type FileDiscovery struct {
	rootDir        string
	ignore         []string          // Substrings matched against root-relative paths
	ignorePatterns []compiledPattern // Globs matched against root-relative slash paths
}

// NewFileDiscovery creates a new file discovery instance.
func NewFileDiscovery(rootDir string, ignore, ignoreGlobs []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir: rootDir,
		ignore:  ignore,
	}

	for _, pattern := range ignoreGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		fd.ignorePatterns = append(fd.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return fd, nil
}

// DiscoverFiles walks the tree and returns the Python files to analyze.
//
// Each directory's files are listed (in name order) before its subdirectories
// are descended into. Ignored directories are pruned, never entered.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}
	if err := fd.walk(fd.rootDir, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (fd *FileDiscovery) walk(dir string, files *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var subdirs []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if !fd.ShouldIgnore(path, true) {
				subdirs = append(subdirs, path)
			}
			continue
		}
		if filepath.Ext(entry.Name()) != parsers.PythonExtension {
			continue
		}
		if !fd.ShouldIgnore(path, false) {
			*files = append(*files, path)
		}
	}

	for _, sub := range subdirs {
		if err := fd.walk(sub, files); err != nil {
			return err
		}
	}
	return nil
}

// ShouldIgnore reports whether path (under the root) is excluded from analysis.
func (fd *FileDiscovery) ShouldIgnore(path string, isDir bool) bool {
	relPath, err := filepath.Rel(fd.rootDir, path)
	if err != nil {
		relPath = path
	}
	// Normalize path separators for matching
	relPath = filepath.ToSlash(relPath)
	if relPath == "." {
		return false
	}

	for _, substr := range fd.ignore {
		if substr != "" && strings.Contains(relPath, substr) {
			return true
		}
	}

	if fd.matchesAnyPattern(relPath) {
		return true
	}

	// A directory is also ignored when everything under it would be,
	// e.g. "build" against "build/**"
	return isDir && fd.matchesAnyPattern(relPath+"/**")
}

// matchesAnyPattern checks if a path matches any ignore glob.
func (fd *FileDiscovery) matchesAnyPattern(path string) bool {
	for _, cp := range fd.ignorePatterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Special handling: if path is in root (no slash), also try matching against
	// patterns with **/ prefix removed. This makes "**/*_pb2.py" match both
	// "a_pb2.py" and "gen/a_pb2.py" as users would expect.
	if !strings.Contains(path, "/") {
		for _, cp := range fd.ignorePatterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
