// Package discovery resolves command-line inputs into the set of files to
// lint. An input can be a literal file, a directory (walked recursively),
// or a doublestar glob pattern.
package discovery

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// File is one discovered lint target.
type File struct {
	// Path to the file. Explicit file inputs keep the path as given
	// (relative or absolute); files found by walking or globbing carry an
	// absolute path.
	Path string

	// ConfigRoot is the directory config discovery starts from, the
	// directory containing the file.
	ConfigRoot string
}

// Options configures discovery behavior.
type Options struct {
	// Patterns narrow what a directory walk picks up (e.g. "*.py").
	// Empty means every regular file; linter selectors filter later.
	Patterns []string

	// ExcludePatterns are glob patterns to drop from results. A pattern is
	// tried against the absolute path, the basename, and every suffix
	// subpath, so "vendor/*" excludes any vendor directory's children at
	// any depth.
	ExcludePatterns []string
}

// Discover expands each input into lint targets. Results are deduplicated
// by absolute path and sorted.
func Discover(inputs []string, opts Options) ([]File, error) {
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"*"}
	}

	seen := make(map[string]bool)
	var results []File

	for _, input := range inputs {
		discovered, err := discoverInput(input, opts, seen)
		if err != nil {
			return nil, err
		}
		results = append(results, discovered...)
	}

	slices.SortFunc(results, func(a, b File) int {
		return cmp.Compare(a.Path, b.Path)
	})
	return results, nil
}

// discoverInput processes a single input (file, directory, or glob).
func discoverInput(input string, opts Options, seen map[string]bool) ([]File, error) {
	// Inputs with glob metacharacters never hit os.Stat; on Windows a stat
	// of "*" fails with a non-NotExist error.
	if containsGlobChars(input) {
		return globMatches(input, opts, seen)
	}

	info, err := os.Stat(input)
	if err == nil {
		if info.IsDir() {
			return discoverDirectory(input, opts, seen)
		}
		return discoverFile(input, opts, seen)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	// Not a literal path; a glob that simply matches nothing.
	return globMatches(input, opts, seen)
}

func containsGlobChars(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', ']', '{', '}':
			return true
		}
	}
	return false
}

// discoverFile admits an explicitly named file, keeping the path as given.
func discoverFile(path string, opts Options, seen map[string]bool) ([]File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if isExcluded(absPath, opts.ExcludePatterns) || seen[absPath] {
		return nil, nil
	}
	seen[absPath] = true

	return []File{{
		Path:       path,
		ConfigRoot: filepath.Dir(absPath),
	}}, nil
}

// discoverDirectory walks a directory recursively, matching files against
// the configured patterns.
func discoverDirectory(dir string, opts Options, seen map[string]bool) ([]File, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var results []File
	for _, pattern := range opts.Patterns {
		for _, glob := range []string{
			filepath.Join(absDir, "**", pattern),
			filepath.Join(absDir, pattern),
		} {
			discovered, err := globMatches(glob, opts, seen)
			if err != nil {
				return nil, err
			}
			results = append(results, discovered...)
		}
	}
	return results, nil
}

// globMatches expands one glob pattern into lint targets.
func globMatches(pattern string, opts Options, seen map[string]bool) ([]File, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}

	var results []File
	for _, match := range matches {
		absPath, err := filepath.Abs(match)
		if err != nil {
			return nil, err
		}
		if isExcluded(absPath, opts.ExcludePatterns) || seen[absPath] {
			continue
		}
		seen[absPath] = true
		results = append(results, File{
			Path:       absPath,
			ConfigRoot: filepath.Dir(absPath),
		})
	}
	return results, nil
}

// isExcluded matches a path against the exclusion patterns three ways: the
// full absolute path, the basename, and every suffix subpath. The subpath
// form lets "vendor/*" match direct children of any vendor component
// without also matching deeper descendants.
//
// doublestar always uses forward slashes, so paths are normalized first.
func isExcluded(absPath string, excludePatterns []string) bool {
	absPathSlash := filepath.ToSlash(absPath)
	base := filepath.ToSlash(filepath.Base(absPath))

	for _, pattern := range excludePatterns {
		pattern = filepath.ToSlash(pattern)

		if matched, err := doublestar.Match(pattern, absPathSlash); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
		parts := splitPath(absPath)
		for i := range parts {
			subpath := filepath.ToSlash(filepath.Join(parts[i:]...))
			if matched, err := doublestar.Match(pattern, subpath); err == nil && matched {
				return true
			}
		}
	}
	return false
}

// splitPath splits a path into its components: "/a/b/c.py" becomes
// ["a", "b", "c.py"]. Windows drive letters are stripped.
func splitPath(path string) []string {
	var parts []string
	for path != "" {
		dir, file := filepath.Split(path)
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		path = filepath.Clean(dir)

		if path == "/" || path == "." {
			break
		}
		vol := filepath.VolumeName(path)
		if vol != "" && (path == vol || path == vol+string(filepath.Separator)) {
			break
		}
	}
	return parts
}
