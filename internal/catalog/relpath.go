package catalog

import (
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// RelPath is a slash-separated path relative to a scan root. The root itself
// is never part of it, so the same RelPath can be compared across an input
// and an output tree.
type RelPath string

// FromOS converts an OS-specific relative path into a RelPath.
func FromOS(rel string) RelPath {
	return RelPath(filepath.ToSlash(filepath.Clean(rel)))
}

// OS returns the path with OS-specific separators.
func (p RelPath) OS() string { return filepath.FromSlash(string(p)) }

// Under joins p onto root.
func (p RelPath) Under(root string) string { return filepath.Join(root, p.OS()) }

// Dir returns the parent of p, or "." for entries directly under the root.
func (p RelPath) Dir() RelPath { return RelPath(path.Dir(string(p))) }

// Base returns the last element of p.
func (p RelPath) Base() string { return path.Base(string(p)) }

// Join appends name to p. Joining onto "." yields name itself.
func Join(dir RelPath, name string) RelPath {
	if dir == "" || dir == "." {
		return RelPath(name)
	}
	return RelPath(path.Join(string(dir), name))
}

// Set is a value-like set of relative paths.
type Set map[RelPath]struct{}

// NewSet builds a set from paths.
func NewSet(paths ...RelPath) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts p.
func (s Set) Add(p RelPath) { s[p] = struct{}{} }

// Has reports whether p is in s.
func (s Set) Has(p RelPath) bool {
	_, ok := s[p]
	return ok
}

// Minus returns the elements of s that are not in other, sorted.
func (s Set) Minus(other Set) []RelPath {
	out := make([]RelPath, 0)
	for p := range s {
		if !other.Has(p) {
			out = append(out, p)
		}
	}
	SortPaths(out)
	return out
}

// Sorted returns the elements in lexical order.
func (s Set) Sorted() []RelPath {
	out := make([]RelPath, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	SortPaths(out)
	return out
}

// SortPaths sorts lexically on path segments, so "a/b" sorts before "a-b".
func SortPaths(paths []RelPath) {
	sort.Slice(paths, func(i, j int) bool { return Less(paths[i], paths[j]) })
}

// Less orders two paths segment by segment.
func Less(a, b RelPath) bool {
	as := strings.Split(string(a), "/")
	bs := strings.Split(string(b), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}
