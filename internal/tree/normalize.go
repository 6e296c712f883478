// Package tree enumerates and orders the regular files of a directory tree.
package tree

import (
	"path/filepath"
	"strings"
)

// Normalize converts abs into a root-relative, forward-slash path with
// `.` and `..` components resolved lexically. It returns false when abs
// is not lexically inside root; no filesystem access is performed.
func Normalize(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return NormalizeRel(rel), true
}

// NormalizeRel lexically resolves a forward-slash relative path: empty and
// `.` components are dropped, `..` pops the last retained component.
// Already-normalized paths are returned unchanged.
func NormalizeRel(rel string) string {
	var parts []string
	for _, c := range strings.Split(rel, "/") {
		switch c {
		case "", ".":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "/")
}
