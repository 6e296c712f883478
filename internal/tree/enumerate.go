package tree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dirsig/dirsig/internal/ignore"
)

// Entry is one candidate regular file found during the walk.
type Entry struct {
	Rel string // normalized forward-slash path relative to the root
	Abs string // absolute filesystem path
}

// WarnFunc receives non-fatal diagnostics for entries skipped during the
// walk.
type WarnFunc func(path string, err error)

// Enumerate walks root and returns every non-ignored regular file.
// Symlinks are followed only when follow is set. An unreadable entry is
// reported to warn and skipped; only a failure on root itself aborts the
// walk. The order of the returned entries is unspecified; callers that
// need a stable order must use Order.
func Enumerate(root string, follow bool, rules *ignore.Ruleset, warn WarnFunc) ([]Entry, error) {
	if warn == nil {
		warn = func(string, error) {}
	}
	if follow {
		return enumerateFollow(root, rules, warn)
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return fmt.Errorf("tree: walk root: %w", walkErr)
			}
			warn(path, walkErr)
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if e, ok := candidate(root, path, rules); ok {
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// candidate normalizes path and applies the ignore rules. ok is false when
// the path normalizes outside root or matches an ignore pattern.
func candidate(root, path string, rules *ignore.Ruleset) (Entry, bool) {
	rel, ok := Normalize(root, path)
	if !ok || rel == "" {
		return Entry{}, false
	}
	if rules != nil && rules.Match(rel) {
		return Entry{}, false
	}
	return Entry{Rel: rel, Abs: path}, true
}

// enumerateFollow walks the tree resolving symlinks as it goes. Each
// directory is descended into at most once (by resolved path), so link
// cycles terminate.
func enumerateFollow(root string, rules *ignore.Ruleset, warn WarnFunc) ([]Entry, error) {
	var entries []Entry
	visited := make(map[string]bool)

	// markVisited records dir by its resolved path and reports whether it
	// had not been seen before.
	markVisited := func(dir string) bool {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			resolved = dir
		}
		if visited[resolved] {
			return false
		}
		visited[resolved] = true
		return true
	}

	var walk func(dir string, isRoot bool) error
	walk = func(dir string, isRoot bool) error {
		des, err := os.ReadDir(dir)
		if err != nil {
			if isRoot {
				return fmt.Errorf("tree: walk root: %w", err)
			}
			warn(dir, err)
			return nil
		}
		for _, d := range des {
			path := filepath.Join(dir, d.Name())
			info, err := os.Stat(path) // follows symlinks
			if err != nil {
				// Broken symlink or race with a concurrent delete.
				warn(path, err)
				continue
			}
			switch {
			case info.IsDir():
				if markVisited(path) {
					if err := walk(path, false); err != nil {
						return err
					}
				}
			case info.Mode().IsRegular():
				if e, ok := candidate(root, path, rules); ok {
					entries = append(entries, e)
				}
			}
		}
		return nil
	}

	markVisited(root)
	if err := walk(root, true); err != nil {
		return nil, err
	}
	return entries, nil
}
