// Package dirsig computes a single deterministic 256-bit digest of a
// directory tree's contents, suitable for change detection, cache keys,
// and reproducibility checks.
//
// The digest is independent of traversal order, platform path separators,
// and filesystem iteration order: files are enumerated, sorted by their
// normalized root-relative path, and folded into an outer blake3 hash as
// framed records of path, per-file content digest, and optional metadata.
// Equal tree contents yield equal digests from any root location; any
// change to a non-ignored file's path, bytes, or (optionally) metadata
// changes the digest.
package dirsig

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dirsig/dirsig/internal/digest"
	"github.com/dirsig/dirsig/internal/ignore"
	"github.com/dirsig/dirsig/internal/tree"
)

// IgnoreFileName is the well-known ignore file auto-loaded from the root
// when Options.LoadIgnoreFile is set.
const IgnoreFileName = ".dirsigignore"

// Result is the outcome of scanning one tree.
type Result struct {
	Root   string            // canonicalized root the scan ran against
	Digest string            // tree digest, lowercase hex
	Files  map[string]string // normalized rel path -> content digest hex
}

// Hash computes the tree digest of root with opts, returning lowercase hex.
func Hash(root string, opts Options) (string, error) {
	return HashContext(context.Background(), root, opts)
}

// HashContext is Hash with cancellation. Cancelling ctx aborts the scan
// with the context's error; no partial digest is returned.
func HashContext(ctx context.Context, root string, opts Options) (string, error) {
	res, err := Scan(ctx, root, opts)
	if err != nil {
		return "", err
	}
	return res.Digest, nil
}

// Scan computes the tree digest of root and returns it together with the
// per-file content digests.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	absRoot := canonicalRoot(root)

	rules, err := compileRules(absRoot, opts)
	if err != nil {
		return nil, err
	}

	entries, err := tree.Enumerate(absRoot, opts.FollowSymlinks, rules, opts.Warn)
	if err != nil {
		return nil, err
	}

	tree.Order(entries, opts.CaseSensitivePaths)

	res, err := digest.Compose(ctx, entries, digest.Params{
		IncludeMetadata: opts.IncludeMetadata,
		CaseSensitive:   opts.CaseSensitivePaths,
		Concurrency:     opts.Concurrency,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Root: absRoot, Digest: res.Digest, Files: res.Files}, nil
}

// canonicalRoot resolves root for stable prefix stripping, falling back
// to the absolute (then the given) path when resolution fails.
func canonicalRoot(root string) string {
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// compileRules gathers patterns from the auto-loaded root ignore file,
// the configured pattern files, and the inline patterns, and compiles
// them into one matcher. Load order cannot affect matching (a match is a
// match against any pattern), so it is fixed only for diagnostics.
func compileRules(absRoot string, opts Options) (*ignore.Ruleset, error) {
	var patterns []string

	if opts.LoadIgnoreFile {
		path := filepath.Join(absRoot, IgnoreFileName)
		if isFile(path) {
			loaded, err := ignore.LoadFile(path)
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, loaded...)
		}
	}

	for _, path := range opts.IgnoreFiles {
		if !isFile(path) {
			continue
		}
		loaded, err := ignore.LoadFile(path)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, loaded...)
	}

	patterns = append(patterns, opts.IgnorePatterns...)

	return ignore.Compile(patterns)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
