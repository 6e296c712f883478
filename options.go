package dirsig

// Options controls how a directory tree is hashed. Construct with
// DefaultOptions and override fields; an Options value is never mutated
// during hashing, so one value may serve concurrent scans.
type Options struct {
	// FollowSymlinks follows symlinked files and directories during the
	// walk. Link cycles are detected and descended into only once.
	FollowSymlinks bool

	// IncludeMetadata folds permission and modification-time bytes into
	// the digest, best effort per file.
	IncludeMetadata bool

	// CaseSensitivePaths controls both the sort key and the path bytes
	// hashed into each record. When false, paths are ASCII-folded for
	// comparison and framing; the underlying files are untouched.
	CaseSensitivePaths bool

	// IgnorePatterns are inline glob patterns, '/'-separated, matched
	// against root-relative paths.
	IgnorePatterns []string

	// IgnoreFiles are newline-delimited pattern files ('#' comments,
	// leading '!' lines dropped) loaded before hashing. Paths that do not
	// name a regular file are skipped.
	IgnoreFiles []string

	// LoadIgnoreFile auto-loads IgnoreFileName from the root when present.
	LoadIgnoreFile bool

	// Concurrency bounds parallel per-file content hashing; values <= 1
	// hash sequentially. The digest is identical either way.
	Concurrency int

	// Warn receives non-fatal skip diagnostics from the walk; nil
	// discards them.
	Warn func(path string, err error)
}

// DefaultOptions returns the standard configuration: sequential hashing,
// case-sensitive paths, no metadata, symlinks not followed, and the root
// ignore file auto-loaded.
func DefaultOptions() Options {
	return Options{
		CaseSensitivePaths: true,
		LoadIgnoreFile:     true,
		Concurrency:        1,
	}
}
