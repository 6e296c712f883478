// Package ignore compiles glob ignore patterns into a single matcher
// applied to root-relative, forward-slash paths.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PatternError reports a malformed glob pattern at compile time.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("ignore: invalid pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

// Ruleset is a compiled set of ignore patterns. A path is ignored when it
// matches any pattern, so the order patterns were loaded in does not affect
// matching. Match is read-only and safe for concurrent use.
type Ruleset struct {
	patterns []string
}

// Compile validates every pattern and builds a Ruleset. Backslash
// separators are normalized to forward slashes before validation.
// Compilation fails fast on the first malformed pattern; no partial
// Ruleset is returned.
func Compile(patterns []string) (*Ruleset, error) {
	compiled := make([]string, 0, len(patterns))
	for _, p := range patterns {
		pat := strings.ReplaceAll(p, `\`, "/")
		if !doublestar.ValidatePattern(pat) {
			return nil, &PatternError{Pattern: p, Err: doublestar.ErrBadPattern}
		}
		compiled = append(compiled, pat)
	}
	return &Ruleset{patterns: compiled}, nil
}

// Match reports whether rel (root-relative, forward-slash separated)
// matches any compiled pattern.
func (rs *Ruleset) Match(rel string) bool {
	for _, pat := range rs.patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (rs *Ruleset) Len() int { return len(rs.patterns) }

// LoadFile reads glob patterns from a plain-text file, one per line.
// Blank lines and lines starting with '#' are comments. Lines starting
// with '!' (gitignore-style negation) are recognized but dropped:
// negations are intentionally unsupported.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ignore: open pattern file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ignore: read pattern file %q: %w", path, err)
	}
	return patterns, nil
}
