package tree

import "sort"

// Order sorts entries in place by normalized relative path. When
// caseSensitive is false both sides are folded with FoldASCII before
// comparison; the stored paths are never modified. Normalized paths are
// unique per filesystem path, so ties cannot occur.
func Order(entries []Entry, caseSensitive bool) {
	sort.Slice(entries, func(i, j int) bool {
		if caseSensitive {
			return entries[i].Rel < entries[j].Rel
		}
		return FoldASCII(entries[i].Rel) < FoldASCII(entries[j].Rel)
	})
}

// FoldASCII lowercases ASCII letters only. Non-ASCII case folding is out
// of scope; every other byte passes through unchanged.
func FoldASCII(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
