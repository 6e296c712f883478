package ignore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
)

// ---------------------------------------------------------------------------
// Compile tests
// ---------------------------------------------------------------------------

func TestCompile_Valid(t *testing.T) {
	rs, err := Compile([]string{"*.log", "build/**", "docs/*.md"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if rs.Len() != 3 {
		t.Errorf("Len = %d, want 3", rs.Len())
	}
}

func TestCompile_Empty(t *testing.T) {
	rs, err := Compile(nil)
	if err != nil {
		t.Fatalf("Compile(nil): %v", err)
	}
	if rs.Match("anything") {
		t.Error("empty ruleset matched a path")
	}
}

func TestCompile_InvalidPattern(t *testing.T) {
	_, err := Compile([]string{"*.log", "[unclosed"})
	if err == nil {
		t.Fatal("expected error for malformed pattern, got nil")
	}

	var pe *PatternError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a *PatternError", err)
	}
	if pe.Pattern != "[unclosed" {
		t.Errorf("PatternError.Pattern = %q, want %q", pe.Pattern, "[unclosed")
	}
	if !errors.Is(err, doublestar.ErrBadPattern) {
		t.Errorf("error %v does not wrap doublestar.ErrBadPattern", err)
	}
}

func TestCompile_BackslashNormalized(t *testing.T) {
	rs, err := Compile([]string{`build\out\*.o`})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !rs.Match("build/out/main.o") {
		t.Error("backslash pattern did not match forward-slash path")
	}
}

// ---------------------------------------------------------------------------
// Match tests
// ---------------------------------------------------------------------------

func TestMatch(t *testing.T) {
	rs, err := Compile([]string{"*.log", "build/**", "**/*.tmp"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cases := []struct {
		rel  string
		want bool
	}{
		{"app.log", true},
		{"sub/app.log", false}, // '*' does not cross separators
		{"build/out/main.o", true},
		{"cache.tmp", true},
		{"deep/nested/cache.tmp", true},
		{"main.go", false},
		{"README.md", false},
	}

	for _, tc := range cases {
		if got := rs.Match(tc.rel); got != tc.want {
			t.Errorf("Match(%q) = %v, want %v", tc.rel, got, tc.want)
		}
	}
}

// ---------------------------------------------------------------------------
// LoadFile tests
// ---------------------------------------------------------------------------

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns")
	content := "# comment line\n\n*.log\n!keep.log\n  build/**  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	patterns, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	want := []string{"*.log", "build/**"}
	if len(patterns) != len(want) {
		t.Fatalf("got %d patterns %v, want %d", len(patterns), patterns, len(want))
	}
	for i := range want {
		if patterns[i] != want[i] {
			t.Errorf("patterns[%d] = %q, want %q", i, patterns[i], want[i])
		}
	}
}

func TestLoadFile_NegationDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "patterns")
	if err := os.WriteFile(path, []byte("!important.txt\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	patterns, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(patterns) != 0 {
		t.Errorf("negation line survived: %v", patterns)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "no-such-file"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
