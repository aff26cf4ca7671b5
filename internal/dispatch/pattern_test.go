package dispatch

import "testing"

func TestMatchPath(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"exact", "README.md", "README.md", true},
		{"exact mismatch", "README.md", "README.rst", false},
		{"star in segment", "a/*", "a/x.txt", true},
		{"star does not cross slash", "a/*", "a/b/x.txt", false},
		{"star suffix", "src/*.go", "src/main.go", true},
		{"star suffix mismatch", "src/*.go", "src/main.py", false},
		{"question mark", "a/file?.txt", "a/file1.txt", true},
		{"case sensitive", "a/X.txt", "a/x.txt", false},
		{"anchored not substring", "x.txt", "a/x.txt", false},
		{"subtree", "docs/**", "docs/guide/intro.md", true},
		{"subtree direct child", "docs/**", "docs/index.md", true},
		{"subtree mismatch", "docs/**", "src/index.md", false},
		{"subtree with star prefix", "a/*/**", "a/b/c/d.txt", true},
		{"bare double star", "/**", "anything/at/all", true},
		{"character class", "src/[ab].go", "src/a.go", true},
		{"empty pattern", "", "a/x.txt", false},
		{"empty path", "a/*", "", false},
		{"invalid pattern", "a/[", "a/x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchPath(tt.pattern, tt.path); got != tt.want {
				t.Errorf("MatchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}
