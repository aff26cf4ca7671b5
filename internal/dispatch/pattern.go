package dispatch

import (
	"path"
	"strings"
)

// MatchPath reports whether a changed-file path matches a subscription
// pattern.
//
// Semantics, pinned here and by the tests rather than left to a library
// default: matching is case-sensitive and anchored at the full path relative
// to the repository root. `*` and `?` match within a single path segment and
// never cross `/`; character classes follow path.Match. A pattern ending in
// `/**` additionally matches every path under that prefix, at any depth.
// Invalid patterns match nothing.
func MatchPath(pattern, changed string) bool {
	pattern = strings.TrimSpace(pattern)
	changed = strings.TrimSpace(changed)
	if pattern == "" || changed == "" {
		return false
	}

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if prefix == "" {
			return true
		}
		if matched, err := path.Match(prefix, changed); err == nil && matched {
			return true
		}
		segs := strings.Count(prefix, "/") + 1
		parts := strings.SplitN(changed, "/", segs+1)
		if len(parts) <= segs {
			return false
		}
		matched, err := path.Match(prefix, strings.Join(parts[:segs], "/"))
		return err == nil && matched
	}

	matched, err := path.Match(pattern, changed)
	return err == nil && matched
}
