package pathutil

import (
	"unicode"
	"unicode/utf8"
)

// Match reports whether name matches the glob pattern, ignoring case.
//
// '*' matches any run of characters and '?' matches exactly one. No other
// metacharacters exist, so a pattern is never malformed. An empty pattern
// matches everything. The pattern applies to a single segment; callers pass
// the base name.
func Match(pattern, name string) bool {
	if pattern == "" {
		return true
	}

	// Iterative wildcard match with single-star backtracking.
	px, nx := 0, 0
	starPx, starNx := -1, -1
	for nx < len(name) {
		if px < len(pattern) {
			pc, pw := utf8.DecodeRuneInString(pattern[px:])
			nc, nw := utf8.DecodeRuneInString(name[nx:])
			switch {
			case pc == '*':
				starPx, starNx = px, nx
				px += pw
				continue
			case pc == '?' || foldRune(pc) == foldRune(nc):
				px += pw
				nx += nw
				continue
			}
		}
		if starPx < 0 {
			return false
		}
		// Let the last star swallow one more rune of name.
		_, nw := utf8.DecodeRuneInString(name[starNx:])
		starNx += nw
		px, nx = starPx+1, starNx
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}

func foldRune(r rune) rune {
	return unicode.ToLower(r)
}
