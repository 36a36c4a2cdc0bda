// Package pathutil provides path handling for logical archive paths.
//
// Logical paths accept either '/' or '\' as separator and are compared
// case-insensitively. The canonical form has '/' separators, no leading or
// trailing separator and no empty or "." segments. The root is "".
package pathutil

import (
	"strings"
)

// Normalize converts a user-provided logical path to canonical form.
//
// It performs the following transformations:
//   - Converts backslashes: `data\maps\a.map` → "data/maps/a.map"
//   - Strips leading and trailing separators: "/ui/" → "ui"
//   - Collapses consecutive separators: "ui//menu.xml" → "ui/menu.xml"
//   - Drops "." segments: "./ui/./menu.xml" → "ui/menu.xml"
//   - Converts the root to the empty string: "/" → ""
//
// ".." segments are preserved and rejected by callers via Valid.
// Case is preserved; use Fold to build comparison keys.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	if !strings.Contains(p, "//") && !strings.Contains(p, "./") && !strings.HasSuffix(p, "/.") {
		return p
	}

	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return strings.Join(result, "/")
}

// Valid reports whether a normalized path stays inside the namespace root.
func Valid(p string) bool {
	for _, seg := range Split(p) {
		if seg == ".." {
			return false
		}
	}
	return true
}

// Fold returns the case-insensitive comparison key for a normalized path or
// segment.
func Fold(p string) string {
	return strings.ToLower(p)
}

// Key normalizes and folds p in one step.
func Key(p string) string {
	return Fold(Normalize(p))
}

// Split returns the segments of a normalized path. The root has no segments.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// Join joins normalized path elements, skipping empty ones.
func Join(elem ...string) string {
	var b strings.Builder
	for _, e := range elem {
		if e == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(e)
	}
	return b.String()
}

// Base returns the last segment of a normalized path.
// The root has an empty base.
func Base(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Dir returns everything but the last segment of a normalized path.
func Dir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

// Compare orders paths case-insensitively, falling back to byte order so
// that the result is total and independent of insertion order.
func Compare(a, b string) int {
	if c := strings.Compare(Fold(a), Fold(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// EqualFold reports whether a and b name the same logical path once
// normalized.
func EqualFold(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}
