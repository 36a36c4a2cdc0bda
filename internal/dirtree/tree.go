// Package dirtree implements the merged directory index over every loaded
// archive.
//
// The tree maps directory segments to child nodes and file names to the
// archive that owns them. Lookups are case-insensitive: nodes are keyed by
// folded segment and remember the first spelling seen for display. A node
// exists only while some file is bound beneath it.
package dirtree

import (
	"slices"
	"strings"

	"github.com/meigma/archivefs/internal/pathutil"
)

// Placement controls where a merged archive's entries land in the tree.
type Placement int

const (
	// PlaceAtRoot places entries relative to the namespace root; the
	// destination passed to Merge is ignored.
	PlaceAtRoot Placement = iota

	// PlaceUnderDest places entries below the destination directory.
	PlaceUnderDest
)

func (p Placement) String() string {
	switch p {
	case PlaceAtRoot:
		return "root"
	case PlaceUnderDest:
		return "dest"
	default:
		return "unknown"
	}
}

// Policy decides which binding survives when a merge hits an existing path.
type Policy int

const (
	// LastWins replaces the existing owner with the incoming archive.
	LastWins Policy = iota

	// FirstWins keeps the existing owner and drops the incoming binding.
	FirstWins
)

func (p Policy) String() string {
	switch p {
	case LastWins:
		return "last-wins"
	case FirstWins:
		return "first-wins"
	default:
		return "unknown"
	}
}

// Binding records which archive provides a file and under which entry name.
type Binding struct {
	// Archive is the owning archive's identifier (its source path).
	Archive string

	// Entry is the entry name inside the archive.
	Entry string
}

// Conflict describes a merge that found the path already bound.
type Conflict struct {
	// Path is the logical path both archives provide.
	Path string

	// Kept is the binding that stayed in the tree.
	Kept Binding

	// Dropped is the binding that lost.
	Dropped Binding
}

// Result summarizes a Merge call.
type Result struct {
	// Bound is the number of entries that ended up owned by the archive.
	Bound int

	// Conflicts lists every path that was already bound by another archive.
	Conflicts []Conflict

	// Skipped lists entries that do not name a file inside the namespace.
	Skipped []string
}

type leaf struct {
	name    string
	binding Binding
}

// node is one directory level.
type node struct {
	name    string
	archive string
	dirs    map[string]*node
	files   map[string]*leaf
}

func newNode(name string) *node {
	return &node{
		name:  name,
		dirs:  make(map[string]*node),
		files: make(map[string]*leaf),
	}
}

// Tree is the merged directory index. A Tree is not safe for concurrent
// mutation; callers serialize writers.
type Tree struct {
	root  *node
	files int
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{root: newNode("")}
}

// Len returns the number of bound files.
func (t *Tree) Len() int {
	return t.files
}

// Reset discards every node and binding.
func (t *Tree) Reset() {
	t.root = newNode("")
	t.files = 0
}

// Merge binds every entry to archiveID.
//
// Each entry is an archive-relative path. With PlaceUnderDest the logical
// path is dest joined with the entry; with PlaceAtRoot dest is ignored.
// Entries that normalize to the root or escape it with ".." are skipped.
func (t *Tree) Merge(archiveID string, entries []string, dest string, placement Placement, policy Policy) Result {
	var res Result
	prefix := ""
	if placement == PlaceUnderDest {
		prefix = pathutil.Normalize(dest)
	}

	for _, entry := range entries {
		logical := pathutil.Join(prefix, pathutil.Normalize(entry))
		if pathutil.Base(logical) == "" || !pathutil.Valid(logical) {
			res.Skipped = append(res.Skipped, entry)
			continue
		}

		incoming := Binding{Archive: archiveID, Entry: entry}
		dir := t.root
		segs := pathutil.Split(logical)
		for _, seg := range segs[:len(segs)-1] {
			key := pathutil.Fold(seg)
			child, ok := dir.dirs[key]
			if !ok {
				child = newNode(seg)
				dir.dirs[key] = child
			}
			dir.archive = archiveID
			dir = child
		}
		dir.archive = archiveID

		base := segs[len(segs)-1]
		key := pathutil.Fold(base)
		existing, ok := dir.files[key]
		switch {
		case !ok:
			dir.files[key] = &leaf{name: base, binding: incoming}
			t.files++
			res.Bound++
		case existing.binding.Archive == archiveID:
			// Same archive listing a path twice: the later entry wins silently.
			existing.name = base
			existing.binding = incoming
		case policy == FirstWins:
			res.Conflicts = append(res.Conflicts, Conflict{Path: logical, Kept: existing.binding, Dropped: incoming})
		default:
			res.Conflicts = append(res.Conflicts, Conflict{Path: logical, Kept: incoming, Dropped: existing.binding})
			existing.name = base
			existing.binding = incoming
			res.Bound++
		}
	}
	return res
}

// find walks to the directory node for a normalized path.
func (t *Tree) find(dir string) (*node, bool) {
	n := t.root
	for _, seg := range pathutil.Split(dir) {
		child, ok := n.dirs[pathutil.Fold(seg)]
		if !ok {
			return nil, false
		}
		n = child
	}
	return n, true
}

// Lookup returns the binding for a logical file path.
func (t *Tree) Lookup(p string) (Binding, bool) {
	p = pathutil.Normalize(p)
	if p == "" {
		return Binding{}, false
	}
	dir, ok := t.find(pathutil.Dir(p))
	if !ok {
		return Binding{}, false
	}
	l, ok := dir.files[pathutil.Fold(pathutil.Base(p))]
	if !ok {
		return Binding{}, false
	}
	return l.binding, true
}

// FindOwner returns the archive that owns a logical file path.
func (t *Tree) FindOwner(p string) (string, bool) {
	b, ok := t.Lookup(p)
	return b.Archive, ok
}

// HasDir reports whether a logical directory exists. The root always exists.
func (t *Tree) HasDir(p string) bool {
	_, ok := t.find(pathutil.Normalize(p))
	return ok
}

// DirArchive returns the archive that most recently contributed to a
// directory node.
func (t *Tree) DirArchive(p string) (string, bool) {
	n, ok := t.find(pathutil.Normalize(p))
	if !ok {
		return "", false
	}
	return n.archive, true
}

// List returns files below subdir whose base name matches pattern.
//
// Paths are relative to subdir and sorted case-insensitively. Without
// recursive only subdir's own files are returned. A missing subdir yields
// nothing.
func (t *Tree) List(subdir, pattern string, recursive bool) []string {
	n, ok := t.find(pathutil.Normalize(subdir))
	if !ok {
		return nil
	}
	var out []string
	n.collect("", pattern, recursive, func(rel string, _ Binding) {
		out = append(out, rel)
	})
	slices.SortFunc(out, pathutil.Compare)
	return out
}

// Walk calls fn for every bound file in case-insensitive path order.
// Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(p string, b Binding) bool) {
	type item struct {
		path string
		b    Binding
	}
	var items []item
	t.root.collect("", "", true, func(rel string, b Binding) {
		items = append(items, item{rel, b})
	})
	slices.SortFunc(items, func(a, b item) int { return pathutil.Compare(a.path, b.path) })
	for _, it := range items {
		if !fn(it.path, it.b) {
			return
		}
	}
}

func (n *node) collect(rel, pattern string, recursive bool, visit func(string, Binding)) {
	for _, l := range n.files {
		if pathutil.Match(pattern, l.name) {
			visit(pathutil.Join(rel, l.name), l.binding)
		}
	}
	if !recursive {
		return
	}
	for _, child := range n.dirs {
		child.collect(pathutil.Join(rel, child.name), pattern, recursive, visit)
	}
}

// String renders the tree for debugging.
func (t *Tree) String() string {
	var b strings.Builder
	t.Walk(func(p string, bind Binding) bool {
		b.WriteString(p)
		b.WriteString(" <- ")
		b.WriteString(bind.Archive)
		b.WriteByte('\n')
		return true
	})
	return b.String()
}
