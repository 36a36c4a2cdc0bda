package archive

import (
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/meigma/archivefs/internal/pathutil"
)

// Index provides case-insensitive access to a container's entries.
//
// Entries are sorted by folded path, enabling O(log n) lookups and prefix
// scans. Each entry remembers its position in the slice given to NewIndex so
// formats can keep their own per-entry data in a parallel slice.
type Index struct {
	items []indexItem
}

type indexItem struct {
	key   string
	pos   int
	entry Entry
}

// NewIndex builds an index over entries.
//
// Entry names are normalized to slash form. When two entries fold to the same
// path, the later one in entries wins.
func NewIndex(entries []Entry) *Index {
	items := make([]indexItem, 0, len(entries))
	for i, e := range entries {
		e.Name = pathutil.Normalize(e.Name)
		if e.Name == "" {
			continue
		}
		items = append(items, indexItem{key: pathutil.Fold(e.Name), pos: i, entry: e})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key < items[j].key
	})

	// Collapse duplicates; the stable sort keeps the latest one last.
	out := items[:0]
	for i, it := range items {
		if i+1 < len(items) && items[i+1].key == it.key {
			continue
		}
		out = append(out, it)
	}
	return &Index{items: out}
}

// Len returns the number of entries in the index.
func (idx *Index) Len() int {
	return len(idx.items)
}

// Lookup returns the entry for name and its position in the slice passed to
// NewIndex.
func (idx *Index) Lookup(name string) (Entry, int, bool) {
	key := pathutil.Key(name)
	i := sort.Search(len(idx.items), func(i int) bool {
		return idx.items[i].key >= key
	})
	if i < len(idx.items) && idx.items[i].key == key {
		return idx.items[i].entry, idx.items[i].pos, true
	}
	return Entry{}, 0, false
}

// Entries returns a copy of all entries in folded path order.
func (idx *Index) Entries() []Entry {
	return slices.Collect(idx.All())
}

// All returns an iterator over all entries in folded path order.
func (idx *Index) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, it := range idx.items {
			if !yield(it.entry) {
				return
			}
		}
	}
}

// WithPrefix returns an iterator over entries below the directory dir.
func (idx *Index) WithPrefix(dir string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		prefix := pathutil.Key(dir)
		if prefix != "" {
			prefix += "/"
		}
		start := sort.Search(len(idx.items), func(i int) bool {
			return idx.items[i].key >= prefix
		})
		for _, it := range idx.items[start:] {
			if !strings.HasPrefix(it.key, prefix) {
				return
			}
			if !yield(it.entry) {
				return
			}
		}
	}
}
