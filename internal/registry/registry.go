// Package registry tracks the archives a filesystem has opened, keyed by
// source path, in load order.
package registry

import (
	"errors"
	"fmt"
	"slices"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/dirtree"
	"github.com/meigma/archivefs/internal/pathutil"
)

// Mount records where an archive's entries are placed in the merged tree.
type Mount struct {
	Dest      string
	Placement dirtree.Placement
}

// Record is one registered archive.
type Record struct {
	// Path is the source path as given by the caller.
	Path string

	// Archive is the open handle.
	Archive archive.ArchiveFile

	// Mount is the placement used when the archive is merged.
	Mount Mount

	seq uint64
}

// Registry maps archive source paths to open handles. Paths compare
// case-insensitively. A Registry is not safe for concurrent use; the owning
// filesystem serializes access.
type Registry struct {
	records map[string]*Record
	seq     uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Len returns the number of registered archives.
func (r *Registry) Len() int {
	return len(r.records)
}

// Add registers a for path. An existing handle for the same path is closed
// and replaced; the new record becomes the most recently loaded.
// The returned error is from closing the replaced handle, if any.
func (r *Registry) Add(path string, a archive.ArchiveFile, m Mount) error {
	key := pathutil.Key(path)
	var err error
	if old, ok := r.records[key]; ok {
		if cerr := old.Archive.Close(); cerr != nil {
			err = fmt.Errorf("close replaced archive %s: %w", old.Path, cerr)
		}
	}
	r.seq++
	r.records[key] = &Record{Path: path, Archive: a, Mount: m, seq: r.seq}
	return err
}

// Get returns the record registered for path.
func (r *Registry) Get(path string) (*Record, bool) {
	rec, ok := r.records[pathutil.Key(path)]
	return rec, ok
}

// Remove closes and unregisters the archive for path. Removing an unknown
// path is a no-op and reports false.
func (r *Registry) Remove(path string) (bool, error) {
	key := pathutil.Key(path)
	rec, ok := r.records[key]
	if !ok {
		return false, nil
	}
	delete(r.records, key)
	if err := rec.Archive.Close(); err != nil {
		return true, fmt.Errorf("close archive %s: %w", rec.Path, err)
	}
	return true, nil
}

// RemoveAll closes every archive and empties the registry. Close errors are
// joined; every handle is closed regardless.
func (r *Registry) RemoveAll() error {
	var errs []error
	for _, rec := range r.Records() {
		if err := rec.Archive.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close archive %s: %w", rec.Path, err))
		}
	}
	clear(r.records)
	return errors.Join(errs...)
}

// Records returns every record in load order, oldest first.
func (r *Registry) Records() []*Record {
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *Record) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	return out
}
