package archivefs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/dirtree"
	"github.com/meigma/archivefs/internal/pathutil"
	"github.com/meigma/archivefs/internal/registry"
)

// LoadArchivesFromDir opens every file under dir whose name matches filter
// and merges it into the tree.
//
// Candidates are merged in case-insensitive path order, so with LastLoadWins
// the archive that sorts last owns a contested path. Archives are opened
// concurrently (see WithLoadConcurrency) and merged under one exclusive lock.
// An archive that fails to open is logged, recorded in the report and
// skipped. The returned error is non-nil only if dir cannot be scanned or
// ctx is cancelled, in which case nothing is merged.
func (f *FileSystem) LoadArchivesFromDir(ctx context.Context, dir, filter string, recurse bool) (LoadReport, error) {
	paths, err := f.discover(dir, filter, recurse)
	if err != nil {
		return LoadReport{}, &fs.PathError{Op: "scan", Path: dir, Err: err}
	}

	opened := make([]archive.ArchiveFile, len(paths))
	failures := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.loadConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := f.openArchive(p)
			if err != nil {
				failures[i] = err
				return nil
			}
			opened[i] = a
			return nil
		})
	}
	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		closeAll(opened)
		return LoadReport{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		closeAll(opened)
		return LoadReport{}, ErrClosed
	}

	var report LoadReport
	var errs []error
	var added []*registry.Record
	needRebuild := false
	for i, p := range paths {
		if failures[i] != nil {
			f.log().Warn("skipping archive", "path", p, "error", failures[i])
			errs = append(errs, failures[i])
			continue
		}
		if _, exists := f.archives.Get(p); exists {
			needRebuild = true
		}
		if err := f.archives.Add(p, opened[i], registry.Mount{}); err != nil {
			f.log().Warn("close replaced archive", "path", p, "error", err)
		}
		rec, _ := f.archives.Get(p)
		added = append(added, rec)
		report.Loaded = append(report.Loaded, p)
	}

	// A replaced archive leaves stale bindings behind, so start over.
	if needRebuild {
		f.tree.Reset()
		for _, rec := range f.archives.Records() {
			notify := slices.Contains(added, rec)
			report.Conflicts += len(f.merge(rec, notify).Conflicts)
		}
	} else {
		for _, rec := range added {
			report.Conflicts += len(f.merge(rec, true).Conflicts)
		}
	}
	report.Failed = errors.Join(errs...)

	f.log().Info("loaded archives",
		"dir", dir,
		"filter", filter,
		"loaded", len(report.Loaded),
		"failed", len(errs),
		"files", f.tree.Len(),
	)
	return report, nil
}

// discover lists archive candidates under dir in case-insensitive order.
func (f *FileSystem) discover(dir, filter string, recurse bool) ([]string, error) {
	root := osPath(dir)
	var paths []string
	err := afero.Walk(f.archiveFS, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != root && !recurse {
				return filepath.SkipDir
			}
			return nil
		}
		if pathutil.Match(filter, info.Name()) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(paths, pathutil.Compare)
	return paths, nil
}

// openArchive opens and identifies the archive at p on the archive fs.
func (f *FileSystem) openArchive(p string) (archive.ArchiveFile, error) {
	file, err := f.archiveFS.Open(p)
	if err != nil {
		return nil, archiveOpenError(p, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, archiveOpenError(p, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, archiveOpenError(p, errIsDir)
	}
	a, err := f.opener.Open(p, file, info.Size())
	if err != nil {
		file.Close()
		return nil, archiveOpenError(p, err)
	}
	f.log().Debug("opened archive", "path", p, "format", a.Format(), "entries", len(a.Entries()))
	return a, nil
}

var errIsDir = errors.New("is a directory")

// osPath cleans a caller-supplied directory on the archive fs. Either
// separator is accepted; absolute paths stay absolute and "" is ".".
func osPath(dir string) string {
	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(dir, `\`, "/")))
}

func closeAll(archives []archive.ArchiveFile) {
	for _, a := range archives {
		if a != nil {
			_ = a.Close() //nolint:errcheck // discarding archives that were never registered
		}
	}
}

// OpenArchiveFile opens the archive at path and merges it at the root of the
// namespace. Re-opening a path replaces the previous handle.
//
// The returned handle stays owned by the FileSystem; release it with
// CloseArchiveFile rather than Close.
func (f *FileSystem) OpenArchiveFile(path string) (archive.ArchiveFile, error) {
	return f.openAndRegister(path, registry.Mount{Placement: dirtree.PlaceAtRoot})
}

// MountArchiveFile opens the archive at path and merges its entries below
// dest.
func (f *FileSystem) MountArchiveFile(path, dest string) (archive.ArchiveFile, error) {
	return f.openAndRegister(path, registry.Mount{Dest: dest, Placement: dirtree.PlaceUnderDest})
}

func (f *FileSystem) openAndRegister(path string, m registry.Mount) (archive.ArchiveFile, error) {
	a, err := f.openArchive(path)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		a.Close()
		return nil, ErrClosed
	}
	f.register(path, a, m)
	return a, nil
}

// LoadIntoDirTree registers an already open archive under its Name and
// merges it. With underDest the entries land below dest; otherwise dest is
// ignored and entries are placed at the root. The FileSystem takes
// ownership of a.
func (f *FileSystem) LoadIntoDirTree(a archive.ArchiveFile, dest string, underDest bool) error {
	m := registry.Mount{Placement: dirtree.PlaceAtRoot}
	if underDest {
		m = registry.Mount{Dest: dest, Placement: dirtree.PlaceUnderDest}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		a.Close()
		return ErrClosed
	}
	f.register(a.Name(), a, m)
	return nil
}

// register adds a to the registry and brings the tree up to date.
// Callers hold the write lock.
func (f *FileSystem) register(path string, a archive.ArchiveFile, m registry.Mount) {
	prev, exists := f.archives.Get(path)
	switch {
	case exists && prev.Archive == a:
		prev.Mount = m
	default:
		if err := f.archives.Add(path, a, m); err != nil {
			f.log().Warn("close replaced archive", "path", path, "error", err)
		}
	}

	rec, _ := f.archives.Get(path)
	if exists {
		f.rebuild()
		return
	}
	f.merge(rec, true)
}

// CloseArchiveFile closes the archive registered for path and rebuilds the
// tree from the remaining archives. Closing an unknown path is a no-op.
func (f *FileSystem) CloseArchiveFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	removed, err := f.archives.Remove(path)
	if removed {
		f.rebuild()
		f.log().Debug("closed archive", "path", path)
	}
	return err
}

// CloseAllArchives closes every archive and empties the tree.
func (f *FileSystem) CloseAllArchives() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.archives.RemoveAll()
	f.tree.Reset()
	f.log().Debug("closed all archives")
	return err
}

// Archives returns the registered archives in load order.
func (f *FileSystem) Archives() []archive.ArchiveFile {
	f.mu.RLock()
	defer f.mu.RUnlock()
	recs := f.archives.Records()
	out := make([]archive.ArchiveFile, len(recs))
	for i, rec := range recs {
		out[i] = rec.Archive
	}
	return out
}
