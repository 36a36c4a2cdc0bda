package archivefs

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/meigma/archivefs/internal/dirtree"
	"github.com/meigma/archivefs/internal/pathutil"
)

// OpenFile opens the file at the logical path name.
//
// A loose file at name is opened with mode and shadows any archived copy.
// Otherwise the owning archive's entry is opened read-only; requesting write
// access to it fails with ErrReadOnlyArchive. A path nobody provides fails
// with ErrFileNotFound, unless mode asks to create it, in which case it is
// created on the loose filesystem.
func (f *FileSystem) OpenFile(name string, mode Mode) (File, error) {
	p, err := logicalPath("open", name)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrClosed}
	}

	if native, info, ok := f.resolveLoose(p); ok && !info.IsDir() {
		return f.openLoose(native, mode)
	}
	if b, ok := f.tree.Lookup(p); ok {
		if mode.Writable() {
			return nil, &fs.PathError{Op: "open", Path: name, Err: ErrReadOnlyArchive}
		}
		return f.openArchived(name, p, b)
	}
	if f.loose != nil && mode&(ModeCreate|ModeOnlyNew) != 0 {
		return f.openLoose(looseName(p), mode)
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: ErrFileNotFound}
}

func (f *FileSystem) openLoose(native string, mode Mode) (File, error) {
	file, err := f.loose.OpenFile(native, mode.osFlags(), 0o644)
	if err != nil {
		return nil, err
	}
	return f.track(&looseFile{File: file, fsys: f}), nil
}

func (f *FileSystem) openArchived(name, p string, b dirtree.Binding) (File, error) {
	rec, ok := f.archives.Get(b.Archive)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: ErrFileNotFound}
	}
	entry, err := rec.Archive.Stat(b.Entry)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	stream, err := rec.Archive.Open(b.Entry)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	info := &entryInfo{info: FileInfo{
		Path:    p,
		Size:    stream.Size(),
		ModTime: entry.ModTime,
		Archive: rec.Path,
	}}
	return f.track(&archivedFile{stream: stream, fsys: f, name: name, info: info}), nil
}

// DoesFileExist reports whether a loose file or an archived entry exists at
// name.
func (f *FileSystem) DoesFileExist(name string) bool {
	p, err := logicalPath("stat", name)
	if err != nil {
		return false
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	if _, info, ok := f.resolveLoose(p); ok && !info.IsDir() {
		return true
	}
	_, ok := f.tree.Lookup(p)
	return ok
}

// GetArchiveFilenameForFile returns the archive that owns name, or "" when no
// archive provides it. A loose file at name does not change the answer.
func (f *FileSystem) GetArchiveFilenameForFile(name string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	owner, _ := f.tree.FindOwner(name)
	return owner
}

// GetFileInfo describes the file OpenFile would return for name.
func (f *FileSystem) GetFileInfo(name string) (FileInfo, error) {
	p, err := logicalPath("stat", name)
	if err != nil {
		return FileInfo{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: ErrClosed}
	}

	if _, info, ok := f.resolveLoose(p); ok && !info.IsDir() {
		return FileInfo{Path: p, Size: info.Size(), ModTime: info.ModTime()}, nil
	}
	if b, ok := f.tree.Lookup(p); ok {
		if rec, ok := f.archives.Get(b.Archive); ok {
			entry, err := rec.Archive.Stat(b.Entry)
			if err != nil {
				return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: err}
			}
			return FileInfo{Path: p, Size: entry.Size, ModTime: entry.ModTime, Archive: rec.Path}, nil
		}
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: name, Err: ErrFileNotFound}
}

// logicalPath normalizes name for a file operation.
func logicalPath(op, name string) (string, error) {
	p := pathutil.Normalize(name)
	if p == "" || !pathutil.Valid(p) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	return p, nil
}

// looseName converts a normalized logical path to a loose filesystem name.
func looseName(p string) string {
	if p == "" {
		return "."
	}
	return filepath.FromSlash(p)
}

// resolveLoose finds p on the loose filesystem, matching each segment
// case-insensitively when the exact spelling is absent.
func (f *FileSystem) resolveLoose(p string) (string, os.FileInfo, bool) {
	if f.loose == nil {
		return "", nil, false
	}
	if info, err := f.loose.Stat(looseName(p)); err == nil {
		return looseName(p), info, true
	}

	cur := ""
	var info os.FileInfo
	for _, seg := range pathutil.Split(p) {
		entries, err := afero.ReadDir(f.loose, looseName(cur))
		if err != nil {
			return "", nil, false
		}
		info = nil
		for _, e := range entries {
			if strings.EqualFold(e.Name(), seg) {
				cur = pathutil.Join(cur, e.Name())
				info = e
				break
			}
		}
		if info == nil {
			return "", nil, false
		}
	}
	if info == nil {
		return "", nil, false
	}
	return looseName(cur), info, true
}
