package archivefs

import (
	"errors"
	"io"
	"io/fs"
	"sync/atomic"

	"github.com/spf13/afero"

	"github.com/meigma/archivefs/archive"
)

// File is a file returned by OpenFile.
//
// Files backed by an archive are read-only: Write fails with
// ErrReadOnlyArchive. Every File must be closed by the caller; CloseAllFiles
// and Close release any that are still open.
type File interface {
	fs.File
	io.Seeker
	io.Writer

	// Name returns the name the file was opened with.
	Name() string
}

// Interface compliance.
var (
	_ File = (*looseFile)(nil)
	_ File = (*archivedFile)(nil)
)

// looseFile is a file on the loose filesystem.
type looseFile struct {
	afero.File
	fsys   *FileSystem
	closed atomic.Bool
}

func (l *looseFile) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return &fs.PathError{Op: "close", Path: l.Name(), Err: fs.ErrClosed}
	}
	l.fsys.untrack(l)
	return l.File.Close()
}

// archivedFile streams an entry out of its owning archive.
type archivedFile struct {
	stream archive.Stream
	fsys   *FileSystem
	name   string
	info   fs.FileInfo
	closed atomic.Bool
}

func (a *archivedFile) Name() string { return a.name }

func (a *archivedFile) Stat() (fs.FileInfo, error) { return a.info, nil }

func (a *archivedFile) Read(p []byte) (int, error) {
	if a.closed.Load() {
		return 0, &fs.PathError{Op: "read", Path: a.name, Err: fs.ErrClosed}
	}
	return a.stream.Read(p)
}

func (a *archivedFile) Seek(offset int64, whence int) (int64, error) {
	if a.closed.Load() {
		return 0, &fs.PathError{Op: "seek", Path: a.name, Err: fs.ErrClosed}
	}
	return a.stream.Seek(offset, whence)
}

func (a *archivedFile) Write([]byte) (int, error) {
	return 0, &fs.PathError{Op: "write", Path: a.name, Err: ErrReadOnlyArchive}
}

func (a *archivedFile) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return &fs.PathError{Op: "close", Path: a.name, Err: fs.ErrClosed}
	}
	a.fsys.untrack(a)
	return a.stream.Close()
}

func (f *FileSystem) track(file File) File {
	f.filesMu.Lock()
	f.files[file] = struct{}{}
	f.filesMu.Unlock()
	return file
}

func (f *FileSystem) untrack(file File) {
	f.filesMu.Lock()
	delete(f.files, file)
	f.filesMu.Unlock()
}

// OpenFiles returns the number of files opened through f and not yet closed.
func (f *FileSystem) OpenFiles() int {
	f.filesMu.Lock()
	defer f.filesMu.Unlock()
	return len(f.files)
}

// CloseAllFiles closes every file returned by OpenFile that is still open.
// Close errors are joined.
func (f *FileSystem) CloseAllFiles() error {
	f.filesMu.Lock()
	open := make([]File, 0, len(f.files))
	for file := range f.files {
		open = append(open, file)
	}
	f.filesMu.Unlock()

	var errs []error
	for _, file := range open {
		// A file closed by its owner since the snapshot reports ErrClosed.
		if err := file.Close(); err != nil && !errors.Is(err, fs.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
