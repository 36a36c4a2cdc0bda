package archivefs

import (
	"io"
	"io/fs"

	"github.com/meigma/archivefs/internal/pathutil"
)

// Open implements fs.FS.
//
// Open opens the named file for reading. Directories cannot be opened; use
// GetFileListFromDir to enumerate them.
func (f *FileSystem) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return f.OpenFile(name, ModeRead)
}

// Stat implements fs.StatFS.
//
// Directories present on the loose filesystem or in the merged tree report
// synthetic directory info.
func (f *FileSystem) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return &dirInfo{name: "."}, nil
	}

	info, err := f.GetFileInfo(name)
	if err == nil {
		return &entryInfo{info: info}, nil
	}
	if f.isDir(name) {
		return &dirInfo{name: pathutil.Base(name)}, nil
	}
	return nil, err
}

// ReadFile implements fs.ReadFileFS.
func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) || name == "." {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	file, err := f.OpenFile(name, ModeRead)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

func (f *FileSystem) isDir(name string) bool {
	p := pathutil.Normalize(name)

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	if _, info, ok := f.resolveLoose(p); ok && info.IsDir() {
		return true
	}
	return f.tree.HasDir(p)
}
