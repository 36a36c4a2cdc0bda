package archivefs

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors.
var (
	// ErrArchiveOpen is returned when an archive is missing, unreadable or
	// fails container validation.
	ErrArchiveOpen = errors.New("archivefs: cannot open archive")

	// ErrFileNotFound is returned when neither the loose filesystem nor any
	// archive provides a path. It matches fs.ErrNotExist.
	ErrFileNotFound error = &wrappedError{msg: "archivefs: file not found", err: fs.ErrNotExist}

	// ErrReadOnlyArchive is returned when write access is requested for a path
	// only an archive provides. It matches fs.ErrPermission.
	ErrReadOnlyArchive error = &wrappedError{msg: "archivefs: archived files are read-only", err: fs.ErrPermission}

	// ErrClosed is returned when the filesystem is used after Close. It matches
	// fs.ErrClosed.
	ErrClosed error = &wrappedError{msg: "archivefs: filesystem closed", err: fs.ErrClosed}
)

// wrappedError is a sentinel that also matches a standard fs error.
type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.err }

// archiveOpenError wraps a failure to open the archive at path.
func archiveOpenError(path string, err error) error {
	return &fs.PathError{Op: "open archive", Path: path, Err: fmt.Errorf("%w: %w", ErrArchiveOpen, err)}
}

// MergeConflict describes a path provided by more than one archive.
//
// Conflicts are expected during normal operation (patch archives exist to
// override base content). They are logged and passed to the handler set with
// WithConflictHandler; they are never returned as errors.
type MergeConflict struct {
	// Path is the logical path both archives provide.
	Path string

	// Winner is the archive that owns Path after the merge.
	Winner string

	// Previous is the archive whose binding was discarded.
	Previous string
}

// LoadReport summarizes a LoadArchivesFromDir call.
type LoadReport struct {
	// Loaded lists the archives merged, in merge order.
	Loaded []string

	// Failed joins the error of every archive that could not be opened.
	// Each one wraps ErrArchiveOpen. Nil when every archive loaded.
	Failed error

	// Conflicts counts the paths whose owner changed or was contested.
	Conflicts int
}
