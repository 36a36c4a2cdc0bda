package archivefs

import (
	"log/slog"

	"github.com/spf13/afero"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/dirtree"
)

// Option configures a FileSystem.
type Option func(*FileSystem)

// ConflictPolicy decides which archive keeps a path provided by more than one.
type ConflictPolicy int

const (
	// LastLoadWins gives a contested path to the most recently merged archive.
	LastLoadWins ConflictPolicy = iota

	// FirstLoadWins keeps the archive that provided the path first.
	FirstLoadWins
)

func (p ConflictPolicy) String() string {
	return p.tree().String()
}

func (p ConflictPolicy) tree() dirtree.Policy {
	if p == FirstLoadWins {
		return dirtree.FirstWins
	}
	return dirtree.LastWins
}

// WithLooseFS sets the loose filesystem consulted before any archive.
// Passing nil disables the loose tier. The default is afero.NewOsFs().
func WithLooseFS(fsys afero.Fs) Option {
	return func(f *FileSystem) {
		f.loose = fsys
		f.looseSet = true
	}
}

// WithArchiveFS sets the filesystem archives are discovered and opened from.
// It defaults to the loose filesystem, or afero.NewOsFs() when the loose tier
// is disabled.
func WithArchiveFS(fsys afero.Fs) Option {
	return func(f *FileSystem) {
		f.archiveFS = fsys
	}
}

// WithLogger sets the logger for load, merge and close events.
// A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FileSystem) {
		f.logger = logger
	}
}

// WithOpener sets the format dispatcher used to open archives.
// The default is DefaultOpener.
func WithOpener(o *archive.Opener) Option {
	return func(f *FileSystem) {
		f.opener = o
	}
}

// WithLoadConcurrency limits how many archives LoadArchivesFromDir opens at
// once. Values < 1 open archives serially.
func WithLoadConcurrency(n int) Option {
	return func(f *FileSystem) {
		f.loadConcurrency = n
	}
}

// WithConflictPolicy sets how contested paths are resolved.
// The default is LastLoadWins.
func WithConflictPolicy(p ConflictPolicy) Option {
	return func(f *FileSystem) {
		f.policy = p
	}
}

// WithConflictHandler registers fn to observe merge conflicts.
//
// fn runs while the filesystem is locked for the merge and must not call
// back into it.
func WithConflictHandler(fn func(MergeConflict)) Option {
	return func(f *FileSystem) {
		f.onConflict = fn
	}
}

// WithConflictLogLevel sets the level merge conflicts are logged at.
// The default is slog.LevelWarn.
func WithConflictLogLevel(level slog.Level) Option {
	return func(f *FileSystem) {
		f.conflictLevel = level
	}
}

// WithMaxEntrySize limits how much of a compressed entry the default opener
// decodes into memory. Set limit to 0 to disable the limit. Ignored when
// WithOpener is used.
func WithMaxEntrySize(limit int64) Option {
	return func(f *FileSystem) {
		f.maxEntrySize = limit
	}
}
