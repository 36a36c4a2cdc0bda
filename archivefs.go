package archivefs

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"runtime"
	"sync"

	"github.com/spf13/afero"

	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/internal/dirtree"
	"github.com/meigma/archivefs/internal/registry"
)

// FileSystem is the unified view over loose files and loaded archives.
//
// Queries may run concurrently with each other. Loading and closing archives
// take an exclusive lock, so a merge is never observed half done.
type FileSystem struct {
	mu       sync.RWMutex
	tree     *dirtree.Tree
	archives *registry.Registry
	closed   bool

	filesMu sync.Mutex
	files   map[File]struct{}

	loose           afero.Fs
	looseSet        bool
	archiveFS       afero.Fs
	opener          *archive.Opener
	logger          *slog.Logger
	loadConcurrency int
	policy          ConflictPolicy
	onConflict      func(MergeConflict)
	conflictLevel   slog.Level
	maxEntrySize    int64
}

// Interface compliance.
var (
	_ fs.FS         = (*FileSystem)(nil)
	_ fs.StatFS     = (*FileSystem)(nil)
	_ fs.ReadFileFS = (*FileSystem)(nil)
)

// New creates an empty FileSystem. Archives are added with
// LoadArchivesFromDir, OpenArchiveFile or MountArchiveFile.
func New(opts ...Option) *FileSystem {
	f := &FileSystem{
		tree:            dirtree.New(),
		archives:        registry.New(),
		files:           make(map[File]struct{}),
		loadConcurrency: runtime.GOMAXPROCS(0),
		conflictLevel:   slog.LevelWarn,
		maxEntrySize:    archive.DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(f)
	}
	if !f.looseSet {
		f.loose = afero.NewOsFs()
	}
	if f.archiveFS == nil {
		f.archiveFS = f.loose
		if f.archiveFS == nil {
			f.archiveFS = afero.NewOsFs()
		}
	}
	if f.opener == nil {
		f.opener = DefaultOpener(f.maxEntrySize)
	}
	if f.loadConcurrency < 1 {
		f.loadConcurrency = 1
	}
	return f
}

// log returns the logger, falling back to a discard logger if nil.
func (f *FileSystem) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// Close closes every open file and archive and discards the merged tree.
// Later calls return ErrClosed.
func (f *FileSystem) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true

	err := errors.Join(f.CloseAllFiles(), f.archives.RemoveAll())
	f.tree.Reset()
	f.log().Debug("filesystem closed")
	return err
}

// merge folds rec's entries into the tree. Conflicts are reported only when
// notify is set so rebuilds stay quiet.
func (f *FileSystem) merge(rec *registry.Record, notify bool) dirtree.Result {
	entries := rec.Archive.Entries()
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}

	res := f.tree.Merge(rec.Path, names, rec.Mount.Dest, rec.Mount.Placement, f.policy.tree())
	for _, name := range res.Skipped {
		f.log().Warn("skipping archive entry outside the namespace", "archive", rec.Path, "entry", name)
	}
	if notify {
		for _, c := range res.Conflicts {
			f.conflict(c)
		}
	}
	f.log().Debug("merged archive",
		"archive", rec.Path,
		"format", rec.Archive.Format(),
		"bound", res.Bound,
		"conflicts", len(res.Conflicts),
	)
	return res
}

func (f *FileSystem) conflict(c dirtree.Conflict) {
	mc := MergeConflict{Path: c.Path, Winner: c.Kept.Archive, Previous: c.Dropped.Archive}
	f.log().Log(context.Background(), f.conflictLevel, "archive merge conflict",
		"path", mc.Path,
		"previous", mc.Previous,
		"winner", mc.Winner,
	)
	if f.onConflict != nil {
		f.onConflict(mc)
	}
}

// rebuild recreates the tree from every registered archive in load order.
func (f *FileSystem) rebuild() {
	f.tree.Reset()
	recs := f.archives.Records()
	for _, rec := range recs {
		f.merge(rec, false)
	}
	f.log().Debug("rebuilt directory tree", "archives", len(recs), "files", f.tree.Len())
}
