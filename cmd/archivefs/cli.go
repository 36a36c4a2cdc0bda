package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/archivefs"
	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/archive/stargz"
)

// cli is the command line of archivefs.
type cli struct {
	Version kong.VersionFlag

	LogLevel string `kong:"name=log-level,env=ARCHIVEFS_LOG_LEVEL,default=warn,enum='debug,info,warn,error',help='Set log level.'"`
	LogJSON  bool   `kong:"name=log-json,env=ARCHIVEFS_LOG_JSON,default=false,help='Enable JSON logging output.'"`

	Root       string            `kong:"name=root,type=path,env=ARCHIVEFS_ROOT,default=.,help='Loose filesystem root. Archives are looked up below it too.'"`
	ArchiveDir string            `kong:"name=archives,env=ARCHIVEFS_ARCHIVES,default=.,help='Directory below the root scanned for archives.'"`
	Filter     string            `kong:"name=filter,env=ARCHIVEFS_FILTER,default='*.big',help='Archive file name pattern.'"`
	Recurse    bool              `kong:"name=recurse,default=false,help='Scan subdirectories of the archive directory.'"`
	FirstWins  bool              `kong:"name=first-wins,default=false,help='Keep the first archive that provides a path instead of the last.'"`
	TOCDigests map[string]string `kong:"name=toc-digest,help='Expected eStargz TOC digest for an archive, as name=digest.'"`

	Ls       lsCmd       `kong:"cmd,help='List files below a directory.'"`
	Cat      catCmd      `kong:"cmd,help='Write a file to stdout.'"`
	Owner    ownerCmd    `kong:"cmd,help='Print the archive that owns a path.'"`
	Stat     statCmd     `kong:"cmd,help='Describe the file a path resolves to.'"`
	Archives archivesCmd `kong:"cmd,help='List the loaded archives in load order.'"`
}

// env is bound into every command's Run.
type env struct {
	fsys *archivefs.FileSystem
	out  io.Writer
}

type lsCmd struct {
	Dir       string `kong:"arg,optional,name=dir,help='Directory to list. Defaults to the root.'"`
	Pattern   string `kong:"name=pattern,short=p,default='*',help='File name pattern.'"`
	Recursive bool   `kong:"name=recursive,short=r,default=false,help='Descend into subdirectories.'"`
}

func (c *lsCmd) Run(e *env) error {
	for _, name := range e.fsys.GetFileListFromDir(c.Dir, "", c.Pattern, c.Recursive) {
		fmt.Fprintln(e.out, name)
	}
	return nil
}

type catCmd struct {
	Path string `kong:"arg,required,name=path,help='Logical path of the file.'"`
}

func (c *catCmd) Run(e *env) error {
	f, err := e.fsys.OpenFile(c.Path, archivefs.ModeRead|archivefs.ModeBinary)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(e.out, f)
	return err
}

type ownerCmd struct {
	Path string `kong:"arg,required,name=path,help='Logical path of the file.'"`
}

func (c *ownerCmd) Run(e *env) error {
	owner := e.fsys.GetArchiveFilenameForFile(c.Path)
	if owner == "" {
		return fmt.Errorf("%s: no archive provides this path", c.Path)
	}
	fmt.Fprintln(e.out, owner)
	return nil
}

type statCmd struct {
	Path string `kong:"arg,required,name=path,help='Logical path of the file.'"`
}

func (c *statCmd) Run(e *env) error {
	info, err := e.fsys.GetFileInfo(c.Path)
	if err != nil {
		return err
	}
	source := info.Archive
	if info.Loose() {
		source = "(loose)"
	}
	owner := e.fsys.GetArchiveFilenameForFile(c.Path)
	if owner == "" {
		owner = "-"
	}

	tw := tabwriter.NewWriter(e.out, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "path:\t%s\n", info.Path)
	fmt.Fprintf(tw, "size:\t%d\n", info.Size)
	if !info.ModTime.IsZero() {
		fmt.Fprintf(tw, "modified:\t%s\n", info.ModTime.UTC().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(tw, "source:\t%s\n", source)
	fmt.Fprintf(tw, "owner:\t%s\n", owner)
	return tw.Flush()
}

type archivesCmd struct{}

func (c *archivesCmd) Run(e *env) error {
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, a := range e.fsys.Archives() {
		line := fmt.Sprintf("%s\t%s\t%d", a.Name(), a.Format(), len(a.Entries()))
		if sa, ok := archive.Unwrap(a).(*stargz.Archive); ok {
			line += "\t" + sa.TOCDigest().String()
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

// stargzOptions converts --toc-digest values to format options.
func (c *cli) stargzOptions() ([]stargz.Option, error) {
	var opts []stargz.Option
	var errs []error
	for name, value := range c.TOCDigests {
		d, err := digest.Parse(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("toc digest for %s: %w", name, err))
			continue
		}
		opts = append(opts, stargz.WithTOCDigest(name, d))
	}
	return opts, errors.Join(errs...)
}

// newLogger builds the process logger from the logging flags.
func newLogger(w io.Writer, level string, json bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
