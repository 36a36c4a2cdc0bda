// Command archivefs inspects the merged view of a game directory and its
// archives.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"github.com/meigma/archivefs"
	"github.com/meigma/archivefs/archive"
	"github.com/meigma/archivefs/archive/big"
	"github.com/meigma/archivefs/archive/generic"
	"github.com/meigma/archivefs/archive/stargz"
	"github.com/meigma/archivefs/archive/zipfmt"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "archivefs: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("archivefs"),
		kong.Description("Inspect the merged view of loose files and game archives."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{
			"version": version,
		},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, c.LogLevel, c.LogJSON)
	stargzOpts, err := c.stargzOptions()
	if err != nil {
		return err
	}

	policy := archivefs.LastLoadWins
	if c.FirstWins {
		policy = archivefs.FirstLoadWins
	}
	fsys := archivefs.New(
		archivefs.WithLooseFS(afero.NewBasePathFs(afero.NewOsFs(), c.Root)),
		archivefs.WithLogger(logger),
		archivefs.WithConflictPolicy(policy),
		archivefs.WithOpener(archive.NewOpener(
			big.Format{},
			zipfmt.New(),
			stargz.New(stargzOpts...),
			generic.New(generic.WithContext(ctx)),
		)),
	)
	defer fsys.Close()

	report, err := fsys.LoadArchivesFromDir(ctx, c.ArchiveDir, c.Filter, c.Recurse)
	if err != nil {
		return fmt.Errorf("load archives: %w", err)
	}
	if report.Failed != nil {
		logger.Warn("some archives were skipped", "error", report.Failed)
	}
	logger.Debug("archives ready", "loaded", len(report.Loaded), "conflicts", report.Conflicts)

	return kctx.Run(&env{fsys: fsys, out: stdout})
}
