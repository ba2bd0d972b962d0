package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/cli"
	"github.com/hyperjump/chunkd/internal/extract"
	"github.com/hyperjump/chunkd/internal/indexer"
	"github.com/hyperjump/chunkd/internal/models"
	"github.com/hyperjump/chunkd/internal/server"
	"github.com/hyperjump/chunkd/internal/watcher"
)

var watchOpts struct {
	once   bool
	add    []string
	remove []string
	list   bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [directory...]",
	Short: "Keep the files of one or more directories in sync with the corpus",
	Long: `Ingests every supported file under the given directories (watch.directories from the
config when none are given), then re-ingests files as they change and deletes the documents
of removed files. Each file maps to one document whose id is derived from its path.

With --add, --remove or --list the directories of a running server are managed instead
(--server, or the configured listen address). The server saves the change to its config.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOpts.once, "once", false, "sync existing files and exit")
	watchCmd.Flags().StringSliceVar(&watchOpts.add, "add", nil, "add a directory to the running server's watch list")
	watchCmd.Flags().StringSliceVar(&watchOpts.remove, "remove", nil, "remove a directory from the running server's watch list")
	watchCmd.Flags().BoolVar(&watchOpts.list, "list", false, "list the running server's watched directories")
	rootCmd.AddCommand(watchCmd)
}

// fileSync adapts the indexer to watcher.Handler and counts outcomes.
type fileSync struct {
	idx    *indexer.Indexer
	ex     *extract.Extractor
	logger *zap.Logger

	mu      sync.Mutex
	summary cli.SyncSummary
}

func (f *fileSync) IndexFile(ctx context.Context, path string) error {
	res, err := f.idx.IndexFile(ctx, f.ex, path)
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case err != nil:
		f.summary.Failed++
		return err
	case res == nil:
		f.summary.Unchanged++
	default:
		f.summary.Indexed++
		f.logger.Info("File synced",
			zap.String("path", path),
			zap.String("document_id", res.Document.ID),
			zap.String("status", string(res.Stats.Status)))
	}
	return nil
}

func (f *fileSync) RemoveFile(ctx context.Context, path string) error {
	err := f.idx.RemoveFile(ctx, path)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	return err
}

func (f *fileSync) result() cli.SyncSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary
}

// newDirectoryWatcher builds a watcher over dirs that feeds c.Indexer. Files are filtered
// by watch.extensions, or by the formats the extractor understands when that is empty.
func newDirectoryWatcher(c *Components, dirs []string) (*watcher.Watcher, *fileSync) {
	ex := extract.NewExtractor()
	exts := c.Config.Watch.Extensions
	if len(exts) == 0 {
		exts = ex.Extensions()
	}
	syncer := &fileSync{idx: c.Indexer, ex: ex, logger: c.Logger}
	w := watcher.New(dirs, syncer,
		watcher.WithLogger(c.Logger),
		watcher.WithExtensions(exts),
		watcher.WithRecursive(c.Config.Watch.RecursiveOrDefault()),
	)
	return w, syncer
}

// manageServerWatch applies --add and --remove on the server, then prints its list.
func manageServerWatch(cmd *cobra.Command, f cli.OutputFormat) error {
	addr, err := watchServerURL()
	if err != nil {
		return err
	}
	client := server.NewClient(addr, nil)
	ctx := cmd.Context()

	dirs, err := client.WatchDirectories(ctx)
	if err != nil {
		return err
	}
	for _, d := range watchOpts.add {
		abs, err := filepath.Abs(d)
		if err != nil {
			return err
		}
		if dirs, err = client.AddWatchDirectory(ctx, abs); err != nil {
			return fmt.Errorf("add %s: %w", abs, err)
		}
	}
	for _, d := range watchOpts.remove {
		abs, err := filepath.Abs(d)
		if err != nil {
			return err
		}
		if dirs, err = client.RemoveWatchDirectory(ctx, abs); err != nil {
			return fmt.Errorf("remove %s: %w", abs, err)
		}
	}
	return cli.WriteWatchDirectories(cmd.OutOrStdout(), dirs, f)
}

func runWatch(cmd *cobra.Command, args []string) error {
	f, err := format()
	if err != nil {
		return err
	}
	if watchOpts.list || len(watchOpts.add) > 0 || len(watchOpts.remove) > 0 {
		if len(args) > 0 || watchOpts.once {
			return errors.New("--add, --remove and --list cannot be combined with directories or --once")
		}
		return manageServerWatch(cmd, f)
	}
	c, err := setup(cmd.Context(), !watchOpts.once)
	if err != nil {
		return err
	}
	defer c.Close()

	dirs := args
	if len(dirs) == 0 {
		dirs = c.Config.Watch.Directories
	}
	if len(dirs) == 0 {
		return fmt.Errorf("no directories to watch: pass them as arguments or set watch.directories")
	}

	ctx := cmd.Context()
	w, syncer := newDirectoryWatcher(c, dirs)
	if watchOpts.once {
		if err := w.Sync(ctx); err != nil {
			return err
		}
		return cli.WriteSyncSummary(cmd.OutOrStdout(), syncer.result(), f)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()
	if err := w.Sync(ctx); err != nil {
		return err
	}
	c.Logger.Info("Initial sync done", zap.Any("summary", syncer.result()))

	<-ctx.Done()
	c.Logger.Info("Shutting down...")
	return nil
}
