package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	c, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.Logger

	// The watcher runs even with no directories so they can be added over the API.
	w, syncer := newDirectoryWatcher(c, c.Config.Watch.Directories)
	watchCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(watchCtx); err != nil {
		return err
	}
	defer w.Stop()
	go func() {
		if err := w.Sync(watchCtx); err == nil {
			logger.Info("Initial sync done", zap.Any("summary", syncer.result()))
		}
	}()

	srv := server.NewServer(c.Engine, c.Indexer, c.Config, logger)
	srv.SetWatcher(w, c.ConfigPath)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
		return err
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
