package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gogpu/bind"
)

const defaultDebounce = 100 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var (
		o        runOptions
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch <scene.yaml>",
		Short: "Run a scene again every time the file is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchScene(ctx, cmd.OutOrStdout(), args[0], o, debounce)
		},
	}
	o.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet time after a change before re-running")
	return cmd
}

// watchScene runs the scene once and then after every burst of writes to
// path, until ctx is done. Run errors are printed, not returned.
func watchScene(ctx context.Context, w io.Writer, path string, o runOptions, debounce time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often save by replacing the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	name := filepath.Clean(path)

	runOnce := func() {
		if err := runScene(ctx, w, path, o); err != nil {
			_, _ = fmt.Fprintf(w, "error: %v\n", err)
		}
	}
	runOnce()

	rerun := make(chan struct{}, 1)
	trigger := func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	}
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, trigger)
		case <-rerun:
			runOnce()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			bind.Logger().Warn("binddemo: watch error", "path", path, "err", err)
		}
	}
}
