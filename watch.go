package whattime

import (
	"context"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RestartEnv is set in the environment after WatchExecutable restarts the
// process.
const RestartEnv = "WHATTIME_RESTARTED=1"

// WatchExecutable re-executes the current binary when it is rebuilt, until ctx
// is cancelled. It only returns if the watch could not be set up or ctx is
// done.
func WatchExecutable(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(exe); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if ok && event.Has(fsnotify.Chmod) {
				// go build chmods it at the end of the build
				logger.Info("watcher: got chmod, restarting in 500ms", "exe", exe)
				time.Sleep(time.Millisecond * 500)
				if err := syscall.Exec(exe, os.Args, append(os.Environ(), RestartEnv)); err != nil {
					logger.Error("watcher: restart failed", "error", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if ok {
				logger.Warn("watcher: error", "error", err)
			}
		}
	}
}
