// Command what-time shows the date and time from the date command,
// right-aligned on a single terminal line or as an i3bar block.
//
// Options are read from a flat YAML file (by default what-time/config.yaml in
// the user config directory) and can be overridden with -o key=value:
//
//	date_format: "%Y.%m.%d %a"  # empty to hide the date
//	time_format: "%H:%M"        # empty to hide the time
//	separator: " 〈"             # inserted before each field
//	interval_update: 60         # seconds between updates
//	log_level: debug            # enables logging to .what-time.log
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/pgaskin/whattime"
	"github.com/pgaskin/whattime/config"
	"github.com/pgaskin/whattime/scheduler"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		confPath = pflag.StringP("config", "c", "", "Path to the YAML options file")
		options  = pflag.StringArrayP("option", "o", nil, "Set an option (key=value), overriding the options file")
		i3bar    = pflag.Bool("i3bar", false, "Write an i3bar status stream instead of a terminal line")
		cols     = pflag.Int("cols", 0, "Terminal width to align to (default: detect)")
		timeout  = pflag.Duration("timeout", 0, "Kill the date command if it runs longer than this")
		watch    = pflag.Bool("watch", false, "Restart when the executable is rebuilt")
	)
	pflag.Parse()

	opts, err := readOptions(*confPath)
	if err != nil {
		return err
	}
	overrides := map[string]string{}
	for _, o := range *options {
		k, v, ok := strings.Cut(o, "=")
		if !ok {
			return fmt.Errorf("invalid option %q (expected key=value)", o)
		}
		overrides[k] = v
	}

	conf, err := config.Load(config.Merge(opts, overrides))
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(conf)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		go func() {
			if err := whattime.WatchExecutable(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "watcher: failed to watch own binary: %v\n", err)
			}
		}()
	}

	wo := whattime.Options{
		Config: conf,
		Logger: logger,
		Runner: whattime.ExecRunner{Timeout: *timeout},
	}
	if *i3bar {
		notify := make(chan scheduler.Event, 16)
		go func() {
			if err := whattime.ReadBarEvents(os.Stdin, notify); err != nil {
				logger.Warn("failed to read events", "error", err)
			}
		}()
		wo.Sink = whattime.NewBarSink(os.Stdout, slices.Contains(os.Environ(), whattime.RestartEnv))
		wo.Notify = notify
	} else {
		resize := make(chan struct{}, 1)
		winch := make(chan os.Signal, 1)
		signal.Notify(winch, syscall.SIGWINCH)
		go func() {
			for range winch {
				select {
				case resize <- struct{}{}:
				default:
				}
			}
		}()
		wo.Sink = whattime.NewTerminalSink(os.Stdout, *cols)
		wo.Resize = resize
		defer fmt.Println()
	}
	return whattime.Run(ctx, wo)
}

// readOptions reads the options file. The default one is optional.
func readOptions(name string) (map[string]string, error) {
	if name != "" {
		return config.ReadFile(name)
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, nil
	}
	opts, err := config.ReadFile(filepath.Join(dir, whattime.Name, "config.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return opts, err
}

// newLogger creates a logger writing to a file in the current directory if
// logging is enabled.
func newLogger(conf config.Config) (*slog.Logger, func() error, error) {
	if !conf.LogEnabled {
		return slog.New(slog.DiscardHandler), func() error { return nil }, nil
	}
	f, err := os.Create("." + whattime.Name + ".log")
	if err != nil {
		return nil, nil, fmt.Errorf("create log file: %w", err)
	}
	var (
		level   slog.Level
		invalid bool
	)
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		level, invalid = slog.LevelDebug, true
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: level,
	}))
	if invalid {
		logger.Warn("invalid log level, using debug", "log_level", conf.LogLevel)
	}
	logger.Info("logging initialized", "started", time.Now().Format(time.RFC3339))
	return logger, f.Close, nil
}
