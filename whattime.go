// Package whattime runs the date/time status widget as a standalone program,
// acting as the host for the refresh state machine.
//
// The host owns a single event loop. Timers, command results, and any extra
// notifications are queued on a channel and handed to the state machine one at
// a time, and the effects it returns are carried out before the next event is
// dequeued.
package whattime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"time"

	"github.com/pgaskin/whattime/config"
	"github.com/pgaskin/whattime/scheduler"
)

// Name is used for the log file and the i3bar block.
const Name = "what-time"

// Options configures Run.
type Options struct {
	// Config is the widget configuration.
	Config config.Config

	// Logger is used for debug logs, if not nil.
	Logger *slog.Logger

	// Sink receives the display text on every repaint.
	Sink Sink

	// Runner runs the date command. If nil, ExecRunner is used.
	Runner Runner

	// Permit resolves permission requests. If nil, PermitInstalled is used.
	Permit func(scheduler.Permission, []string) bool

	// Notify is an optional source of additional host notifications (e.g.,
	// bar click events).
	Notify <-chan scheduler.Event

	// Resize is an optional source of repaint requests when the available
	// space changes.
	Resize <-chan struct{}
}

// Sink draws the display text.
type Sink interface {
	Paint(text string) error
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, args []string) scheduler.CommandResult
}

// RunnerFunc wraps a function in a Runner.
type RunnerFunc func(context.Context, []string) scheduler.CommandResult

func (fn RunnerFunc) Run(ctx context.Context, args []string) scheduler.CommandResult {
	return fn(ctx, args)
}

// ExecRunner runs commands directly without a shell. If Timeout is not zero,
// commands running longer than it are killed.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, args []string) scheduler.CommandResult {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := cmd.Output()

	res := scheduler.CommandResult{Stdout: stdout}
	if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
		code := cmd.ProcessState.ExitCode()
		res.ExitCode = &code
	}
	var xerr *exec.ExitError
	if errors.As(err, &xerr) {
		res.Stderr = xerr.Stderr
	}
	if res.ExitCode == nil {
		res.Err = err
	}
	return res
}

// PermitInstalled grants PermissionRunCommands if the command can be found.
func PermitInstalled(p scheduler.Permission, cmd []string) bool {
	if p != scheduler.PermissionRunCommands || len(cmd) == 0 {
		return false
	}
	_, err := exec.LookPath(cmd[0])
	return err == nil
}

// Run runs the widget until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Sink == nil {
		return errors.New("no sink")
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Permit == nil {
		opts.Permit = PermitInstalled
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		machine    = scheduler.New(opts.Config, logger)
		events     = make(chan scheduler.Event, 16)
		subscribed []scheduler.EventType
		timer      *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	send := func(ev scheduler.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	paint := func(text string) {
		if err := opts.Sink.Paint(text); err != nil {
			logger.Error("failed to paint", "error", err)
		}
	}

	apply := func(s scheduler.State, effects []scheduler.Effect) {
		for _, effect := range effects {
			switch effect := effect.(type) {
			case scheduler.RequestPermission:
				for _, p := range effect.Permissions {
					granted := opts.Permit(p, machine.Command())
					go send(scheduler.PermissionResult{Granted: granted, At: time.Now()})
				}
			case scheduler.Subscribe:
				subscribed = append(subscribed, effect.Events...)
			case scheduler.SetSelectable:
				// not focusable anyway
			case scheduler.RunCommand:
				go func(args []string) {
					var res scheduler.CommandResult
					func() {
						defer func() {
							if p := recover(); p != nil {
								res = scheduler.CommandResult{Err: fmt.Errorf("panic: %v", p)}
							}
						}()
						res = opts.Runner.Run(ctx, args)
					}()
					send(res)
				}(effect.Args)
			case scheduler.SetTimeout:
				if timer == nil {
					timer = time.AfterFunc(effect.After, func() {
						send(scheduler.Timer{Now: time.Now()})
					})
				} else {
					timer.Reset(effect.After)
				}
			case scheduler.Render:
				paint(s.Output)
			}
		}
	}

	update := func(s scheduler.State, ev scheduler.Event) (ns scheduler.State, effects []scheduler.Effect) {
		defer func() {
			if p := recover(); p != nil {
				logger.Error("recovered from panic", "panic", p)
				ns = s
				ns.Phase = scheduler.Idle
				ns.Output = scheduler.ErrorMarker
				effects = []scheduler.Effect{scheduler.Render{}}
			}
		}()
		return machine.Update(s, ev)
	}

	s, effects := machine.Load()
	apply(s, effects)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if t, ok := eventType(ev); ok && !slices.Contains(subscribed, t) {
				logger.Debug("dropping unsubscribed event", "type", t)
				continue
			}
			s, effects = update(s, ev)
			apply(s, effects)
		case ev, ok := <-opts.Notify:
			if !ok {
				opts.Notify = nil
				continue
			}
			s, effects = update(s, ev)
			apply(s, effects)
		case _, ok := <-opts.Resize:
			if !ok {
				opts.Resize = nil
				continue
			}
			paint(s.Output)
		}
	}
}

func eventType(ev scheduler.Event) (scheduler.EventType, bool) {
	switch ev.(type) {
	case scheduler.Timer:
		return scheduler.EventTimer, true
	case scheduler.PermissionResult:
		return scheduler.EventPermissionResult, true
	case scheduler.CommandResult:
		return scheduler.EventCommandResult, true
	}
	return 0, false
}
