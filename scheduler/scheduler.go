// Package scheduler implements the refresh state machine which decides when
// to run the date command and what to display.
//
// All transitions are pure: each handler takes the current state and an event,
// and returns the new state along with the effects the host must perform. The
// host is expected to deliver events one at a time.
package scheduler

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pgaskin/whattime/config"
	"github.com/pgaskin/whattime/datetime"
	"golang.org/x/text/encoding/unicode"
)

// ErrorMarker is displayed when the date could not be obtained.
const ErrorMarker = "Plugin Error"

// Phase is the scheduler state.
type Phase int

const (
	AwaitingPermission Phase = iota
	Idle
	Refreshing
)

func (p Phase) String() string {
	switch p {
	case AwaitingPermission:
		return "awaiting_permission"
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// State is the mutable widget state.
type State struct {
	Phase          Phase
	LastUpdate     time.Time // zero forces a refresh on the next tick
	HasPermissions bool
	Output         string
}

// Machine contains the read-only inputs for transitions.
type Machine struct {
	config config.Config
	cmd    []string
	logger *slog.Logger
}

// New creates a Machine for c. If logger is not nil, it is used for debug logs.
func New(c config.Config, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Machine{
		config: c,
		cmd:    datetime.Command(c),
		logger: logger,
	}
}

// Command returns the command run on each refresh.
func (m *Machine) Command() []string {
	return m.cmd
}

// Load returns the initial state.
func (m *Machine) Load() (State, []Effect) {
	m.logger.Info("loaded", "config", m.config.String(), "command", m.cmd)
	return State{Phase: AwaitingPermission}, []Effect{
		RequestPermission{Permissions: []Permission{PermissionRunCommands}},
		Subscribe{Events: []EventType{EventTimer, EventPermissionResult, EventCommandResult}},
	}
}

// Update dispatches ev to the matching handler. Unknown events are ignored.
func (m *Machine) Update(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case PermissionResult:
		return m.OnPermission(s, ev)
	case Timer:
		return m.OnTimer(s, ev)
	case CommandResult:
		return m.OnCommandResult(s, ev)
	default:
		return s, nil
	}
}

// OnPermission refreshes immediately whether or not permission was granted, so
// the widget isn't blank until the first tick.
func (m *Machine) OnPermission(s State, ev PermissionResult) (State, []Effect) {
	if ev.Granted {
		m.logger.Debug("permission granted")
		s.HasPermissions = true
	} else {
		m.logger.Error("permission denied")
	}
	effects := []Effect{SetSelectable{Selectable: false}}
	s, effects = m.refresh(s, ev.At, effects)
	effects = append(effects, SetTimeout{After: m.config.Interval})
	return s, effects
}

// OnTimer refreshes if at least the configured interval has passed since the
// last one. The timeout is always re-armed.
func (m *Machine) OnTimer(s State, ev Timer) (State, []Effect) {
	var effects []Effect
	if elapsed := ev.Now.Sub(s.LastUpdate); elapsed >= m.config.Interval {
		s, effects = m.refresh(s, ev.Now, effects)
	} else {
		m.logger.Debug("too soon, not updating", "last_update", humanize.RelTime(s.LastUpdate, ev.Now, "ago", "from now"))
	}
	effects = append(effects, SetTimeout{After: m.config.Interval})
	return s, effects
}

// OnCommandResult renders the command output, or ErrorMarker if it failed.
func (m *Machine) OnCommandResult(s State, ev CommandResult) (State, []Effect) {
	s.Phase = Idle
	if ev.Success() {
		output := strings.TrimSpace(decode(ev.Stdout))
		if dt, err := datetime.Parse(output); err != nil {
			m.logger.Error("failed to parse command output", "output", output, "error", err)
			s.Output = ErrorMarker
		} else {
			s.Output = dt.Render(m.config)
			m.logger.Debug("command succeeded", "output", output, "rendered", s.Output)
		}
	} else {
		attrs := []any{"stderr", strings.TrimSpace(decode(ev.Stderr))}
		if ev.ExitCode != nil {
			attrs = append(attrs, "exit_code", *ev.ExitCode)
		}
		if ev.Err != nil {
			attrs = append(attrs, "error", ev.Err)
		}
		m.logger.Error("command failed", attrs...)
		s.Output = ErrorMarker
	}
	return s, []Effect{Render{}}
}

func (m *Machine) refresh(s State, now time.Time, effects []Effect) (State, []Effect) {
	if s.Phase == Refreshing {
		m.logger.Warn("previous command still running, not updating")
		return s, effects
	}
	m.logger.Debug("updating", "command", m.cmd)
	s.Phase = Refreshing
	s.LastUpdate = now
	return s, append(effects, RunCommand{Args: m.cmd})
}

// decode converts b to a string, replacing invalid UTF-8.
func decode(b []byte) string {
	buf, _ := unicode.UTF8.NewDecoder().Bytes(b)
	return string(buf)
}
