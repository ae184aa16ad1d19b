package scheduler

import "time"

// Event is a notification from the host. Events other than the ones defined
// in this package are ignored by Update.
type Event any

// PermissionResult is delivered once the host has resolved RequestPermission.
type PermissionResult struct {
	Granted bool
	At      time.Time
}

// Timer is delivered when a timeout set by SetTimeout elapses.
type Timer struct {
	Now time.Time
}

// CommandResult is delivered when a command started by RunCommand exits. A nil
// ExitCode means the command could not be run to completion, in which case Err
// may describe why.
type CommandResult struct {
	ExitCode *int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

// Success checks whether the command exited with a zero status.
func (r CommandResult) Success() bool {
	return r.ExitCode != nil && *r.ExitCode == 0
}

// EventType identifies an event for Subscribe.
type EventType int

const (
	EventTimer EventType = iota
	EventPermissionResult
	EventCommandResult
)

// Permission is a host capability.
type Permission int

const (
	PermissionRunCommands Permission = iota
)

// Effect is an action the host must perform after a transition.
type Effect interface {
	effect()
}

// RequestPermission asks the host for capabilities. The host responds with a
// PermissionResult.
type RequestPermission struct {
	Permissions []Permission
}

// Subscribe asks the host to deliver the specified events.
type Subscribe struct {
	Events []EventType
}

// SetSelectable changes whether the host lets the user focus the widget.
type SetSelectable struct {
	Selectable bool
}

// RunCommand asks the host to run a command asynchronously. The host responds
// with a CommandResult.
type RunCommand struct {
	Args []string
}

// SetTimeout asks the host to deliver a Timer after the duration.
type SetTimeout struct {
	After time.Duration
}

// Render asks the host to repaint using State.Output.
type Render struct{}

func (RequestPermission) effect() {}
func (Subscribe) effect()         {}
func (SetSelectable) effect()     {}
func (RunCommand) effect()        {}
func (SetTimeout) effect()        {}
func (Render) effect()            {}
