// Package helper supervises the external idle inhibitor helper process.
//
// The Supervisor keeps at most one helper alive. It starts the helper when
// no media is flowing and force-stops it as soon as media flows again, so
// the helper's idle timers only run while the session is quiet.
package helper

import (
	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/logging"
)

// Action describes what a call to Evaluate did.
type Action int

const (
	// ActionNone means the helper state already matched the activity count.
	ActionNone Action = iota
	// ActionStarted means the helper was launched.
	ActionStarted
	// ActionStartFailed means a launch was attempted and failed. The next
	// evaluation with zero activity retries.
	ActionStartFailed
	// ActionStopped means a running helper was terminated.
	ActionStopped
	// ActionWaiting means a start was held back because the previously
	// stopped helper has not exited yet.
	ActionWaiting
)

// String returns a human-readable name for the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionStarted:
		return "started"
	case ActionStartFailed:
		return "start_failed"
	case ActionStopped:
		return "stopped"
	case ActionWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Supervisor owns the lifecycle of a single helper process.
//
// Supervisor is not safe for concurrent use; the daemon drives it from a
// single goroutine.
type Supervisor struct {
	argv     []string
	launcher Launcher
	proc     Process
	// stopping is a helper that was asked to terminate but may still be
	// inside its grace period. No new helper starts until it exits.
	stopping Process
	logger   *logging.Logger
}

// NewSupervisor creates a Supervisor that launches argv through launcher.
// argv is copied and never changes afterwards.
func NewSupervisor(argv []string, launcher Launcher, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Supervisor{
		argv:     append([]string(nil), argv...),
		launcher: launcher,
		logger:   logger,
	}
}

// Argv returns a copy of the helper argument vector.
func (s *Supervisor) Argv() []string {
	return append([]string(nil), s.argv...)
}

// Running reports whether a live helper is held. A helper that exited on
// its own is dropped here.
func (s *Supervisor) Running() bool {
	s.reapStale()
	return s.proc != nil
}

// Pid returns the PID of the live helper, or 0.
func (s *Supervisor) Pid() int {
	if !s.Running() {
		return 0
	}
	return s.proc.Pid()
}

// Evaluate reconciles the helper with the number of active streams: a
// positive count stops a live helper, zero starts one if none is live.
func (s *Supervisor) Evaluate(activeStreams int) Action {
	s.reapStale()

	if activeStreams > 0 {
		if s.proc == nil {
			return ActionNone
		}
		s.stop("media active", "active_streams", activeStreams)
		return ActionStopped
	}

	if s.proc != nil {
		return ActionNone
	}
	if s.stopping != nil {
		s.logger.Debug("previous helper still exiting", "pid", s.stopping.Pid())
		return ActionWaiting
	}

	proc, err := s.launcher.Launch(s.argv)
	if err != nil {
		herr := errors.NewHelperError(errors.ErrHelperStart, err).WithArgv(s.argv)
		s.logger.Warn("failed to start helper", "error", herr.Error())
		return ActionStartFailed
	}
	s.proc = proc
	s.logger.Info("helper started", "pid", proc.Pid(), "argv", s.argv)
	return ActionStarted
}

// Shutdown force-kills the live helper and any helper still inside its
// grace period. It is a no-op when nothing is live, including on repeated
// calls.
func (s *Supervisor) Shutdown() {
	s.reapStale()

	if s.stopping != nil {
		proc := s.stopping
		s.stopping = nil
		if err := proc.Kill(); err != nil {
			s.logger.Warn("failed to kill exiting helper", "pid", proc.Pid(), "error", err.Error())
		}
	}

	if s.proc == nil {
		return
	}
	proc := s.proc
	s.proc = nil
	if err := proc.Kill(); err != nil {
		herr := errors.NewHelperError(errors.ErrHelperStop, err).WithPid(proc.Pid())
		s.logger.Warn("failed to stop helper", "pid", proc.Pid(), "reason", "shutdown", "error", herr.Error())
		return
	}
	s.logger.Info("helper stopped", "pid", proc.Pid(), "reason", "shutdown")
}

// stop terminates the current helper and parks it in s.stopping until it
// exits. Callers must ensure s.proc is non-nil.
func (s *Supervisor) stop(reason string, args ...any) {
	proc := s.proc
	s.proc = nil
	s.stopping = proc

	fields := append([]any{"pid", proc.Pid(), "reason", reason}, args...)
	if err := proc.Terminate(); err != nil {
		herr := errors.NewHelperError(errors.ErrHelperStop, err).WithPid(proc.Pid())
		s.logger.Warn("failed to stop helper", append(fields, "error", herr.Error())...)
		return
	}
	s.logger.Info("helper stopped", fields...)
}

// reapStale drops handles whose processes already exited.
func (s *Supervisor) reapStale() {
	if s.proc != nil && s.proc.Exited() {
		s.logger.Debug("helper exited on its own", "pid", s.proc.Pid())
		s.proc = nil
	}
	if s.stopping != nil && s.stopping.Exited() {
		s.stopping = nil
	}
}
