package helper

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Iron-Ham/mediaidle/internal/errors"
)

// Process is a handle to a launched helper.
type Process interface {
	// Pid returns the OS process ID.
	Pid() int
	// Exited reports whether the process has terminated. It never blocks.
	Exited() bool
	// Terminate requests an exit, forced unless the launcher has a grace
	// period. It never blocks waiting for the process to go away and is
	// safe to call more than once.
	Terminate() error
	// Kill sends SIGKILL immediately, regardless of any grace period. It
	// never blocks and is a no-op once the process has exited.
	Kill() error
}

// Launcher starts helper processes.
type Launcher interface {
	// Launch starts argv[0] with the remaining elements as arguments.
	Launch(argv []string) (Process, error)
}

// ExecLauncher launches helpers with os/exec. The helper inherits the
// daemon's standard streams and environment.
type ExecLauncher struct {
	// GracePeriod, when positive, makes Terminate send SIGTERM first and
	// SIGKILL only if the process is still alive after the period.
	GracePeriod time.Duration
}

// NewExecLauncher returns an ExecLauncher with the given grace period.
func NewExecLauncher(grace time.Duration) *ExecLauncher {
	return &ExecLauncher{GracePeriod: grace}
}

// Launch implements Launcher.
func (l *ExecLauncher) Launch(argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty argument vector")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{
		cmd:   cmd,
		grace: l.GracePeriod,
		done:  make(chan struct{}),
	}
	// Reap in the background so Exited can poll without blocking.
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	grace   time.Duration
	done    chan struct{}
	waitErr error

	termOnce sync.Once
	termErr  error
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) Terminate() error {
	p.termOnce.Do(func() {
		if p.Exited() {
			return
		}
		if p.grace <= 0 {
			p.termErr = ignoreFinished(p.cmd.Process.Kill())
			return
		}
		p.termErr = ignoreFinished(p.cmd.Process.Signal(syscall.SIGTERM))
		time.AfterFunc(p.grace, func() {
			_ = p.Kill()
		})
	})
	return p.termErr
}

func (p *execProcess) Kill() error {
	if p.Exited() {
		return nil
	}
	return ignoreFinished(p.cmd.Process.Kill())
}

func ignoreFinished(err error) error {
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
