// Package pwdump observes the PipeWire graph by running pw-dump in monitor
// mode and decoding the JSON it streams.
//
// pw-dump prints the complete object set as one JSON array when it
// connects, then one array per change. Removed objects appear with a null
// info member.
package pwdump

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph"
	"github.com/Iron-Ham/mediaidle/internal/logging"
)

// Options configures a Monitor.
type Options struct {
	// Command is the pw-dump executable.
	Command string
	// Args make Command stream updates, typically --monitor --no-colors.
	Args []string
	// Logger receives diagnostic output. May be nil.
	Logger *logging.Logger
}

// Monitor runs a pw-dump subscription and exposes its output as batches of
// graph events.
type Monitor struct {
	opts   Options
	logger *logging.Logger

	cmd     *exec.Cmd
	stderr  *tailBuffer
	updates chan graph.Batch
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	err     error
	closing bool
	once    sync.Once
}

// New creates a Monitor. Nothing runs until Start.
func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Monitor{
		opts:    opts,
		logger:  logger,
		updates: make(chan graph.Batch),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start spawns the subscription process. A failure to spawn is reported as
// ErrProviderConnect. Canceling ctx kills the process.
func (m *Monitor) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, m.opts.Command, m.opts.Args...)
	m.stderr = newTailBuffer(4096)
	cmd.Stderr = m.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.NewProviderError("pipe", errors.ErrProviderConnect, err)
	}
	if err := cmd.Start(); err != nil {
		return errors.NewProviderError("spawn", errors.ErrProviderConnect, err)
	}
	m.cmd = cmd

	m.logger.Debug("provider started",
		"command", m.opts.Command,
		"args", strings.Join(m.opts.Args, " "),
		"pid", cmd.Process.Pid)

	go func() {
		defer close(m.done)
		defer close(m.updates)

		readErr := Decode(stdout, m.deliver)
		if readErr != nil {
			// Nobody reads stdout any more.
			_ = cmd.Process.Kill()
		}
		waitErr := cmd.Wait()
		m.finish(readErr, waitErr)
	}()

	return nil
}

// deliver hands a batch to the consumer unless the monitor is closing.
func (m *Monitor) deliver(b graph.Batch) error {
	select {
	case m.updates <- b:
		return nil
	case <-m.stop:
		return errStopped
	}
}

var errStopped = errors.New("monitor stopped")

func (m *Monitor) finish(readErr, waitErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closing {
		return
	}

	cause := readErr
	if cause == nil {
		cause = waitErr
	}
	if cause == nil {
		cause = fmt.Errorf("%s exited", m.opts.Command)
	}
	if tail := strings.TrimSpace(m.stderr.String()); tail != "" {
		cause = fmt.Errorf("%w: %s", cause, tail)
	}
	m.err = errors.NewProviderError("read", errors.ErrProviderLost, cause).
		WithSeverity(errors.SeverityWarning)
}

// Updates returns the batch stream. It is closed when the subscription
// ends, after which Err reports why.
func (m *Monitor) Updates() <-chan graph.Batch {
	return m.updates
}

// Err returns the reason the subscription ended, or nil if it is still
// running or was closed deliberately.
func (m *Monitor) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close stops the subscription process and waits for the reader to exit.
func (m *Monitor) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closing = true
		m.mu.Unlock()

		close(m.stop)
		if m.cmd != nil && m.cmd.Process != nil {
			_ = m.cmd.Process.Kill()
		}
	})
	if m.cmd != nil {
		<-m.done
	}
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
