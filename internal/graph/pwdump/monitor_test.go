package pwdump

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph"
	"github.com/Iron-Ham/mediaidle/internal/testutil"
)

func recvBatch(t *testing.T, m *Monitor) (graph.Batch, bool) {
	t.Helper()
	select {
	case b, ok := <-m.Updates():
		return b, ok
	case <-time.After(testutil.DefaultTimeout):
		t.Fatal("timed out waiting for a batch")
		return graph.Batch{}, false
	}
}

func TestMonitor_StreamsBatches(t *testing.T) {
	testutil.SkipIfNoBinary(t, "sh")

	script := `printf '%s\n' '[{"id":45,"type":"PipeWire:Interface:Node","info":{"props":{"media.class":"Stream/Output/Audio"}}}]' '[{"id":45,"info":null}]'`
	m := New(Options{Command: "sh", Args: []string{"-c", script}})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Close()

	first, ok := recvBatch(t, m)
	if !ok || !first.Initial || len(first.Events) != 1 {
		t.Fatalf("first batch = %+v (ok=%v)", first, ok)
	}
	second, ok := recvBatch(t, m)
	if !ok || second.Initial || second.Events[0].Op != graph.OpRemove {
		t.Fatalf("second batch = %+v (ok=%v)", second, ok)
	}

	if _, ok := recvBatch(t, m); ok {
		t.Fatal("updates should close when the stream ends")
	}
	err := m.Err()
	if !errors.Is(err, errors.ErrProviderLost) {
		t.Errorf("Err() = %v, want ErrProviderLost", err)
	}
	if errors.GetSeverity(err) != errors.SeverityWarning || !errors.IsRetryable(err) {
		t.Errorf("stream end should be a retryable warning, got severity %v", errors.GetSeverity(err))
	}
}

func TestMonitor_ErrIncludesStderr(t *testing.T) {
	testutil.SkipIfNoBinary(t, "sh")

	m := New(Options{Command: "sh", Args: []string{"-c", "echo 'failed to connect: Host is down' >&2; exit 1"}})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Close()

	if _, ok := recvBatch(t, m); ok {
		t.Fatal("expected no batches")
	}
	err := m.Err()
	if err == nil || !strings.Contains(err.Error(), "Host is down") {
		t.Errorf("Err() = %v, want stderr tail", err)
	}
}

func TestMonitor_StartFailure(t *testing.T) {
	m := New(Options{Command: "mediaidle-no-such-pw-dump"})
	err := m.Start(context.Background())
	if !errors.Is(err, errors.ErrProviderConnect) {
		t.Fatalf("Start() = %v, want ErrProviderConnect", err)
	}
	if errors.ExitCode(err) != errors.ExitProvider {
		t.Errorf("ExitCode = %d, want %d", errors.ExitCode(err), errors.ExitProvider)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() after failed Start = %v", err)
	}
}

func TestMonitor_CloseStopsSubscription(t *testing.T) {
	testutil.SkipIfNoBinary(t, "sh")

	// Emits the initial set, then blocks like pw-dump --monitor does.
	script := `printf '%s\n' '[]'; exec sleep 30`
	m := New(Options{Command: "sh", Args: []string{"-c", script}})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if b, ok := recvBatch(t, m); !ok || !b.Initial {
		t.Fatalf("initial batch = %+v (ok=%v)", b, ok)
	}

	done := make(chan struct{})
	go func() {
		m.Close()
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(testutil.DefaultTimeout):
		t.Fatal("Close did not return")
	}

	if err := m.Err(); err != nil {
		t.Errorf("Err() after Close = %v, want nil", err)
	}
}

func TestMonitor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(Options{Command: "sh"})
	if err := m.Start(ctx); err == nil {
		t.Error("Start with a canceled context should fail")
	}
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(5)
	tb.Write([]byte("abc"))
	tb.Write([]byte("defgh"))
	if got := tb.String(); got != "defgh" {
		t.Errorf("String() = %q, want defgh", got)
	}
}
