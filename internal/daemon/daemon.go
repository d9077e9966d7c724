// Package daemon drives the evaluation loop: it keeps a graph registry
// current from the provider subscription and, once per interval, counts the
// active streams and lets the helper supervisor react.
//
// All state is owned by the goroutine running Run. Provider batches, timer
// ticks, and termination are serialized through one select loop, so nothing
// here needs a lock.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/mediaidle/internal/activity"
	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph"
	"github.com/Iron-Ham/mediaidle/internal/helper"
	"github.com/Iron-Ham/mediaidle/internal/logging"
)

// Provider is a graph subscription. pwdump.Monitor implements it.
type Provider interface {
	// Start begins the subscription. An error means the provider could not
	// be reached.
	Start(ctx context.Context) error
	// Updates delivers batches, the first marked Initial. It is closed when
	// the subscription ends.
	Updates() <-chan graph.Batch
	// Err explains why Updates was closed.
	Err() error
	// Close ends the subscription. It must be safe to call more than once.
	Close() error
}

// ProviderFactory creates a fresh, unstarted Provider. It is called once at
// startup and again for every reconnect.
type ProviderFactory func() Provider

// Supervisor reacts to the active stream count. helper.Supervisor
// implements it.
type Supervisor interface {
	Evaluate(activeStreams int) helper.Action
	Shutdown()
}

// Options configures a Daemon.
type Options struct {
	// Interval is the time between evaluation cycles. Must be positive.
	Interval time.Duration
	// ConnectTimeout bounds the wait for the initial object set at startup.
	// Zero waits indefinitely.
	ConnectTimeout time.Duration
	// Logger receives daemon logs. May be nil.
	Logger *logging.Logger
}

// Daemon owns the registry, the provider subscription, and the supervisor.
type Daemon struct {
	opts        Options
	newProvider ProviderFactory
	supervisor  Supervisor
	registry    *graph.Registry
	logger      *logging.Logger

	stage    Stage
	provider Provider
	updates  <-chan graph.Batch
	cycles   int

	// ticks overrides the interval ticker in tests.
	ticks <-chan time.Time
}

// New creates a Daemon.
func New(opts Options, newProvider ProviderFactory, supervisor Supervisor) (*Daemon, error) {
	if opts.Interval <= 0 {
		return nil, errors.NewUsageError("interval", fmt.Sprintf("must be positive, got %s", opts.Interval))
	}
	if newProvider == nil || supervisor == nil {
		return nil, errors.New("daemon: provider factory and supervisor are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Daemon{
		opts:        opts,
		newProvider: newProvider,
		supervisor:  supervisor,
		registry:    graph.NewRegistry(),
		logger:      logger,
		stage:       StageConnecting,
	}, nil
}

// Stage returns the current bootstrap stage. It is only meaningful on the
// goroutine running Run or after Run has returned.
func (d *Daemon) Stage() Stage {
	return d.stage
}

// Cycles returns how many evaluation cycles have run.
func (d *Daemon) Cycles() int {
	return d.cycles
}

// Run connects to the provider, waits for the initial object set, runs one
// evaluation immediately, and then one per interval until ctx is canceled.
//
// Run returns a ProviderError when the provider cannot be reached at
// startup. Cancellation returns nil. In every case a live helper is shut
// down before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.shutdown()

	if err := d.connect(ctx); err != nil {
		return err
	}
	if err := d.awaitInitial(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if err := d.advance(StageReady); err != nil {
		return err
	}
	d.logger.Info("watching media streams", "interval", d.opts.Interval.String())
	d.cycle()

	ticks := d.ticks
	if ticks == nil {
		ticker := time.NewTicker(d.opts.Interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("termination requested")
			return nil

		case b, ok := <-d.updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				d.providerLost()
				continue
			}
			d.applyBatch(b)

		case <-ticks:
			if d.provider == nil {
				d.reconnect(ctx)
			}
			d.cycle()
		}
	}
}

// advance moves to the next bootstrap stage.
func (d *Daemon) advance(to Stage) error {
	if !canTransition(d.stage, to) {
		return fmt.Errorf("daemon: invalid stage transition %s -> %s", d.stage, to)
	}
	d.logger.Debug("stage changed", "from", d.stage.String(), "to", to.String())
	d.stage = to
	return nil
}

// connect starts a provider subscription and enters Loading.
func (d *Daemon) connect(ctx context.Context) error {
	p := d.newProvider()
	if err := p.Start(ctx); err != nil {
		_ = p.Close()
		var perr *errors.ProviderError
		if !errors.As(err, &perr) {
			err = errors.NewProviderError("connect", errors.ErrProviderConnect, err)
		}
		return err
	}
	d.provider = p
	d.updates = p.Updates()
	return d.advance(StageLoading)
}

// awaitInitial blocks until the initial object set has been applied, the
// connect timeout fires, or the provider ends.
func (d *Daemon) awaitInitial(ctx context.Context) error {
	var timeout <-chan time.Time
	if d.opts.ConnectTimeout > 0 {
		timer := time.NewTimer(d.opts.ConnectTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timeout:
			return errors.NewProviderError("load", errors.ErrProviderTimeout,
				fmt.Errorf("no initial object set after %s", d.opts.ConnectTimeout))

		case b, ok := <-d.updates:
			if !ok {
				cause := d.provider.Err()
				if cause == nil {
					cause = errors.New("subscription ended")
				}
				return errors.NewProviderError("load", errors.ErrProviderConnect, cause)
			}
			d.applyBatch(b)
			if d.stage == StageWatching {
				return nil
			}
		}
	}
}

// applyBatch updates the registry. The first initial batch after a
// (re)connect completes Loading.
func (d *Daemon) applyBatch(b graph.Batch) {
	d.registry.ApplyBatch(b)
	d.logger.Debug("graph updated",
		"initial", b.Initial,
		"events", len(b.Events),
		"objects", d.registry.Len())

	if b.Initial && d.stage == StageLoading {
		_ = d.advance(StageWatching)
		if d.cycles > 0 {
			// Reconnected: resume cycles without waiting for startup.
			_ = d.advance(StageReady)
			d.logger.Info("provider reconnected", "objects", d.registry.Len())
		}
	}
}

// providerLost handles the subscription ending after startup. The registry
// is cleared so nothing is reported active until a new subscription
// delivers its initial set. Errors classified as warnings are logged at
// WARN, anything else at ERROR.
func (d *Daemon) providerLost() {
	err := d.provider.Err()
	if err == nil {
		err = errors.NewProviderError("read", errors.ErrProviderLost, errors.New("subscription ended")).
			WithSeverity(errors.SeverityWarning)
	}
	fields := []any{"error", err.Error(), "retryable", errors.IsRetryable(err)}
	if errors.GetSeverity(err) == errors.SeverityWarning {
		d.logger.Warn("lost graph provider", fields...)
	} else {
		d.logger.Error("lost graph provider", fields...)
	}

	_ = d.provider.Close()
	d.provider = nil
	d.updates = nil
	d.registry.Reset()
	_ = d.advance(StageConnecting)
}

// reconnect makes one attempt to restart the subscription.
func (d *Daemon) reconnect(ctx context.Context) {
	if err := d.connect(ctx); err != nil {
		d.logger.Warn("reconnect failed", "error", err.Error())
	}
}

// cycle runs one evaluation: count active streams, then let the supervisor
// react.
func (d *Daemon) cycle() {
	d.cycles++
	count := activity.Count(d.registry)
	action := d.supervisor.Evaluate(count)
	d.logger.Debug("evaluated",
		"cycle", d.cycles,
		"active_streams", count,
		"action", action.String(),
		"stage", d.stage.String())
}

// shutdown closes the provider and performs the supervisor's final cleanup.
func (d *Daemon) shutdown() {
	if d.provider != nil {
		if err := d.provider.Close(); err != nil {
			d.logger.Debug("closing provider", "error", err.Error())
		}
		d.provider = nil
		d.updates = nil
	}
	d.supervisor.Shutdown()
}
