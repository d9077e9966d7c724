package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph"
)

// LoadSnapshot starts p, waits for its initial object set, and returns it
// as a registry. p is closed before returning. A zero timeout waits until
// ctx is done.
func LoadSnapshot(ctx context.Context, p Provider, timeout time.Duration) (*graph.Registry, error) {
	defer p.Close()

	if err := p.Start(ctx); err != nil {
		var perr *errors.ProviderError
		if !errors.As(err, &perr) {
			err = errors.NewProviderError("connect", errors.ErrProviderConnect, err)
		}
		return nil, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	reg := graph.NewRegistry()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired:
			return nil, errors.NewProviderError("load", errors.ErrProviderTimeout,
				fmt.Errorf("no initial object set after %s", timeout))
		case b, ok := <-p.Updates():
			if !ok {
				cause := p.Err()
				if cause == nil {
					cause = errors.New("subscription ended")
				}
				return nil, errors.NewProviderError("load", errors.ErrProviderConnect, cause)
			}
			reg.ApplyBatch(b)
			if b.Initial {
				return reg, nil
			}
		}
	}
}
