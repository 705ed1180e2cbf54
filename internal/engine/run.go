package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// Run drives the engine until ctx is cancelled. Ticks fire on the
// given interval and whenever the kick channel signals (typically a
// mailbox watcher noticing a new message). Each tick runs on its own
// goroutine so operator commands stay responsive during long merges;
// an in-flight guard keeps ticks from piling up behind a slow one.
func (e *Engine) Run(ctx context.Context, interval time.Duration, kick <-chan struct{}) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var inFlight atomic.Bool

	// Immediate first tick so a freshly started engine does not sit
	// idle for a full interval.
	fire := func() {
		if !inFlight.CompareAndSwap(false, true) {
			return
		}
		go func() {
			defer inFlight.Store(false)
			e.Tick(ctx)
		}()
	}
	fire()

	for {
		select {
		case <-ctx.Done():
			// Let an in-flight tick finish before returning so state is
			// persisted consistently.
			e.tickBusy.Lock()
			err := ctx.Err()
			e.tickBusy.Unlock()
			return err
		case <-ticker.C:
			fire()
		case <-kick:
			fire()
		}
	}
}
