//go:build !unix

package uthread

import "time"

// armPreemptionTimer falls back to a time.Ticker on platforms without a
// POSIX interval timer and SIGALRM. The handler is a relay goroutine either
// way, so the non-unix path differs only in how the tick is sourced.
func armPreemptionTimer(rt *Runtime) (disarm func(), err error) {
	ticker := time.NewTicker(rt.cfg.TickInterval)
	tickCh := make(chan struct{})
	go func() {
		for range ticker.C {
			select {
			case tickCh <- struct{}{}:
			default:
			}
		}
	}()
	done := make(chan struct{})
	go rt.runPreemptionRelayChan(tickCh, done)
	return func() {
		ticker.Stop()
		close(done)
	}, nil
}
