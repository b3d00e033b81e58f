//go:build unix

package uthread

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// armPreemptionTimer installs a real interval timer and a real signal
// handler, the same pair the source used (setitimer(ITIMER_REAL, ...) plus
// sigaction(SIGALRM, ...)). Go cannot deliver a signal synchronously onto
// the interrupted goroutine's own stack, so the handler here is a relay
// goroutine fed by os/signal instead of a sa_handler; see
// Runtime.runPreemptionRelay for what it does with each tick.
func armPreemptionTimer(rt *Runtime) (disarm func(), err error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, unix.SIGALRM)

	interval := rt.cfg.TickInterval
	it := &unix.Itimerval{
		Value:    unix.NsecToTimeval(interval.Nanoseconds()),
		Interval: unix.NsecToTimeval(interval.Nanoseconds()),
	}
	if err := unix.Setitimer(unix.ITIMER_REAL, it, nil); err != nil {
		signal.Stop(sigCh)
		return nil, err
	}

	done := make(chan struct{})
	go rt.runPreemptionRelay(sigCh, done)

	disarm = func() {
		zero := &unix.Itimerval{}
		_ = unix.Setitimer(unix.ITIMER_REAL, zero, nil)
		signal.Stop(sigCh)
		close(done)
	}
	return disarm, nil
}
