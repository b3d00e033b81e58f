// Package uthread implements a user-space cooperative-and-preemptive
// threading runtime on top of a goroutine-parking coroutine primitive and a
// counting semaphore with a FIFO wait queue. This file holds the coroutine
// layer, the thinnest of the three.
package uthread

import (
	"fmt"
	"runtime"
	"unsafe"
)

// defaultStackHint is the nominal stack size a CoCtx is documented against.
// Go goroutines grow their stacks on demand, so this is never an allocation
// ceiling; it exists purely as a diagnostic baseline for tests that want to
// sanity-check observed stack depth against the value the source assumed.
const defaultStackHint = 64 * 1024

// CoCtx is a coroutine: a logical thread of control that can be suspended
// and resumed at the exact point it last yielded control. It is backed by a
// single goroutine, parked via mcall(fast_park) (runtime_linkage.go) rather
// than a channel handshake, and readied directly with goready by whichever
// CoCtx switches to it.
type CoCtx struct {
	g         gPtr
	stackHint int
	armed     bool
}

// gPtr is an unsafe.Pointer to a runtime g, kept behind a named type so the
// rest of the package can talk about "a parked goroutine" without repeating
// unsafe.Pointer everywhere.
type gPtr = unsafe.Pointer

// CoInit captures the caller's current machine context into main. It must be
// called once, from the goroutine that will act as the runtime's main
// thread, before any CoCreate or CoSwitch call references main. stackHint
// records the nominal stack size main is documented against; values <= 0
// fall back to defaultStackHint.
func CoInit(main *CoCtx, stackHint int) error {
	if main == nil {
		return fmt.Errorf("%w: nil main context", ErrInvalidArgument)
	}
	if stackHint <= 0 {
		stackHint = defaultStackHint
	}
	main.g = GetG()
	main.stackHint = stackHint
	main.armed = true
	return nil
}

// CoCreate arms co so that the first CoSwitch targeting it begins executing
// body(arg) on its own goroutine. If body returns without co ever switching
// elsewhere, control implicitly transfers to link — the caller must ensure
// link outlives co. stackHint records the nominal stack size co is
// documented against; values <= 0 fall back to defaultStackHint.
//
// Create is synchronous: it does not return until the new goroutine has
// registered itself and parked, so that a subsequent CoSwitch can ready it
// without racing the goroutine's own startup.
func CoCreate(co *CoCtx, body func(arg any), arg any, link *CoCtx, stackHint int) error {
	if co == nil || link == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidArgument)
	}
	if stackHint <= 0 {
		stackHint = defaultStackHint
	}
	registered := make(chan struct{})
	go func() {
		co.g = GetG()
		close(registered)
		mcall(fast_park)
		body(arg)
		// body returned without an explicit switch: fall through to link,
		// mirroring uc_link in the source's ucontext-based implementation.
		_ = CoSwitch(co, link)
	}()
	<-registered
	spinUntilParked(co.g)
	co.stackHint = stackHint
	co.armed = true
	return nil
}

// StackHint returns the nominal stack size co was created or initialized
// with — a diagnostic baseline only, never an allocation ceiling, since Go
// goroutine stacks grow on demand.
func (co *CoCtx) StackHint() int { return co.stackHint }

// CoSwitch atomically saves the calling goroutine's state into from and
// resumes to. When to is later switched away from and back to from, this
// call returns and execution continues exactly where it suspended.
func CoSwitch(from, to *CoCtx) error {
	if from == nil || to == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidArgument)
	}
	if from == to {
		return nil
	}
	GoReady(to.g, 1)
	from.g = GetG()
	mcall(fast_park)
	return nil
}

// CoDestroy releases co's bookkeeping. There is no cross-coroutine signal:
// if co's goroutine has not returned from body, it is the caller's
// responsibility to have already ensured it will never be switched to again
// (see Thread.Destroy).
func CoDestroy(co *CoCtx) error {
	if co == nil {
		return fmt.Errorf("%w: nil context", ErrInvalidArgument)
	}
	co.g = nil
	co.armed = false
	return nil
}

// spinUntilParked blocks until the goroutine behind g has reached the
// waiting state, using the same active-spin-then-yield backoff the runtime's
// own sync package uses for short critical sections. This closes the race
// between a newly created coroutine registering its g and a concurrent
// CoSwitch readying it before it has actually parked.
func spinUntilParked(g gPtr) {
	iter := 0
	for Readgstatus(g) != _Gwaiting {
		if runtime_canSpin(iter) {
			iter++
			runtime_doSpin()
		} else {
			runtime.Gosched()
		}
	}
}
