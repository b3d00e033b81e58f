package uthread

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Thread is one logical thread of control: a coroutine plus the scheduling
// bookkeeping (finished/available/sleeping/sleepUntil) and its link in the
// runtime's circular run queue. The zero value is not usable; obtain one via
// (*Runtime).Init or (*Runtime).Create.
type Thread struct {
	ctx        CoCtx
	finished   bool
	available  bool
	sleeping   bool
	sleepUntil time.Time
	next       *Thread
	id         uint64
}

// Finished reports whether the thread's body has returned.
func (t *Thread) Finished() bool { return t.finished }

// entryRecord is the heap-owned (body, arg, owner) triple, plus the owning
// Runtime, consumed exactly once by the entry trampoline. Pooled the same
// way waitList pools its nodes, since
// thread creation is expected to be frequent relative to the lifetime of a
// single logical thread.
type entryRecord struct {
	body  func(any)
	arg   any
	owner *Thread
	rt    *Runtime
}

var entryPool = sync.Pool{New: func() any { return new(entryRecord) }}

// Runtime is the scheduler: the run queue, the current-thread pointer, the
// semaphore diagnostic-id counter, and the installed preemption timer. It is
// an ordinary value so a process can run more than one of these (chiefly
// useful for tests), though only one should ever be Init'd on a given set
// of OS threads at a time since it pins GOMAXPROCS.
type Runtime struct {
	cfg Config

	schedLock Mutex // guards the run queue and current-thread pointer
	current   *Thread
	head      *Thread

	semCounter    atomic.Uint64
	threadCounter atomic.Uint64
	preemptTicks  atomic.Uint64

	disarmTimer    func()
	prevGOMAXPROCS int
	running        atomic.Bool
}

// New constructs a Runtime with the given options applied over the defaults
// (1ms tick, 64KiB stack hint, a warn-level text logger to stderr). A
// WithLogger(nil) option leaves the logger unset, in which case New falls
// back to slog.Default().
func New(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runtime{cfg: cfg}
}

// Init starts the runtime: main becomes the current thread and the sole
// member of the run queue, its context is captured, GOMAXPROCS is pinned to
// 1 for the lifetime of the runtime, and the preemption timer is armed.
func (rt *Runtime) Init(main *Thread) error {
	if main == nil {
		return fmt.Errorf("%w: nil main thread", ErrInvalidArgument)
	}
	if err := CoInit(&main.ctx, rt.cfg.StackHint); err != nil {
		return fmt.Errorf("%w: %v", ErrPrimitive, err)
	}
	main.finished, main.available, main.sleeping = false, true, false
	main.id = rt.threadCounter.Add(1)
	main.next = main

	rt.current = main
	rt.head = main
	rt.prevGOMAXPROCS = runtime.GOMAXPROCS(1)

	disarm, err := armPreemptionTimer(rt)
	if err != nil {
		runtime.GOMAXPROCS(rt.prevGOMAXPROCS)
		return fmt.Errorf("%w: %v", ErrPrimitive, err)
	}
	rt.disarmTimer = disarm
	rt.running.Store(true)

	rt.cfg.Logger.Info("runtime initialized", "thread_id", main.id, "tick_interval", rt.cfg.TickInterval)
	return nil
}

// Create allocates an entry record, arms thr's coroutine with the entry
// trampoline, and splices thr into the run queue immediately before the
// current head — i.e. at the tail of the circular order. The new thread
// does not run until the scheduler selects it.
func (rt *Runtime) Create(thr *Thread, body func(arg any), arg any) error {
	if !rt.running.Load() {
		return ErrNotRunning
	}
	if thr == nil || body == nil {
		return fmt.Errorf("%w: nil thread or body", ErrInvalidArgument)
	}

	e, ok := entryPool.Get().(*entryRecord)
	if !ok || e == nil {
		return fmt.Errorf("%w: entry record pool returned no usable value", ErrAllocation)
	}
	e.body, e.arg, e.owner, e.rt = body, arg, thr, rt

	thr.finished, thr.available, thr.sleeping = false, true, false
	thr.id = rt.threadCounter.Add(1)

	if err := CoCreate(&thr.ctx, trampoline, e, &rt.current.ctx, rt.cfg.StackHint); err != nil {
		entryPool.Put(e)
		return fmt.Errorf("%w: %v", ErrPrimitive, err)
	}

	Lock(&rt.schedLock)
	rt.spliceBeforeHead(thr)
	Unlock(&rt.schedLock)

	rt.cfg.Logger.Debug("thread created", "thread_id", thr.id)
	return nil
}

// trampoline is the fixed entry point every created coroutine starts at. It
// consumes the entry record exactly once: it copies out and releases the
// record, runs the body, marks the owner finished and unavailable, and
// yields — a call that never returns, because a finished thread is never
// selected again.
func trampoline(a any) {
	e := a.(*entryRecord)
	body, arg, owner, rt := e.body, e.arg, e.owner, e.rt
	e.body, e.arg, e.owner, e.rt = nil, nil, nil, nil
	entryPool.Put(e)

	body(arg)

	owner.finished = true
	owner.available = false
	rt.cfg.Logger.Debug("thread finished", "thread_id", owner.id)

	_ = rt.Yield()
	panic("uthread: finished thread was rescheduled")
}

// spliceBeforeHead inserts thr just before rt.head in the circular run
// queue, i.e. at the tail of the circular order, matching mythreads_create's
// walk-to-predecessor insertion. Caller must hold schedLock.
func (rt *Runtime) spliceBeforeHead(thr *Thread) {
	if rt.head == nil {
		thr.next = thr
		rt.head = thr
		rt.current = thr
		return
	}
	prev := rt.head
	for prev.next != rt.head {
		prev = prev.next
	}
	prev.next = thr
	thr.next = rt.head
}

// Yield is the central scheduling step. It enters the scheduler-critical
// region, advances current around the run queue until an eligible thread
// (available, not sleeping past its deadline, not finished) is found, then
// switches to it. The region is released before the switch itself: the only
// state it protects is the run-queue linkage and the current pointer, and
// both are fully settled by the time the switch happens.
func (rt *Runtime) Yield() error {
	if !rt.running.Load() || rt.current == nil {
		return ErrNotRunning
	}

	Lock(&rt.schedLock)
	prev := rt.current
	now := time.Now()
	for {
		cand := rt.current.next
		if cand.sleeping && !cand.sleepUntil.After(now) {
			cand.sleeping = false
		}
		rt.current = cand
		if cand.available && !cand.sleeping && !cand.finished {
			break
		}
		now = time.Now()
	}
	next := rt.current
	Unlock(&rt.schedLock)

	return CoSwitch(&prev.ctx, &next.ctx)
}

// Sleep suspends the calling thread until d has elapsed. d must be positive.
func (rt *Runtime) Sleep(d time.Duration) error {
	if !rt.running.Load() || rt.current == nil {
		return ErrNotRunning
	}
	if d <= 0 {
		return fmt.Errorf("%w: sleep duration must be positive", ErrInvalidArgument)
	}
	Lock(&rt.schedLock)
	rt.current.sleeping = true
	rt.current.sleepUntil = time.Now().Add(d)
	Unlock(&rt.schedLock)
	return rt.Yield()
}

// Join yields repeatedly until thr.finished becomes true. It performs no
// event-based wakeup; correctness depends on Yield being invoked frequently,
// by the joiner itself or by other progressing threads.
func (rt *Runtime) Join(thr *Thread) error {
	if thr == nil {
		return fmt.Errorf("%w: nil thread", ErrInvalidArgument)
	}
	for !thr.finished {
		if err := rt.Yield(); err != nil {
			return err
		}
	}
	return nil
}

// Destroy removes thr from the run queue. If thr is current, current
// advances to thr.next; if the queue thereby becomes empty, both current and
// head are cleared. thr is then marked finished and unavailable.
func (rt *Runtime) Destroy(thr *Thread) error {
	if thr == nil {
		return fmt.Errorf("%w: nil thread", ErrInvalidArgument)
	}
	if rt.head == nil {
		return fmt.Errorf("%w: run queue is empty", ErrNotFound)
	}

	Lock(&rt.schedLock)
	defer Unlock(&rt.schedLock)

	if rt.current == thr {
		rt.current = thr.next
		if rt.current == thr {
			rt.current = nil
			rt.head = nil
		}
	}

	if rt.head != nil {
		prev := rt.head
		found := false
		for {
			if prev.next == thr {
				found = true
				break
			}
			prev = prev.next
			if prev == rt.head {
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: thread %d", ErrNotFound, thr.id)
		}
		prev.next = thr.next
		if rt.head == thr {
			rt.head = thr.next
		}
	}

	thr.finished = true
	thr.available = false
	thr.next = nil
	rt.cfg.Logger.Info("thread destroyed", "thread_id", thr.id)
	return nil
}

// Cleanup disarms the preemption timer, restores GOMAXPROCS, and clears the
// runtime's globals.
func (rt *Runtime) Cleanup() error {
	if !rt.running.CompareAndSwap(true, false) {
		return nil
	}
	if rt.disarmTimer != nil {
		rt.disarmTimer()
		rt.disarmTimer = nil
	}
	runtime.GOMAXPROCS(rt.prevGOMAXPROCS)
	rt.current = nil
	rt.head = nil
	rt.cfg.Logger.Info("runtime cleaned up", "preempt_ticks_observed", rt.preemptTicks.Load())
	return nil
}

// runPreemptionRelay drains the SIGALRM channel for the lifetime of the
// runtime. It cannot force the currently running logical thread to yield, so
// it records the tick for diagnostics; actual rescheduling continues to
// happen at Yield/Sleep/Join/Down/Up.
func (rt *Runtime) runPreemptionRelay(sig <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-sig:
			rt.preemptTicks.Add(1)
			rt.cfg.Logger.Log(nil, levelTrace, "preemption tick observed")
		case <-done:
			return
		}
	}
}

// runPreemptionRelayChan is the time.Ticker-backed analogue of
// runPreemptionRelay for platforms without SIGALRM (preempt_other.go).
func (rt *Runtime) runPreemptionRelayChan(tick <-chan struct{}, done <-chan struct{}) {
	for {
		select {
		case <-tick:
			rt.preemptTicks.Add(1)
		case <-done:
			return
		}
	}
}

// PreemptTicks returns how many preemption-timer ticks have been observed
// since Init. Diagnostic only; never consulted by scheduling logic.
func (rt *Runtime) PreemptTicks() uint64 { return rt.preemptTicks.Load() }
