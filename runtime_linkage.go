package uthread

import (
	"unsafe"

	_ "unsafe"
)

// Linking uthread against the Go runtime internals lets the coroutine and
// scheduler layers park and ready goroutines directly (getg/gopark/goready)
// instead of going through a channel handshake. This removes the extra
// goroutine hop a channel-based rendezvous would otherwise cost on every
// context switch.
//
// Alternative method is driving the switch through a zero-buffer channel
// per logical thread, as sketched in several cooperative-scheduler toys;
// that costs an extra scheduling round trip per switchto and was rejected
// for that reason.

// Mutex is a low-level lock backed by the runtime's internal futex/semaphore
// implementation. It is used to guard the scheduler-critical region instead
// of sync.Mutex because the region is entered on every yield and every
// semaphore Down/Up, and must stay cheap.
type Mutex struct {
	key uintptr
}

//go:linkname Lock runtime.lock
func Lock(l *Mutex)

//go:linkname Unlock runtime.unlock
func Unlock(l *Mutex)

//go:linkname GetG runtime.getg
func GetG() unsafe.Pointer

//go:linkname GoReady runtime.goready
func GoReady(gp unsafe.Pointer, traceskip int)

//go:linkname GoPark runtime.gopark
func GoPark(unlockf func(unsafe.Pointer, unsafe.Pointer) bool, lock unsafe.Pointer, reason waitReason, traceEv byte, traceskip int)

//go:linkname mcall runtime.mcall
func mcall(fn func(unsafe.Pointer))

//go:linkname casgstatus runtime.casgstatus
func casgstatus(gp unsafe.Pointer, oldval, newval uint32)

//go:linkname dropg runtime.dropg
func dropg()

//go:linkname schedule runtime.schedule
func schedule()

//go:linkname Readgstatus runtime.readgstatus
func Readgstatus(gp unsafe.Pointer) uint32

//go:linkname runtime_canSpin sync.runtime_canSpin
func runtime_canSpin(i int) bool

//go:linkname runtime_doSpin sync.runtime_doSpin
func runtime_doSpin()

// fast_park drops the calling goroutine off its M, flips its status to
// waiting, and re-enters the scheduler, all without the bookkeeping that
// gopark performs for channel/select parks. It is invoked via mcall so it
// runs on the system stack, the same way the runtime's own park paths do.
func fast_park(gp unsafe.Pointer) {
	dropg()
	casgstatus(gp, _Grunning, _Gwaiting)
	schedule()
}

// waitReason only needs to satisfy GoPark's signature; this package never
// constructs one, since every park in practice goes through the cheaper
// fast_park path instead.
type waitReason uint8

const (
	_Grunnable = 1
	_Grunning  = 2
	_Gwaiting  = 4
)
