package uthread

import (
	"testing"
	"time"
)

func newTestRuntime(t *testing.T) (*Runtime, *Thread) {
	t.Helper()
	rt := New(WithTickInterval(time.Hour))
	main := new(Thread)
	if err := rt.Init(main); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = rt.Cleanup() })
	return rt, main
}

func TestRuntime_RoundRobin(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var order []string
	var a, b Thread
	if err := rt.Create(&a, func(any) {
		for i := 0; i < 3; i++ {
			order = append(order, "a")
			if err := rt.Yield(); err != nil {
				t.Error(err)
				return
			}
		}
	}, nil); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := rt.Create(&b, func(any) {
		for i := 0; i < 3; i++ {
			order = append(order, "b")
			if err := rt.Yield(); err != nil {
				t.Error(err)
				return
			}
		}
	}, nil); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if err := rt.Join(&a); err != nil {
		t.Fatalf("Join a: %v", err)
	}
	if err := rt.Join(&b); err != nil {
		t.Fatalf("Join b: %v", err)
	}

	want := []string{"a", "b", "a", "b", "a", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestThread_FinishedImpliesUnavailable(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var a Thread
	if err := rt.Create(&a, func(any) {}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := rt.Join(&a); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !a.Finished() {
		t.Fatal("expected thread to be finished after Join")
	}
	if a.available {
		t.Fatal("finished thread must not be available")
	}
}

func TestRuntime_Sleep(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var woke time.Time
	var sleeper Thread
	const delay = 20 * time.Millisecond
	if err := rt.Create(&sleeper, func(any) {
		if err := rt.Sleep(delay); err != nil {
			t.Error(err)
			return
		}
		woke = time.Now()
	}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	start := time.Now()

	var spinner Thread
	if err := rt.Create(&spinner, func(any) {
		for !sleeper.Finished() {
			if err := rt.Yield(); err != nil {
				t.Error(err)
				return
			}
		}
	}, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := rt.Join(&sleeper); err != nil {
		t.Fatalf("Join sleeper: %v", err)
	}
	if err := rt.Join(&spinner); err != nil {
		t.Fatalf("Join spinner: %v", err)
	}

	if woke.Sub(start) < delay {
		t.Fatalf("sleeper woke after %v, want at least %v", woke.Sub(start), delay)
	}
}

func TestRuntime_Sleep_RejectsNonPositiveDuration(t *testing.T) {
	rt, _ := newTestRuntime(t)
	if err := rt.Sleep(0); err == nil {
		t.Fatal("expected error for non-positive duration")
	}
}

func TestRuntime_Destroy_HeadOfMultiNodeQueue(t *testing.T) {
	rt, main := newTestRuntime(t)

	var a, b Thread
	block := make(chan struct{})
	if err := rt.Create(&a, func(any) { <-block }, nil); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := rt.Create(&b, func(any) { <-block }, nil); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	// main is rt.head; destroy it while a and b remain in the run queue.
	if err := rt.Destroy(main); err != nil {
		t.Fatalf("Destroy main: %v", err)
	}
	if rt.head == main {
		t.Fatal("head still references destroyed thread")
	}

	close(block)
	if err := rt.Join(&a); err != nil {
		t.Fatalf("Join a: %v", err)
	}
	if err := rt.Join(&b); err != nil {
		t.Fatalf("Join b: %v", err)
	}
}

func TestRuntime_Destroy_NotFound(t *testing.T) {
	rt, _ := newTestRuntime(t)
	orphan := &Thread{}
	if err := rt.Destroy(orphan); err == nil {
		t.Fatal("expected ErrNotFound for a thread never added to the run queue")
	}
}

func TestRuntime_AnyFinished(t *testing.T) {
	rt, _ := newTestRuntime(t)

	var fast, slow Thread
	if err := rt.Create(&fast, func(any) {}, nil); err != nil {
		t.Fatalf("Create fast: %v", err)
	}
	if err := rt.Create(&slow, func(any) {
		for i := 0; i < 5; i++ {
			if err := rt.Yield(); err != nil {
				t.Error(err)
				return
			}
		}
	}, nil); err != nil {
		t.Fatalf("Create slow: %v", err)
	}

	done, err := rt.AnyFinished(&fast, &slow)
	if err != nil {
		t.Fatalf("AnyFinished: %v", err)
	}
	if done != &fast {
		t.Fatalf("AnyFinished returned %p, want the fast thread %p", done, &fast)
	}

	if err := rt.Join(&slow); err != nil {
		t.Fatalf("Join slow: %v", err)
	}
}

func TestRuntime_PreemptTicksObservedWithoutForcingReschedule(t *testing.T) {
	rt := New(WithTickInterval(time.Millisecond))
	main := new(Thread)
	if err := rt.Init(main); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer rt.Cleanup()

	var ran bool
	var spin Thread
	if err := rt.Create(&spin, func(any) { ran = true }, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if rt.PreemptTicks() == 0 {
		t.Fatal("expected at least one observed preemption tick")
	}
	if ran {
		t.Fatal("thread must not run until the scheduler explicitly selects it")
	}

	if err := rt.Join(&spin); err != nil {
		t.Fatalf("Join: %v", err)
	}
}
