package rt

import (
	"sync"
	"sync/atomic"
)

// Fiber is a cooperatively scheduled execution context. Resume runs the
// fiber until its next suspension point or completion; suspension points
// are exactly the wait-for-input operations and explicit yields. Aborting
// a fiber releases its stack without leaking.
type Fiber struct {
	fn       func(*Fiber) error
	resume   chan struct{}
	suspend  chan struct{}
	started  bool
	finished bool
	aborted  bool
	err      error
}

type fiberAbort struct{}

var fiberStats struct {
	alive     atomic.Int64
	cached    atomic.Int64
	highWater atomic.Int64
	mu        sync.Mutex
}

// MemoryStatistics reports runtime resource usage for debugging.
type MemoryStatistics struct {
	NumFibers    int64
	CachedFibers int64
	MaxFibers    int64
}

// Statistics returns the current fiber accounting.
func Statistics() MemoryStatistics {
	return MemoryStatistics{
		NumFibers:    fiberStats.alive.Load(),
		CachedFibers: fiberStats.cached.Load(),
		MaxFibers:    fiberStats.highWater.Load(),
	}
}

// NewFiber creates a fiber that will run fn; the body does not start until
// the first Resume.
func NewFiber(fn func(*Fiber) error) *Fiber {
	return &Fiber{
		fn:      fn,
		resume:  make(chan struct{}),
		suspend: make(chan struct{}),
	}
}

// Resume runs the fiber until it suspends or finishes. It returns
// (finished, error); the error is the fiber's terminal error, if any.
func (f *Fiber) Resume() (bool, error) {
	if f.finished {
		return true, f.err
	}
	if !f.started {
		f.started = true
		fiberStats.mu.Lock()
		n := fiberStats.alive.Add(1)
		if n > fiberStats.highWater.Load() {
			fiberStats.highWater.Store(n)
		}
		fiberStats.mu.Unlock()

		go func() {
			defer func() {
				if r := recover(); r != nil {
					if _, ok := r.(fiberAbort); !ok {
						panic(r)
					}
				}
				f.finished = true
				fiberStats.alive.Add(-1)
				f.suspend <- struct{}{}
			}()
			f.err = f.fn(f)
		}()
	} else {
		f.resume <- struct{}{}
	}
	<-f.suspend
	return f.finished, f.err
}

// Suspend yields control back to the resumer. Called from inside the fiber
// body only. If the fiber has been aborted, Suspend does not return.
func (f *Fiber) Suspend() {
	f.suspend <- struct{}{}
	<-f.resume
	if f.aborted {
		panic(fiberAbort{})
	}
}

// Abort terminates a suspended fiber, releasing its stack. Pending work is
// discarded; the fiber finishes with no error.
func (f *Fiber) Abort() {
	if f.finished || !f.started {
		f.finished = true
		return
	}
	f.aborted = true
	f.resume <- struct{}{}
	<-f.suspend
}

// Finished reports whether the fiber has completed.
func (f *Fiber) Finished() bool { return f.finished }

// Error returns the fiber's terminal error.
func (f *Fiber) Error() error { return f.err }
