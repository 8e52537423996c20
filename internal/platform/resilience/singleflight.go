package resilience

import "sync"

// SingleFlight collapses concurrent loads of the same key into one call.
type SingleFlight[T any] struct {
	mu       sync.Mutex
	inflight map[string]*flight[T]
}

type flight[T any] struct {
	done    chan struct{}
	val     T
	err     error
	waiters int
}

// Do runs fn once per key among concurrent callers; shared reports whether the
// result was handed to more than one caller.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (v T, err error, shared bool) {
	g.mu.Lock()
	if g.inflight == nil {
		g.inflight = make(map[string]*flight[T])
	}
	if f, ok := g.inflight[key]; ok {
		f.waiters++
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}

	f := &flight[T]{done: make(chan struct{})}
	g.inflight[key] = f
	g.mu.Unlock()

	func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()

	g.mu.Lock()
	if g.inflight[key] == f {
		delete(g.inflight, key)
	}
	waiters := f.waiters
	g.mu.Unlock()

	return f.val, f.err, waiters > 0
}

// ForgetFunc detaches every in-flight key for which match returns true. Callers
// already waiting still get that result; later callers start a fresh call.
func (g *SingleFlight[T]) ForgetFunc(match func(key string) bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.inflight {
		if match(key) {
			delete(g.inflight, key)
		}
	}
}
