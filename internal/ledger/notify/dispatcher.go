package notify

import (
	"context"
	"sync"
)

// Dispatcher decides where listener callbacks run.
type Dispatcher interface {
	Dispatch(fn func())
}

// Inline runs callbacks on the calling goroutine.
type Inline struct{}

// Dispatch runs fn immediately.
func (Inline) Dispatch(fn func()) { fn() }

// Serial runs callbacks one at a time, in submission order, on a dedicated goroutine. Its queue
// is unbounded and Dispatch never blocks.
type Serial struct {
	mu      sync.Mutex
	pending *sync.Cond
	queue   []func()
	closed  bool
	done    chan struct{}
}

// NewSerial starts the notification goroutine. buffer sizes the initial queue.
func NewSerial(buffer int) *Serial {
	if buffer < 0 {
		buffer = 0
	}
	s := &Serial{queue: make([]func(), 0, buffer), done: make(chan struct{})}
	s.pending = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

func (s *Serial) loop() {
	defer close(s.done)
	for {
		fn, ok := s.next()
		if !ok {
			return
		}
		fn()
	}
}

// next blocks until a callback is queued. It reports false once the queue is closed and drained.
func (s *Serial) next() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		s.pending.Wait()
	}
	if len(s.queue) == 0 {
		return nil, false
	}
	fn := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	return fn, true
}

// Dispatch enqueues fn without blocking. Calls after Close are dropped.
func (s *Serial) Dispatch(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, fn)
	s.pending.Signal()
}

// Close stops accepting work and waits for queued callbacks to finish or ctx to expire.
func (s *Serial) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.pending.Broadcast()
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
