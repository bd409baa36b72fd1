package engine

import (
	"context"
	"errors"
	"sync"
)

// ErrMatchCancelled is returned to match requests discarded by a board reset
var ErrMatchCancelled = errors.New("match cancelled by board reset")

// waiter is a queued turn. External callers wait on ready; chained jobs carry a func
// that runs on whichever goroutine releases the turn before them. done is called once
// per job, after it ran or when it was dropped.
type waiter struct {
	ready     chan struct{}
	cancelled bool
	job       func()
	done      func()
	epoch     uint64
}

// sequencer is a FIFO ticket lock. At most one turn is active; the releasing goroutine
// hands the turn to the next queued entry and calls onDrain once the queue is empty.
type sequencer struct {
	mu      sync.Mutex
	active  bool
	epoch   uint64
	queue   []*waiter
	onDrain func()
}

func newSequencer(onDrain func()) *sequencer {
	return &sequencer{onDrain: onDrain}
}

// acquire blocks until the caller owns the turn and returns the board epoch it runs in
func (s *sequencer) acquire(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	if !s.active && len(s.queue) == 0 {
		s.active = true
		epoch := s.epoch
		s.mu.Unlock()
		return epoch, nil
	}
	w := &waiter{ready: make(chan struct{})}
	s.queue = append(s.queue, w)
	s.mu.Unlock()

	select {
	case <-w.ready:
	case <-ctx.Done():
		s.mu.Lock()
		if s.remove(w) {
			s.mu.Unlock()
			return 0, ctx.Err()
		}
		s.mu.Unlock()
		// The turn was handed over (or cancelled) while we were giving up.
		<-w.ready
		if !w.cancelled {
			s.release()
		}
		return 0, ctx.Err()
	}

	if w.cancelled {
		return 0, ErrMatchCancelled
	}
	return s.currentEpoch(), nil
}

// release passes the turn on. Queued chained jobs run here, in order, while the turn is held.
func (s *sequencer) release() {
	drained := false
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			if !drained && s.onDrain != nil {
				s.mu.Unlock()
				s.onDrain()
				drained = true
				continue
			}
			s.active = false
			s.mu.Unlock()
			return
		}

		w := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]

		if w.job != nil {
			run := w.epoch == s.epoch
			s.mu.Unlock()
			if run {
				w.job()
				drained = false
			}
			if w.done != nil {
				w.done()
			}
			continue
		}

		close(w.ready)
		s.mu.Unlock()
		return
	}
}

// enqueueJob appends a chained job behind every request already waiting.
// Must be called by the goroutine holding the turn. done may be nil.
func (s *sequencer) enqueueJob(epoch uint64, job, done func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, &waiter{job: job, done: done, epoch: epoch})
}

// cancelPending drops every queued entry and starts a new epoch. Waiting callers
// return ErrMatchCancelled; the active turn, if any, keeps running.
func (s *sequencer) cancelPending() {
	s.mu.Lock()
	s.epoch++
	var dropped []func()
	for _, w := range s.queue {
		switch {
		case w.job == nil:
			w.cancelled = true
			close(w.ready)
		case w.done != nil:
			dropped = append(dropped, w.done)
		}
	}
	s.queue = nil
	s.mu.Unlock()

	for _, done := range dropped {
		done()
	}
}

func (s *sequencer) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// waiting returns the number of external requests queued behind the active turn
func (s *sequencer) waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.queue {
		if w.job == nil {
			n++
		}
	}
	return n
}

// remove deletes w from the queue. Caller holds mu.
func (s *sequencer) remove(w *waiter) bool {
	for i, q := range s.queue {
		if q == w {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}
