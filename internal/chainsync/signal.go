// Package chainsync tracks the latest observed slot and fans it out to
// subscribers.
package chainsync

import "sync"

// Signal holds the last observed slot. Publish only moves it forward.
// Subscribers get a one-slot buffered channel; a slow subscriber sees only
// the newest slot it missed.
type Signal struct {
	mu     sync.Mutex
	last   int64
	nextID uint64
	subs   map[uint64]chan int64
}

// NewSignal creates an empty signal.
func NewSignal() *Signal {
	return &Signal{subs: make(map[uint64]chan int64)}
}

// Last returns the latest published slot, or 0.
func (s *Signal) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Publish records slot if it is newer than the last one and notifies
// subscribers. It reports whether the slot was accepted.
func (s *Signal) Publish(slot int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot <= s.last {
		return false
	}
	s.last = slot

	for _, ch := range s.subs {
		// drop the undelivered older slot, keep the newest
		select {
		case <-ch:
		default:
		}
		ch <- slot
	}
	return true
}

// Subscribe returns a channel of new slots and a function that removes the
// subscription and closes the channel. Calling it more than once is safe.
func (s *Signal) Subscribe() (<-chan int64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan int64, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Signal) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
