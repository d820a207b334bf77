// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plaide Contributors

package session

import (
	"sync"
)

// Listener receives every session transition.
type Listener func(Session)

type subscriber struct {
	id uint64
	fn Listener
}

// Store holds the current Session and notifies subscribers on transitions.
type Store struct {
	mu      sync.RWMutex
	current Session
	subs    []subscriber
	nextID  uint64

	// deliverMu serializes notification so every subscriber observes
	// transitions in the order they were written.
	deliverMu sync.Mutex
}

// Writer is the sole write handle for a Store.
type Writer struct {
	store *Store
}

// NewStore creates a Store in the Unauthenticated state together with its
// only Writer.
func NewStore() (*Store, *Writer) {
	s := &Store{}
	return s, &Writer{store: s}
}

// Current returns a snapshot of the current session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for every future transition and returns a function
// that removes it. The returned function is idempotent and may be called
// from inside a listener.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *Store) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *Store) active(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if sub.id == id {
			return true
		}
	}
	return false
}

// Set replaces the current session. It returns false, without notifying
// anyone, when next equals the current value.
//
// Listeners run synchronously on the calling goroutine. A listener must not
// call Set.
func (w *Writer) Set(next Session) bool {
	s := w.store

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.current.Equal(next) {
		s.mu.Unlock()
		return false
	}
	s.current = next
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		// A listener may unsubscribe another one while we deliver.
		if !s.active(sub.id) {
			continue
		}
		sub.fn(next)
	}
	return true
}

// Current returns the session as seen by the writer.
func (w *Writer) Current() Session {
	return w.store.Current()
}
