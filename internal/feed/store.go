// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import "sync"

// Store holds the current State and broadcasts every change.
type Store struct {
	mu    sync.Mutex
	state State
	subs  map[int]chan State
	next  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{subs: make(map[int]chan State)}
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies a and notifies subscribers with the new state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Reduce(s.state, a)
	for _, ch := range s.subs {
		publish(ch, s.state)
	}
	return s.state
}

// Subscribe returns a channel receiving the latest state after each
// change, and a function that cancels the subscription. A slow reader
// only ever sees the newest state. After cancel returns the channel is
// closed and receives nothing more.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan State, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// publish replaces any unread state in ch with st. Callers hold s.mu,
// so no other sender races for the buffer slot.
func publish(ch chan State, st State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- st
}
