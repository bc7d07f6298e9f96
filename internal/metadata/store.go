package metadata

import (
	"sync"
)

// Store serializes dispatches and bumps Revision on every one of them.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextID      int
}

func NewStore(initial State) *Store {
	return &Store{state: initial, subscribers: map[int]func(State){}}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Revision
}

// Dispatch applies actions in order and notifies subscribers once with the
// resulting state.
func (s *Store) Dispatch(actions ...StoreAction) State {
	s.mu.Lock()
	for _, a := range actions {
		rev := s.state.Revision
		s.state = Reduce(s.state, a)
		s.state.Revision = rev + 1
	}
	st := s.state
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
	return st
}

func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
