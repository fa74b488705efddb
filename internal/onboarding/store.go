package onboarding

import (
	"sync"
	"time"
)

// StateStore keeps one onboarding State per browser session. Callers load
// a copy, thread it through the Wizard and save it back.
type StateStore struct {
	data    map[string]*storeEntry
	ttl     time.Duration
	mu      sync.RWMutex
	cleanup *time.Ticker
	done    chan struct{}
	now     func() time.Time
}

type storeEntry struct {
	state      *State
	expiration time.Time
}

// NewStateStore creates a store whose entries expire ttl after their last save
func NewStateStore(ttl time.Duration) *StateStore {
	s := &StateStore{
		data:    make(map[string]*storeEntry),
		ttl:     ttl,
		cleanup: time.NewTicker(time.Minute),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.cleanupLoop()

	return s
}

// Get returns a copy of the session's state
func (s *StateStore) Get(sessionID string) (*State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[sessionID]
	if !ok || s.now().After(entry.expiration) {
		return nil, false
	}
	return entry.state.Clone(), true
}

// Load returns the session's state, or a fresh one if there is none
func (s *StateStore) Load(sessionID string) *State {
	if state, ok := s.Get(sessionID); ok {
		return state
	}
	return NewState()
}

// Save stores a copy of state for the session
func (s *StateStore) Save(sessionID string, state *State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sessionID] = &storeEntry{
		state:      state.Clone(),
		expiration: s.now().Add(s.ttl),
	}
}

// Delete forgets the session's state
func (s *StateStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, sessionID)
}

// Size returns the number of stored sessions
func (s *StateStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

func (s *StateStore) cleanupLoop() {
	for {
		select {
		case <-s.cleanup.C:
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *StateStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.data {
		if now.After(entry.expiration) {
			delete(s.data, key)
		}
	}
}

// Stop stops the cleanup goroutine
func (s *StateStore) Stop() {
	s.cleanup.Stop()
	close(s.done)
}
