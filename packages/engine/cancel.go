package engine

import (
	"errors"
	"sync"
)

// ErrRequestPending is returned when the cancel stack cannot be changed
// because a request is in flight.
var ErrRequestPending = errors.New("a request is pending")

// CancelEntry is one action on the cancel stack.
type CancelEntry struct {
	Name    string
	fn      func()
	request bool
}

// IsRequest reports whether the entry aborts an in-flight request.
func (e *CancelEntry) IsRequest() bool {
	return e.request
}

// CancelStack is the LIFO of actions run on interrupt. While a request is
// pending its entry is the only request entry and sits on top.
type CancelStack struct {
	mu      sync.Mutex
	entries []*CancelEntry
}

func NewCancelStack() *CancelStack {
	return &CancelStack{}
}

func (s *CancelStack) pendingLocked() bool {
	for _, e := range s.entries {
		if e.request {
			return true
		}
	}
	return false
}

// RequestPending reports whether a request entry is on the stack.
func (s *CancelStack) RequestPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked()
}

// Push adds a handler. It fails while a request is pending.
func (s *CancelStack) Push(name string, fn func()) (*CancelEntry, error) {
	return s.push(&CancelEntry{Name: name, fn: fn})
}

func (s *CancelStack) pushRequest(name string, fn func()) (*CancelEntry, error) {
	return s.push(&CancelEntry{Name: name, fn: fn, request: true})
}

func (s *CancelStack) push(e *CancelEntry) (*CancelEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingLocked() {
		return nil, ErrRequestPending
	}
	s.entries = append(s.entries, e)
	return e, nil
}

// Remove takes e off the stack and reports whether it was there.
func (s *CancelStack) Remove(e *CancelEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(e)
}

func (s *CancelStack) removeLocked(e *CancelEntry) bool {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i] == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Pop removes and returns the top entry without running it.
func (s *CancelStack) Pop() (*CancelEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n == 0 {
		return nil, false
	}
	top := s.entries[n-1]
	s.entries = s.entries[:n-1]
	return top, true
}

// Interrupt pops the top entry and runs it outside the lock. It reports
// false when the stack is empty.
func (s *CancelStack) Interrupt() bool {
	top, ok := s.Pop()
	if !ok {
		return false
	}
	if top.fn != nil {
		top.fn()
	}
	return true
}

func (s *CancelStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
