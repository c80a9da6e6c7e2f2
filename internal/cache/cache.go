package cache

import "sync"

// Sequence hands out increasing record IDs, starting at 1.
type Sequence struct {
	mu sync.Mutex
	v  uint
}

// Next returns the next ID.
func (s *Sequence) Next() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v++
	return s.v
}

// Value returns the last ID handed out.
func (s *Sequence) Value() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// Observe moves the sequence past id, for IDs restored from storage.
func (s *Sequence) Observe(id uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.v {
		s.v = id
	}
}
