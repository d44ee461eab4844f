package license

import "sync"

// VisitedSet records the name@version vertices a walk has evaluated.
// Entries are never removed. It is safe for concurrent use.
type VisitedSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{keys: make(map[string]struct{})}
}

func key(name, version string) string { return name + "@" + version }

// Add marks name@version visited and reports whether it was new.
func (s *VisitedSet) Add(name, version string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(name, version)
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	return true
}

// Contains reports whether name@version was visited.
func (s *VisitedSet) Contains(name, version string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key(name, version)]
	return ok
}

// Len returns the number of visited vertices.
func (s *VisitedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
