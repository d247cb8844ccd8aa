package utils

import (
	"sync"
	"time"
)

// ttlSet is the in-memory fallback used when Redis is disabled. Single instance only.
type ttlSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newTTLSet() *ttlSet { return &ttlSet{entries: map[string]time.Time{}} }

func (s *ttlSet) add(key string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = expiresAt
}

func (s *ttlSet) has(key string, consume bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	if !ok {
		return false
	}
	if consume || time.Now().After(exp) {
		delete(s.entries, key)
	}
	return time.Now().Before(exp)
}
