package session

import (
	"sync"
	"time"
)

// Manager serializes interaction handling per message so that concurrent
// presses on the same message see each other's state changes.
type Manager struct {
	mu      sync.Mutex
	mutexes map[string]*keyLock
}

type keyLock struct {
	mu       sync.Mutex
	lastUsed time.Time
	holders  int
}

func NewManager() *Manager {
	return &Manager{
		mutexes: make(map[string]*keyLock),
	}
}

// WithLock executes fn while holding the mutex for key.
// Work on the same key is serialized; different keys run in parallel.
func (m *Manager) WithLock(key string, fn func() error) error {
	m.mu.Lock()
	kl, ok := m.mutexes[key]
	if !ok {
		kl = &keyLock{}
		m.mutexes[key] = kl
	}
	kl.holders++
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		kl.holders--
		kl.lastUsed = time.Now()
		m.mu.Unlock()
	}()

	kl.mu.Lock()
	defer kl.mu.Unlock()
	return fn()
}

// Len returns the number of tracked keys.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.mutexes)
}

// Cleanup removes idle locks not used within maxAge to prevent memory leaks.
func (m *Manager) Cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, kl := range m.mutexes {
		if kl.holders == 0 && now.Sub(kl.lastUsed) > maxAge {
			delete(m.mutexes, key)
		}
	}
}
