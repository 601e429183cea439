package conversation

import (
	"context"
	"sync"
)

// Memory is an in-process History implementation. A per-session mutex
// serializes appends so concurrent turns on one session cannot lose updates;
// different sessions proceed in parallel.
type Memory struct {
	mu    sync.RWMutex
	turns map[string][]Turn
	locks map[string]*sync.Mutex
}

// NewMemory creates an empty in-memory history.
func NewMemory() *Memory {
	return &Memory{
		turns: make(map[string][]Turn),
		locks: make(map[string]*sync.Mutex),
	}
}

// Read returns a copy of the session's ordered turns.
func (m *Memory) Read(_ context.Context, sessionID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.turns[sessionID]
	if len(stored) == 0 {
		return nil, nil
	}
	out := make([]Turn, len(stored))
	copy(out, stored)
	return out, nil
}

// Append adds a turn to the end of the session's history.
func (m *Memory) Append(_ context.Context, sessionID string, turn Turn) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	m.turns[sessionID] = append(m.turns[sessionID], turn)
	m.mu.Unlock()
	return nil
}

// Sessions lists the session identifiers with stored history.
func (m *Memory) Sessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.turns))
	for id := range m.turns {
		out = append(out, id)
	}
	return out
}

func (m *Memory) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
