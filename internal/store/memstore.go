package store

import (
	"chess-relay/internal/room"
	"sync"
)

// MemoryStore keeps open sessions and the seat index (connection id -> session id).
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*room.Session
	seats    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]*room.Session{},
		seats:    map[string]string{},
	}
}

func (m *MemoryStore) GetSession(id string) (*room.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MemoryStore) SaveSession(s *room.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
}

// DeleteSession drops the session and releases the given seats held in it.
func (m *MemoryStore) DeleteSession(id string, connIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	for _, c := range connIDs {
		if m.seats[c] == id {
			delete(m.seats, c)
		}
	}
}

// Seat records connID as sitting in sessionID. It fails if connID already holds a seat.
func (m *MemoryStore) Seat(connID, sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.seats[connID]; taken {
		return false
	}
	m.seats[connID] = sessionID
	return true
}

func (m *MemoryStore) SeatOf(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.seats[connID]
	return id, ok
}

func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
