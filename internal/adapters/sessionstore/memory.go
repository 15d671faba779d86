package sessionstore

import (
	"sync"
	"time"

	"eventscout/internal/domain"
)

// Memory хранит сессии в памяти процесса под RWMutex.
// Подходит для single-instance развёртывания; при рестарте сессии теряются.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

var _ domain.SessionStore = (*Memory)(nil)

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]domain.Session)}
}

// Save сохраняет копию сессии.
func (m *Memory) Save(session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

// Get возвращает копию сессии по идентификатору.
func (m *Memory) Get(id string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, false, nil
	}
	return cloneSession(session), true, nil
}

// Delete удаляет сессию.
func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// List возвращает копии всех живых сессий.
func (m *Memory) List() ([]domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, cloneSession(session))
	}
	return out, nil
}

// EvictOlderThan удаляет сессии, начавшиеся раньше cutoff, и возвращает их число.
func (m *Memory) EvictOlderThan(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, session := range m.sessions {
		if session.StartTime.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted, nil
}

func cloneSession(s domain.Session) domain.Session {
	out := s
	out.Interactions = append([]domain.Interaction(nil), s.Interactions...)
	out.EventsViewed = cloneSet(s.EventsViewed)
	out.EventsClicked = cloneSet(s.EventsClicked)
	if s.Metadata != nil {
		out.Metadata = make(map[string]any, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneSet(set map[int64]bool) map[int64]bool {
	if set == nil {
		return nil
	}
	out := make(map[int64]bool, len(set))
	for k := range set {
		out[k] = true
	}
	return out
}
