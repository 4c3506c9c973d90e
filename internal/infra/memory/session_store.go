package memory

import (
	"sync"

	"quiz-session-service/internal/app"
)

// SessionStore is an in-memory registry of quiz sessions keyed by session ID.
type SessionStore struct {
	repo     app.QuestionRepository
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(repo app.QuestionRepository) *SessionStore {
	return &SessionStore{
		repo:     repo,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(sessionID, s.repo)
	s.sessions[sessionID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) DeleteIfIdle(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if session.IsIdle() {
		delete(s.sessions, sessionID)
	}
}
