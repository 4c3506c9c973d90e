package redis

import (
	"context"
	"sync"
	"time"

	"quiz-session-service/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware registry of quiz sessions.
// Notes:
//   - Sessions themselves stay in-process so the controller's subscriber
//     broadcast keeps working unchanged.
//   - Redis marks session liveness (and could be extended to route
//     cross-instance pub/sub for multi-node deployments).
type SessionStore struct {
	client   *redis.Client
	repo     app.QuestionRepository
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, repo app.QuestionRepository, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		repo:     repo,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
