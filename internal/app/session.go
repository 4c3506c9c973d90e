package app

import (
	"context"
	"errors"
	"sync"

	"quiz-session-service/internal/domain"
)

// QuestionRepository is the session's view of the question repository. Both
// calls fail only with *domain.QuizError.
type QuestionRepository interface {
	GetQuestions(ctx context.Context) ([]domain.Question, error)
	SubmitAnswers(questions []domain.Question, answers map[int]int) (domain.QuizResult, error)
}

// Snapshot is the consistent view handed to subscribers after each mutation.
// The answers map is a copy; readers may keep it.
type Snapshot struct {
	SessionID    string
	State        domain.SessionState
	CurrentIndex int
	Answers      map[int]int
	SubmitError  string
}

// Session is the view-model for a single quiz run. It owns the current
// SessionState plus the fields that must survive a failed submission (current
// index, recorded answers, last submit error) and notifies subscribers after
// every state mutation. It assumes a single logical mutator; the mutex keeps
// subscriber snapshots consistent.
type Session struct {
	id   string
	repo QuestionRepository

	mu           sync.RWMutex
	state        domain.SessionState
	questions    []domain.Question
	currentIndex int
	answers      map[int]int
	submitError  string
	subscribers  map[chan Snapshot]struct{}
}

func NewSession(id string, repo QuestionRepository) *Session {
	return &Session{
		id:          id,
		repo:        repo,
		state:       domain.Initial{},
		answers:     make(map[int]int),
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// LoadQuestions fetches the question set. A call while a load or submission is
// already in flight is dropped, so at most one repository call is ever active.
// Safe to call again after Failed or Submitted to start over.
func (s *Session) LoadQuestions(ctx context.Context) {
	s.mu.Lock()
	switch s.state.(type) {
	case domain.Loading, domain.Submitting:
		s.mu.Unlock()
		return
	}
	s.state = domain.Loading{}
	s.notifyLocked()
	s.mu.Unlock()

	questions, err := s.repo.GetQuestions(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = domain.Failed{Message: userMessage(err)}
		s.notifyLocked()
		return
	}
	s.questions = questions
	s.currentIndex = 0
	s.answers = make(map[int]int)
	s.state = domain.Loaded{Questions: questions}
	s.notifyLocked()
}

// SelectAnswer records (or overwrites) the chosen option for a question.
// Ignored outside Loaded. Out-of-range indexes are stored as-is; they simply
// never grade as correct.
func (s *Session) SelectAnswer(questionID, optionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(domain.Loaded); !ok {
		return
	}
	s.answers[questionID] = optionIndex
	s.notifyLocked()
}

// NextQuestion advances the cursor, clamped at the last question.
func (s *Session) NextQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(domain.Loaded); !ok {
		return
	}
	if s.currentIndex >= len(s.questions)-1 {
		return
	}
	s.currentIndex++
	s.notifyLocked()
}

// PreviousQuestion moves the cursor back, clamped at the first question.
func (s *Session) PreviousQuestion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(domain.Loaded); !ok {
		return
	}
	if s.currentIndex == 0 {
		return
	}
	s.currentIndex--
	s.notifyLocked()
}

// SubmitQuiz grades the session. Ignored unless every presented question has
// an answer. On failure the session reverts to Loaded with the same questions
// and answers and the error message lands in SubmitError, so user progress is
// never lost.
func (s *Session) SubmitQuiz(ctx context.Context) {
	s.mu.Lock()
	if _, ok := s.state.(domain.Loaded); !ok || len(s.answers) != len(s.questions) {
		s.mu.Unlock()
		return
	}
	s.submitError = ""
	s.state = domain.Submitting{}
	questions := s.questions
	answers := copyAnswers(s.answers)
	s.notifyLocked()
	s.mu.Unlock()

	result, err := s.repo.SubmitAnswers(questions, answers)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.submitError = userMessage(err)
		s.state = domain.Loaded{Questions: s.questions}
		s.notifyLocked()
		return
	}
	s.state = domain.Submitted{Result: result}
	s.notifyLocked()
}

// ResetQuiz returns the session to Initial and clears all progress.
// Callable from any state.
func (s *Session) ResetQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = nil
	s.answers = make(map[int]int)
	s.currentIndex = 0
	s.submitError = ""
	s.state = domain.Initial{}
	s.notifyLocked()
}

// State returns the current variant.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

func (s *Session) SubmitError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.submitError
}

// IsLastQuestion reports whether the cursor sits on the final question.
func (s *Session) IsLastQuestion() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions) > 0 && s.currentIndex == len(s.questions)-1
}

// HasAnsweredCurrent reports whether the question under the cursor has a
// recorded answer.
func (s *Session) HasAnsweredCurrent() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentIndex >= len(s.questions) {
		return false
	}
	_, ok := s.answers[s.questions[s.currentIndex].ID]
	return ok
}

// AllAnswered reports whether every presented question has an answer.
func (s *Session) AllAnswered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.answers) == len(s.questions)
}

// IsIdle reports whether no subscribers are attached.
func (s *Session) IsIdle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) == 0
}

// Subscribe returns a channel that receives a snapshot after every mutation,
// starting with the current one. The caller must invoke the returned cancel
// function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	// Queue the current snapshot before releasing the lock so a concurrent
	// mutation cannot deliver a newer snapshot ahead of it. The channel is
	// empty and buffered, so the send cannot block.
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) notifyLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow reader never blocks a mutation.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:    s.id,
		State:        s.state,
		CurrentIndex: s.currentIndex,
		Answers:      copyAnswers(s.answers),
		SubmitError:  s.submitError,
	}
}

func copyAnswers(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for id, idx := range in {
		out[id] = idx
	}
	return out
}

func userMessage(err error) string {
	var quizErr *domain.QuizError
	if errors.As(err, &quizErr) {
		return quizErr.Message
	}
	return err.Error()
}
