package app_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestLoadQuestions(t *testing.T) {
	repo := &stubRepo{questions: makeQuestions(10)}
	session := app.NewSession("s1", repo)

	session.LoadQuestions(context.Background())

	loaded, ok := session.State().(domain.Loaded)
	if !ok {
		t.Fatalf("expected Loaded, got %T", session.State())
	}
	if len(loaded.Questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(loaded.Questions))
	}
	if session.CurrentIndex() != 0 {
		t.Fatalf("expected index 0, got %d", session.CurrentIndex())
	}
	if snap := currentSnapshot(session); len(snap.Answers) != 0 {
		t.Fatalf("expected no answers, got %v", snap.Answers)
	}
}

func TestLoadFailure(t *testing.T) {
	repo := &stubRepo{getErr: domain.NewQuizError(domain.Unknown, "source offline")}
	session := app.NewSession("s1", repo)

	session.LoadQuestions(context.Background())

	failed, ok := session.State().(domain.Failed)
	if !ok {
		t.Fatalf("expected Failed, got %T", session.State())
	}
	if failed.Message != "source offline" {
		t.Fatalf("expected rendered message, got %q", failed.Message)
	}

	// A failed session can retry.
	repo.getErr = nil
	session.LoadQuestions(context.Background())
	if _, ok := session.State().(domain.Loaded); !ok {
		t.Fatalf("expected Loaded after retry, got %T", session.State())
	}
}

func TestLoadWhileLoadingIsDropped(t *testing.T) {
	repo := &stubRepo{questions: makeQuestions(3), gate: make(chan struct{})}
	session := app.NewSession("s1", repo)

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.LoadQuestions(context.Background())
	}()

	waitForPhase(t, session, "loading")
	session.LoadQuestions(context.Background()) // dropped, no second fetch

	close(repo.gate)
	<-done

	if calls := atomic.LoadInt32(&repo.getCalls); calls != 1 {
		t.Fatalf("expected one fetch, got %d", calls)
	}
	if _, ok := session.State().(domain.Loaded); !ok {
		t.Fatalf("expected Loaded, got %T", session.State())
	}
}

func TestLoadWhileSubmittingIsDropped(t *testing.T) {
	session, repo := loadedSession(t, 3)
	repo.submitGate = make(chan struct{})
	for _, q := range repo.questions {
		session.SelectAnswer(q.ID, 0)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.SubmitQuiz(context.Background())
	}()

	waitForPhase(t, session, "submitting")
	session.LoadQuestions(context.Background()) // dropped, submission keeps going

	close(repo.submitGate)
	<-done

	if calls := atomic.LoadInt32(&repo.getCalls); calls != 1 {
		t.Fatalf("expected no reload during submit, got %d fetches", calls)
	}
	if _, ok := session.State().(domain.Submitted); !ok {
		t.Fatalf("expected Submitted, got %T", session.State())
	}
}

func TestSelectAnswerOverwrites(t *testing.T) {
	session, _ := loadedSession(t, 3)

	session.SelectAnswer(1, 1)
	session.SelectAnswer(1, 3)

	snap := currentSnapshot(session)
	if snap.Answers[1] != 3 {
		t.Fatalf("expected last answer to win, got %v", snap.Answers)
	}
	if len(snap.Answers) != 1 {
		t.Fatalf("expected one recorded answer, got %v", snap.Answers)
	}
}

func TestSelectAnswerIgnoredOutsideLoaded(t *testing.T) {
	repo := &stubRepo{questions: makeQuestions(3)}
	session := app.NewSession("s1", repo)

	session.SelectAnswer(1, 2)

	if snap := currentSnapshot(session); len(snap.Answers) != 0 {
		t.Fatalf("expected no answers in Initial, got %v", snap.Answers)
	}
}

func TestNavigationClamps(t *testing.T) {
	session, _ := loadedSession(t, 3)

	session.PreviousQuestion()
	if session.CurrentIndex() != 0 {
		t.Fatalf("expected clamp at first question, got %d", session.CurrentIndex())
	}

	session.NextQuestion()
	session.NextQuestion()
	if session.CurrentIndex() != 2 {
		t.Fatalf("expected index 2, got %d", session.CurrentIndex())
	}
	if !session.IsLastQuestion() {
		t.Fatalf("expected last question")
	}

	session.NextQuestion()
	if session.CurrentIndex() != 2 {
		t.Fatalf("expected clamp at last question, got %d", session.CurrentIndex())
	}

	session.PreviousQuestion()
	if session.CurrentIndex() != 1 {
		t.Fatalf("expected index 1, got %d", session.CurrentIndex())
	}
}

func TestSubmitRequiresAllAnswers(t *testing.T) {
	session, repo := loadedSession(t, 10)

	for i := 1; i <= 9; i++ {
		session.SelectAnswer(i, 0)
	}
	if session.AllAnswered() {
		t.Fatalf("expected allAnswered false with 9/10")
	}

	session.SubmitQuiz(context.Background())

	if _, ok := session.State().(domain.Loaded); !ok {
		t.Fatalf("expected Loaded, got %T", session.State())
	}
	if calls := atomic.LoadInt32(&repo.submitCalls); calls != 0 {
		t.Fatalf("expected no grading call, got %d", calls)
	}
}

func TestSubmitGrades(t *testing.T) {
	session, _ := loadedSession(t, 10)

	// Correct answers for 7 questions, wrong for the other 3.
	questions := session.State().(domain.Loaded).Questions
	for i, q := range questions {
		if i < 7 {
			session.SelectAnswer(q.ID, q.CorrectIndex)
		} else {
			session.SelectAnswer(q.ID, (q.CorrectIndex+1)%domain.OptionCount)
		}
	}
	if !session.AllAnswered() {
		t.Fatalf("expected allAnswered")
	}

	session.SubmitQuiz(context.Background())

	submitted, ok := session.State().(domain.Submitted)
	if !ok {
		t.Fatalf("expected Submitted, got %T", session.State())
	}
	if submitted.Result.Score() != 7 {
		t.Fatalf("expected score 7, got %d", submitted.Result.Score())
	}
	if submitted.Result.Percentage() != 0.7 {
		t.Fatalf("expected percentage 0.7, got %v", submitted.Result.Percentage())
	}
}

func TestSubmitFailurePreservesProgress(t *testing.T) {
	session, repo := loadedSession(t, 10)
	repo.submitErr = domain.NewQuizError(domain.Unknown, "network down")

	questions := session.State().(domain.Loaded).Questions
	for _, q := range questions {
		session.SelectAnswer(q.ID, q.CorrectIndex)
	}
	before := currentSnapshot(session)

	session.SubmitQuiz(context.Background())

	loaded, ok := session.State().(domain.Loaded)
	if !ok {
		t.Fatalf("expected Loaded after failed submit, got %T", session.State())
	}
	if len(loaded.Questions) != 10 {
		t.Fatalf("expected same question set, got %d", len(loaded.Questions))
	}
	if session.SubmitError() != "network down" {
		t.Fatalf("expected submit error set, got %q", session.SubmitError())
	}

	after := currentSnapshot(session)
	if len(after.Answers) != len(before.Answers) {
		t.Fatalf("expected answers preserved, before=%v after=%v", before.Answers, after.Answers)
	}
	for id, idx := range before.Answers {
		if after.Answers[id] != idx {
			t.Fatalf("answer for %d changed: %d -> %d", id, idx, after.Answers[id])
		}
	}

	// A retry clears the stale error and succeeds.
	repo.submitErr = nil
	session.SubmitQuiz(context.Background())
	if _, ok := session.State().(domain.Submitted); !ok {
		t.Fatalf("expected Submitted after retry, got %T", session.State())
	}
	if session.SubmitError() != "" {
		t.Fatalf("expected submit error cleared, got %q", session.SubmitError())
	}
}

func TestResetQuiz(t *testing.T) {
	session, _ := loadedSession(t, 3)
	questions := session.State().(domain.Loaded).Questions
	for _, q := range questions {
		session.SelectAnswer(q.ID, q.CorrectIndex)
	}
	session.NextQuestion()
	session.SubmitQuiz(context.Background())
	if _, ok := session.State().(domain.Submitted); !ok {
		t.Fatalf("expected Submitted, got %T", session.State())
	}

	session.ResetQuiz()

	if _, ok := session.State().(domain.Initial); !ok {
		t.Fatalf("expected Initial after reset, got %T", session.State())
	}
	snap := currentSnapshot(session)
	if len(snap.Answers) != 0 || snap.CurrentIndex != 0 || snap.SubmitError != "" {
		t.Fatalf("expected cleared session, got %+v", snap)
	}
}

func TestSubscribeSeesConsistentSnapshots(t *testing.T) {
	session, _ := loadedSession(t, 3)

	updates, cancel := session.Subscribe()
	defer cancel()

	first := <-updates
	if _, ok := first.State.(domain.Loaded); !ok {
		t.Fatalf("expected initial snapshot in Loaded, got %T", first.State)
	}

	session.SelectAnswer(1, 2)

	snap := <-updates
	if snap.Answers[1] != 2 {
		t.Fatalf("expected notification to carry the new answer, got %v", snap.Answers)
	}

	// The delivered map is a copy; mutating it must not reach the session.
	snap.Answers[1] = 0
	if currentSnapshot(session).Answers[1] != 2 {
		t.Fatalf("subscriber mutated session state")
	}
}

func TestSubscribeDeliversInitialSnapshotFirst(t *testing.T) {
	session, _ := loadedSession(t, 20)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 19; i++ {
			session.NextQuestion()
		}
	}()

	updates, cancel := session.Subscribe()
	defer cancel()

	// The first delivery is the snapshot taken at subscription time; every
	// later one reflects a subsequent mutation, so the index must never
	// move backwards.
	last := (<-updates).CurrentIndex
	for {
		select {
		case snap := <-updates:
			if snap.CurrentIndex < last {
				t.Fatalf("snapshot went backwards: index %d after %d", snap.CurrentIndex, last)
			}
			last = snap.CurrentIndex
		case <-done:
			return
		}
	}
}

func makeQuestions(n int) []domain.Question {
	questions := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		q, err := domain.NewQuestion(i, fmt.Sprintf("Question %d", i), []string{"A", "B", "C", "D"}, i%domain.OptionCount)
		if err != nil {
			panic(err)
		}
		questions = append(questions, q)
	}
	return questions
}

func loadedSession(t *testing.T, n int) (*app.Session, *stubRepo) {
	t.Helper()
	repo := &stubRepo{questions: makeQuestions(n)}
	session := app.NewSession("s1", repo)
	session.LoadQuestions(context.Background())
	if _, ok := session.State().(domain.Loaded); !ok {
		t.Fatalf("expected Loaded, got %T", session.State())
	}
	return session, repo
}

func currentSnapshot(session *app.Session) app.Snapshot {
	updates, cancel := session.Subscribe()
	defer cancel()
	return <-updates
}

func waitForPhase(t *testing.T, session *app.Session, phase string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if domain.PhaseName(session.State()) == phase {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached phase %q, stuck in %q", phase, domain.PhaseName(session.State()))
}

type stubRepo struct {
	questions   []domain.Question
	getErr      error
	submitErr   error
	getCalls    int32
	submitCalls int32
	gate        chan struct{} // when set, GetQuestions blocks until closed
	submitGate  chan struct{} // when set, SubmitAnswers blocks until closed
}

func (r *stubRepo) GetQuestions(_ context.Context) ([]domain.Question, error) {
	atomic.AddInt32(&r.getCalls, 1)
	if r.gate != nil {
		<-r.gate
	}
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.questions, nil
}

func (r *stubRepo) SubmitAnswers(questions []domain.Question, answers map[int]int) (domain.QuizResult, error) {
	atomic.AddInt32(&r.submitCalls, 1)
	if r.submitGate != nil {
		<-r.submitGate
	}
	if r.submitErr != nil {
		return domain.QuizResult{}, r.submitErr
	}
	return domain.NewQuizResult(questions, answers)
}
