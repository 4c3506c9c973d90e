package domain

// OptionCount is the number of options every question carries.
const OptionCount = 4

// RawRecord is the loosely typed question shape delivered by a QuestionSource.
// Field values arrive however the backing store serialized them; the question
// repository is responsible for coercing and validating them.
type RawRecord map[string]any

// Question is a single multiple-choice question. Identity is by ID; the value
// is immutable after construction.
type Question struct {
	ID           int      `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

// NewQuestion validates and builds a Question. The options slice is copied so
// later caller mutation cannot leak in.
func NewQuestion(id int, text string, options []string, correctIndex int) (Question, error) {
	if len(options) != OptionCount {
		return Question{}, &InvalidQuestionError{ID: id, Reason: "must have exactly 4 options"}
	}
	if correctIndex < 0 || correctIndex >= OptionCount {
		return Question{}, &InvalidQuestionError{ID: id, Reason: "correct index out of range"}
	}
	opts := make([]string, OptionCount)
	copy(opts, options)
	return Question{ID: id, Text: text, Options: opts, CorrectIndex: correctIndex}, nil
}

// QuizResult is the graded outcome of a completed session. It is built once at
// submission time and consumed read-only; everything beyond the question list
// and the answer map is derived.
type QuizResult struct {
	Questions       []Question  `json:"questions"`
	SelectedAnswers map[int]int `json:"selectedAnswers"`
}

// NewQuizResult copies both inputs and rejects answers that reference a
// question outside the set.
func NewQuizResult(questions []Question, selected map[int]int) (QuizResult, error) {
	qs := make([]Question, len(questions))
	copy(qs, questions)

	known := make(map[int]struct{}, len(qs))
	for _, q := range qs {
		known[q.ID] = struct{}{}
	}

	answers := make(map[int]int, len(selected))
	for id, idx := range selected {
		if _, ok := known[id]; !ok {
			return QuizResult{}, &InvalidQuestionError{ID: id, Reason: "answer references unknown question"}
		}
		answers[id] = idx
	}
	return QuizResult{Questions: qs, SelectedAnswers: answers}, nil
}

// Total is the number of questions in the session set.
func (r QuizResult) Total() int {
	return len(r.Questions)
}

// Score counts questions whose selected answer matches the correct index.
func (r QuizResult) Score() int {
	score := 0
	for _, q := range r.Questions {
		if idx, ok := r.SelectedAnswers[q.ID]; ok && idx == q.CorrectIndex {
			score++
		}
	}
	return score
}

// IncorrectCount counts answered-wrong and unanswered questions.
func (r QuizResult) IncorrectCount() int {
	return r.Total() - r.Score()
}

// Percentage is Score/Total, 0.0 for an empty set.
func (r QuizResult) Percentage() float64 {
	total := r.Total()
	if total == 0 {
		return 0.0
	}
	return float64(r.Score()) / float64(total)
}

// WasAnswered reports whether an answer was recorded for the question.
func (r QuizResult) WasAnswered(q Question) bool {
	_, ok := r.SelectedAnswers[q.ID]
	return ok
}

// IsCorrect reports whether the recorded answer matches the correct option.
func (r QuizResult) IsCorrect(q Question) bool {
	idx, ok := r.SelectedAnswers[q.ID]
	return ok && idx == q.CorrectIndex
}

// SelectedAnswerText returns the text of the chosen option, and false when the
// question was never answered or the stored index is out of range.
func (r QuizResult) SelectedAnswerText(q Question) (string, bool) {
	idx, ok := r.SelectedAnswers[q.ID]
	if !ok || idx < 0 || idx >= len(q.Options) {
		return "", false
	}
	return q.Options[idx], true
}
