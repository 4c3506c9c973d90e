package app

import (
	"context"
	"errors"

	"quiz-session-service/internal/domain"
)

// QuestionSource delivers raw question records from a backing store
// (Postgres, Redis cache, static demo data).
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.RawRecord, error)
}

// User-facing messages carried by QuizError; rendered here once so callers
// never have to interpret the underlying fault.
const (
	msgLoadFailed    = "Couldn't load the quiz. Check your connection and try again."
	msgMalformedData = "The quiz questions arrived in an unexpected format."
	msgInvalidData   = "The quiz contains invalid questions and can't be started."
	msgSubmitFailed  = "Something went wrong while grading your answers."
)

// Repository translates raw records into validated questions and grades
// completed sessions. It is the only layer that catches and retypes raw
// faults; everything above it matches on *domain.QuizError alone.
type Repository struct {
	source QuestionSource
}

func NewRepository(source QuestionSource) *Repository {
	return &Repository{source: source}
}

// GetQuestions fetches and maps the question set. Shape mismatches surface as
// MalformedData, domain validation failures as InvalidData, and any other
// fault as Unknown.
func (r *Repository) GetQuestions(ctx context.Context) ([]domain.Question, error) {
	records, err := r.source.FetchQuestions(ctx)
	if err != nil {
		return nil, domain.NewQuizError(domain.Unknown, msgLoadFailed)
	}

	questions := make([]domain.Question, 0, len(records))
	for _, rec := range records {
		question, err := mapRecord(rec)
		if err != nil {
			var invalid *domain.InvalidQuestionError
			if errors.As(err, &invalid) {
				return nil, domain.NewQuizError(domain.InvalidData, msgInvalidData)
			}
			return nil, domain.NewQuizError(domain.MalformedData, msgMalformedData)
		}
		questions = append(questions, question)
	}
	return questions, nil
}

// SubmitAnswers grades a completed session. Pure in-memory computation; the
// constructor failure path is wrapped so the session controller has exactly
// one error type to handle from either call.
func (r *Repository) SubmitAnswers(questions []domain.Question, answers map[int]int) (domain.QuizResult, error) {
	result, err := domain.NewQuizResult(questions, answers)
	if err != nil {
		return domain.QuizResult{}, domain.NewQuizError(domain.Unknown, msgSubmitFailed)
	}
	return result, nil
}

var errBadShape = errors.New("record shape mismatch")

func mapRecord(rec domain.RawRecord) (domain.Question, error) {
	id, err := intField(rec, "id")
	if err != nil {
		return domain.Question{}, err
	}
	text, err := stringField(rec, "text")
	if err != nil {
		return domain.Question{}, err
	}
	options, err := stringSliceField(rec, "options")
	if err != nil {
		return domain.Question{}, err
	}
	correctIndex, err := intField(rec, "correctIndex")
	if err != nil {
		return domain.Question{}, err
	}
	return domain.NewQuestion(id, text, options, correctIndex)
}

// intField tolerates the numeric types JSON decoding and in-memory records
// produce for what is logically an integer.
func intField(rec domain.RawRecord, key string) (int, error) {
	switch n := rec[key].(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, errBadShape
		}
		return int(n), nil
	default:
		return 0, errBadShape
	}
}

func stringField(rec domain.RawRecord, key string) (string, error) {
	s, ok := rec[key].(string)
	if !ok {
		return "", errBadShape
	}
	return s, nil
}

func stringSliceField(rec domain.RawRecord, key string) ([]string, error) {
	switch v := rec[key].(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errBadShape
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errBadShape
	}
}
