package domain

import "fmt"

// ErrorKind classifies why the question repository failed.
type ErrorKind int

const (
	// MalformedData means a raw record did not match the expected shape.
	MalformedData ErrorKind = iota
	// InvalidData means a record parsed but failed domain validation.
	InvalidData
	// Unknown covers every other fault from the source or grading.
	Unknown
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedData:
		return "malformed_data"
	case InvalidData:
		return "invalid_data"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// QuizError is the single error type surfaced above the question repository.
// Message is pre-rendered for display; callers never inspect the original
// fault.
type QuizError struct {
	Kind    ErrorKind
	Message string
}

func NewQuizError(kind ErrorKind, message string) *QuizError {
	return &QuizError{Kind: kind, Message: message}
}

func (e *QuizError) Error() string {
	return e.Message
}

// InvalidQuestionError reports a question value that failed domain validation.
type InvalidQuestionError struct {
	ID     int
	Reason string
}

func (e *InvalidQuestionError) Error() string {
	return fmt.Sprintf("invalid question %d: %s", e.ID, e.Reason)
}
