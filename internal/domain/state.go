package domain

import "fmt"

// SessionState is the closed set of phases a quiz session moves through.
// Exactly one variant is active at a time. Consumers must branch over all six
// variants; PhaseName is the canonical exhaustive switch and panics on
// anything it does not recognize.
type SessionState interface {
	sessionState()
}

// Initial means no load has been attempted yet.
type Initial struct{}

// Loading means a question fetch is in flight.
type Loading struct{}

// Loaded is an active session holding the presented question set. Answers are
// tracked by the session controller, not here.
type Loaded struct {
	Questions []Question
}

// Submitting means grading is in flight.
type Submitting struct{}

// Submitted is a completed session carrying its graded outcome.
type Submitted struct {
	Result QuizResult
}

// Failed means the load attempt failed; the session can retry.
type Failed struct {
	Message string
}

func (Initial) sessionState()    {}
func (Loading) sessionState()    {}
func (Loaded) sessionState()     {}
func (Submitting) sessionState() {}
func (Submitted) sessionState()  {}
func (Failed) sessionState()     {}

// PhaseName renders the variant as a stable wire identifier.
func PhaseName(state SessionState) string {
	switch state.(type) {
	case Initial:
		return "initial"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	default:
		panic(fmt.Sprintf("unhandled session state %T", state))
	}
}
