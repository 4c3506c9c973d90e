package nav

import (
	"fmt"

	"quiz-session-service/internal/domain"
)

// Destination identifies a screen the routing layer wants to show.
type Destination string

const (
	DestinationEntry    Destination = "entry"
	DestinationQuestion Destination = "question"
	DestinationResults  Destination = "results"
)

// Decision is the outcome of a guard evaluation: either proceed, or redirect
// to the given destination.
type Decision struct {
	Allowed  bool
	Redirect Destination
}

func proceed() Decision {
	return Decision{Allowed: true}
}

func redirect(to Destination) Decision {
	return Decision{Redirect: to}
}

// Decide checks whether the requested destination is reachable from the
// current session state. For the results screen the caller also supplies the
// payload accompanying the request; it must be a domain.QuizResult. The
// function is stateless and must be re-evaluated on every observed state
// change, since a reset or failure can land between the navigation request
// and the render.
func Decide(state domain.SessionState, dest Destination, payload any) Decision {
	switch dest {
	case DestinationQuestion:
		switch state.(type) {
		case domain.Initial:
			// Nothing to display yet.
			return redirect(DestinationEntry)
		case domain.Loading, domain.Loaded, domain.Submitting, domain.Submitted, domain.Failed:
			return proceed()
		default:
			panic(fmt.Sprintf("unhandled session state %T", state))
		}
	case DestinationResults:
		// State is the source of truth; the payload check additionally stops
		// deep links that bypass the normal flow.
		if _, ok := state.(domain.Submitted); !ok {
			return redirect(DestinationEntry)
		}
		if _, ok := payload.(domain.QuizResult); !ok {
			return redirect(DestinationEntry)
		}
		return proceed()
	default:
		return proceed()
	}
}
