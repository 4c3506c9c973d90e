package http

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/nav"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(sessionID string) *app.Session
	Get(sessionID string) (*app.Session, bool)
	DeleteIfIdle(sessionID string)
}

type WSHandler struct {
	sessions SessionRepository
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions SessionRepository) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectAnswerPayload struct {
	QuestionID  int `json:"questionId"`
	OptionIndex int `json:"optionIndex"`
}

type navigatePayload struct {
	Destination string `json:"destination"`
	WithResult  bool   `json:"withResult"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView is the wire form of a question; the correct index stays
// server-side until grading.
type questionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type reviewView struct {
	QuestionID   int    `json:"questionId"`
	Text         string `json:"text"`
	Answered     bool   `json:"answered"`
	Correct      bool   `json:"correct"`
	SelectedText string `json:"selectedText,omitempty"`
	CorrectText  string `json:"correctText"`
}

type resultView struct {
	Score          int          `json:"score"`
	IncorrectCount int          `json:"incorrectCount"`
	Total          int          `json:"total"`
	Percentage     float64      `json:"percentage"`
	Review         []reviewView `json:"review"`
}

type stateView struct {
	SessionID    string         `json:"sessionId"`
	Phase        string         `json:"phase"`
	Questions    []questionView `json:"questions,omitempty"`
	CurrentIndex int            `json:"currentIndex"`
	Answers      map[int]int    `json:"answers,omitempty"`
	AllAnswered  bool           `json:"allAnswered"`
	LastQuestion bool           `json:"lastQuestion"`
	SubmitError  string         `json:"submitError,omitempty"`
	Message      string         `json:"message,omitempty"`
	Result       *resultView    `json:"result,omitempty"`
}

type navigateDecision struct {
	Destination string `json:"destination"`
	Allowed     bool   `json:"allowed"`
	Redirect    string `json:"redirect,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into a quiz
// session: inbound messages drive controller actions, and every controller
// notification is pushed back as a state message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := h.sessions.GetOrCreate(sessionID)
	updates, cancel := session.Subscribe()
	defer func() {
		cancel()
		h.sessions.DeleteIfIdle(sessionID)
	}()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: renderState(snap)}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "load":
			session.LoadQuestions(r.Context())
		case "selectAnswer":
			var payload selectAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid selectAnswer payload"}}
				continue
			}
			session.SelectAnswer(payload.QuestionID, payload.OptionIndex)
		case "next":
			session.NextQuestion()
		case "previous":
			session.PreviousQuestion()
		case "submit":
			session.SubmitQuiz(r.Context())
		case "reset":
			session.ResetQuiz()
		case "navigate":
			var payload navigatePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid navigate payload"}}
				continue
			}
			send <- outboundMessage[any]{Type: "navigate", Payload: h.decide(session, payload)}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// decide re-evaluates the navigation guard against the session's current
// state. The result payload only accompanies the request when the client says
// it holds one and the session actually produced it.
func (h *WSHandler) decide(session *app.Session, payload navigatePayload) navigateDecision {
	state := session.State()

	var guardPayload any
	if payload.WithResult {
		if submitted, ok := state.(domain.Submitted); ok {
			guardPayload = submitted.Result
		}
	}

	decision := nav.Decide(state, nav.Destination(payload.Destination), guardPayload)
	return navigateDecision{
		Destination: payload.Destination,
		Allowed:     decision.Allowed,
		Redirect:    string(decision.Redirect),
	}
}

func renderState(snap app.Snapshot) stateView {
	view := stateView{
		SessionID:    snap.SessionID,
		Phase:        domain.PhaseName(snap.State),
		CurrentIndex: snap.CurrentIndex,
		Answers:      snap.Answers,
		SubmitError:  snap.SubmitError,
	}

	switch state := snap.State.(type) {
	case domain.Initial, domain.Loading, domain.Submitting:
	case domain.Loaded:
		view.Questions = renderQuestions(state.Questions)
		view.AllAnswered = len(snap.Answers) == len(state.Questions)
		view.LastQuestion = len(state.Questions) > 0 && snap.CurrentIndex == len(state.Questions)-1
	case domain.Submitted:
		view.Result = renderResult(state.Result)
	case domain.Failed:
		view.Message = state.Message
	default:
		panic(fmt.Sprintf("unhandled session state %T", snap.State))
	}
	return view
}

func renderQuestions(questions []domain.Question) []questionView {
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, questionView{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	return views
}

func renderResult(result domain.QuizResult) *resultView {
	review := make([]reviewView, 0, result.Total())
	for _, q := range result.Questions {
		selected, _ := result.SelectedAnswerText(q)
		review = append(review, reviewView{
			QuestionID:   q.ID,
			Text:         q.Text,
			Answered:     result.WasAnswered(q),
			Correct:      result.IsCorrect(q),
			SelectedText: selected,
			CorrectText:  q.Options[q.CorrectIndex],
		})
	}
	return &resultView{
		Score:          result.Score(),
		IncorrectCount: result.IncorrectCount(),
		Total:          result.Total(),
		Percentage:     result.Percentage(),
		Review:         review,
	}
}
