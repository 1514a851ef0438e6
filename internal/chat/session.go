package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/manualqa/internal/llm"
)

// ErrSessionBusy is returned when a question is submitted to a session that
// is still waiting for the answer to a previous one.
var ErrSessionBusy = errors.New("session is already answering a question")

// State is the conversation state of a session.
type State int

const (
	StateIdle State = iota
	StateAwaitingAnswer
)

func (s State) String() string {
	if s == StateAwaitingAnswer {
		return "awaiting_answer"
	}
	return "idle"
}

// Turn is one message of a conversation.
type Turn struct {
	Role    llm.Role  `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session holds the ordered history of one conversation. It is owned by the
// caller and mutated only through Engine.Ask.
type Session struct {
	ID string

	mu    sync.Mutex
	turns []Turn
	state State
}

// NewSession starts an empty session. An empty id gets a random UUID.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	return &Session{ID: id}
}

// RestoreSession rebuilds a session from persisted turns.
func RestoreSession(id string, turns []Turn) *Session {
	s := NewSession(id)
	s.turns = append([]Turn(nil), turns...)
	return s
}

// Turns returns a copy of the history.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// Len returns the number of turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript renders the history as "User: ..." and "Assistant: ..." lines.
// It is empty before the first answered question.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for i, t := range s.turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(speaker(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	return b.String()
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAwaitingAnswer {
		return ErrSessionBusy
	}
	s.state = StateAwaitingAnswer
	return nil
}

func (s *Session) finish(turns ...Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	s.state = StateIdle
}

func speaker(r llm.Role) string {
	switch r {
	case llm.RoleUser:
		return "User"
	case llm.RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}
