package memory

import (
	"strings"
	"sync"
)

// DefaultMaxTurns is the history window used when none is configured.
const DefaultMaxTurns = 6

// AnonymousSession is the key used for requests without a session id. All
// such requests share one history.
const AnonymousSession = "anonymous"

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// User returns a user turn.
func User(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// Assistant returns an assistant turn.
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// Store keeps a bounded conversation history per session.
type Store interface {
	// History returns a copy of the session's turns, oldest first.
	History(sessionID string) []Turn
	// Append records one completed exchange and trims the history to the
	// window.
	Append(sessionID string, user, assistant Turn)
	// Reset drops a session's history.
	Reset(sessionID string)
}

// Key normalises a session id; blank ids map to AnonymousSession.
func Key(sessionID string) string {
	if strings.TrimSpace(sessionID) == "" {
		return AnonymousSession
	}
	return sessionID
}

// InMemory is a process-local Store. Appends to one session are serialised;
// different sessions never wait on each other beyond the map lookup.
type InMemory struct {
	maxTurns int

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	turns []Turn
}

// NewInMemory creates a store keeping at most maxTurns turns per session.
// maxTurns <= 0 uses DefaultMaxTurns; odd values are rounded up so the window
// always holds whole exchanges.
func NewInMemory(maxTurns int) *InMemory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if maxTurns%2 != 0 {
		maxTurns++
	}
	return &InMemory{
		maxTurns: maxTurns,
		sessions: make(map[string]*session),
	}
}

// MaxTurns returns the window size.
func (m *InMemory) MaxTurns() int { return m.maxTurns }

func (m *InMemory) get(sessionID string, create bool) *session {
	key := Key(sessionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key]
	if !ok && create {
		s = &session{}
		m.sessions[key] = s
	}
	return s
}

func (m *InMemory) History(sessionID string) []Turn {
	s := m.get(sessionID, false)
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (m *InMemory) Append(sessionID string, user, assistant Turn) {
	s := m.get(sessionID, true)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = append(s.turns, user, assistant)
	if over := len(s.turns) - m.maxTurns; over > 0 {
		kept := make([]Turn, m.maxTurns)
		copy(kept, s.turns[over:])
		s.turns = kept
	}
}

func (m *InMemory) Reset(sessionID string) {
	key := Key(sessionID)

	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
}

// Sessions returns the number of sessions with history.
func (m *InMemory) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
