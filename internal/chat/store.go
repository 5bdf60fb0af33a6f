package chat

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrSendInFlight    = errors.New("a send is already in flight")
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
)

type conversation struct {
	session  Session
	messages []Message
}

// Store holds every session and its messages in memory. Sessions are kept
// newest first. At most one send is in flight at a time across all sessions.
type Store struct {
	mu sync.Mutex

	convs    []*conversation
	activeID uint64 // 0 when no session exists
	nextID   uint64

	sending   bool
	pendingID uint64 // session the in-flight send was accepted on

	now func() time.Time
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store holding one fresh, active session.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{nextID: 1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createLocked(firstPreview)
	return s
}

func (s *Store) createLocked(preview string) Session {
	now := s.now()
	c := &conversation{
		session: Session{
			ID:        s.nextID,
			Title:     DefaultTitle,
			Preview:   preview,
			CreatedAt: now,
		},
		messages: []Message{{
			ID:      1,
			Role:    RoleAssistant,
			Content: GreetingText,
			SentAt:  now,
		}},
	}
	s.nextID++
	s.convs = append([]*conversation{c}, s.convs...)
	s.activeID = c.session.ID
	return c.session
}

func (s *Store) findLocked(id uint64) (int, *conversation) {
	for i, c := range s.convs {
		if c.session.ID == id {
			return i, c
		}
	}
	return -1, nil
}

// CreateSession adds a session seeded with the greeting and makes it active.
func (s *Store) CreateSession() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(newPreview)
}

// DeleteSession removes the session if present. Deleting the active session
// activates the first remaining one, or leaves none active.
func (s *Store) DeleteSession(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, c := s.findLocked(id)
	if c == nil {
		return
	}
	s.convs = append(s.convs[:i], s.convs[i+1:]...)
	if s.activeID != id {
		return
	}
	if len(s.convs) > 0 {
		s.activeID = s.convs[0].session.ID
	} else {
		s.activeID = 0
	}
}

func (s *Store) SelectSession(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, c := s.findLocked(id); c == nil {
		return ErrSessionNotFound
	}
	s.activeID = id
	return nil
}

// AppendUserMessage opens a send: it appends the user message to the active
// session, marks the store as sending and returns the full history to send
// upstream. Blank text, an in-flight send or a missing active session reject
// the call without touching state.
func (s *Store) AppendUserMessage(text string) (uint64, []Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return 0, nil, ErrEmptyMessage
	}
	if s.sending {
		return 0, nil, ErrSendInFlight
	}
	_, c := s.findLocked(s.activeID)
	if c == nil {
		return 0, nil, ErrNoActiveSession
	}

	c.messages = append(c.messages, Message{
		ID:      uint64(len(c.messages)) + 1,
		Role:    RoleUser,
		Content: text,
		SentAt:  s.now(),
	})
	s.sending = true
	s.pendingID = c.session.ID

	return c.session.ID, append([]Message(nil), c.messages...), nil
}

// AppendAssistantMessage closes the in-flight send by appending text to the
// session the send started on. A reply for a session deleted meanwhile is
// dropped. Without a send in flight it appends to the active session.
// The bool reports whether a message was appended.
func (s *Store) AppendAssistantMessage(text string) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.activeID
	if s.sending {
		target = s.pendingID
		s.sending = false
		s.pendingID = 0
	}

	_, c := s.findLocked(target)
	if c == nil {
		return Message{}, false
	}
	m := Message{
		ID:      uint64(len(c.messages)) + 1,
		Role:    RoleAssistant,
		Content: text,
		SentAt:  s.now(),
	}
	c.messages = append(c.messages, m)
	return m, true
}

func (s *Store) AppendFallbackMessage() (Message, bool) {
	return s.AppendAssistantMessage(FallbackText)
}

func (s *Store) Sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// Sessions returns a copy of the sessions, newest first.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Session, 0, len(s.convs))
	for _, c := range s.convs {
		out = append(out, c.session)
	}
	return out
}

// Active returns the active session, if any.
func (s *Store) Active() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c := s.findLocked(s.activeID)
	if c == nil {
		return Session{}, false
	}
	return c.session, true
}

// Messages returns a copy of the active session's history.
func (s *Store) Messages() ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c := s.findLocked(s.activeID)
	if c == nil {
		return nil, ErrNoActiveSession
	}
	return append([]Message(nil), c.messages...), nil
}

// SessionMessages returns a copy of the history of any session.
func (s *Store) SessionMessages(id uint64) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, c := s.findLocked(id)
	if c == nil {
		return nil, ErrSessionNotFound
	}
	return append([]Message(nil), c.messages...), nil
}
