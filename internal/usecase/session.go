package usecase

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lexai/internal/domain"
)

// Session is one conversation. Its message log keeps at most maxMessages
// entries, dropping the oldest first.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	messages    []domain.Message
	maxMessages int
}

func (s *Session) Append(role, content string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, domain.Message{Role: role, Content: content, At: at})
	if s.maxMessages > 0 && len(s.messages) > s.maxMessages {
		s.messages = append([]domain.Message(nil), s.messages[len(s.messages)-s.maxMessages:]...)
	}
}

// Messages returns a copy of the log, oldest first.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

// Recent returns up to n of the newest messages.
func (s *Session) Recent(n int) []domain.Message {
	msgs := s.Messages()
	if n >= 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs
}

// SessionRegistry owns every live session. It is safe for concurrent use.
type SessionRegistry struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxMessages int
	now         func() time.Time
	logger      *slog.Logger
}

func NewSessionRegistry(maxMessages int, logger *slog.Logger) *SessionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRegistry{
		sessions:    make(map[string]*Session),
		maxMessages: maxMessages,
		now:         time.Now,
		logger:      logger.With("component", "sessions"),
	}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// GetOrCreate returns the session for id, creating it if needed. An empty id
// gets a new random one. created reports whether a session was made.
func (r *SessionRegistry) GetOrCreate(id string) (s *Session, created bool) {
	if id == "" {
		id = NewSessionID()
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return s, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s = &Session{
		ID:          id,
		CreatedAt:   r.now(),
		maxMessages: r.maxMessages,
	}
	r.sessions[id] = s
	r.logger.Info("created new session", "session_id", id)
	return s, true
}

func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete forgets a session and reports whether it existed.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the live session ids in sorted order.
func (r *SessionRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
