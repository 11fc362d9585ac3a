package mafia

import "sync"

// Registry is the process-wide index of live game sessions keyed by chat
// id. Different chats proceed fully independently; the registry lock only
// guards the map itself, per-game serialization lives in the Session.
type Registry struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*Session),
	}
}

// Get retrieves the session for a chat.
func (r *Registry) Get(chatID int64) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	return s, ok
}

// Create registers a new session for a chat. It returns false and the
// existing session when the chat already hosts one, so two concurrent
// lobby commands cannot both win.
func (r *Registry) Create(chatID, creatorID int64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[chatID]; ok {
		return existing, false
	}
	s := newSession(chatID, creatorID)
	r.sessions[chatID] = s
	return s, true
}

// Put registers an already-built session, used when rebuilding state
// from the store after a restart.
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ChatID] = s
}

// Remove drops the session for a chat. Removing an absent chat is a no-op.
func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Each calls fn for every live session. Used to locate the session a
// private message belongs to, e.g. a last-word reply.
func (r *Registry) Each(fn func(*Session) bool) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if !fn(s) {
			return
		}
	}
}
