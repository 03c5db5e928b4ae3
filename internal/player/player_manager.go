package player

import (
	"sync"
)

// SessionManager owns one Session per guild, created on first use.
type SessionManager struct {
	mu       sync.Mutex
	deps     Deps
	opts     Options
	sessions map[string]*Session
	onCreate func(*Session)
}

func NewSessionManager(deps Deps, opts Options) *SessionManager {
	return &SessionManager{
		deps:     deps,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// OnCreate registers fn to run for every new session, e.g. to start an
// event consumer. It must be set before the first Get.
func (m *SessionManager) OnCreate(fn func(*Session)) { m.onCreate = fn }

func (m *SessionManager) Get(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		return s
	}
	s := NewSession(guildID, m.deps, m.opts)
	m.sessions[guildID] = s
	if m.onCreate != nil {
		m.onCreate(s)
	}
	return s
}

func (m *SessionManager) Peek(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[guildID]
}

func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
}
