// session/session.go
package session

import (
	"net"
	"sync"
	"time"

	"github.com/wfunc/battleship/network"
)

// Session is one connected client on the primary stream.
type Session struct {
	ID        string
	Conn      network.Connection
	Ordinal   int
	CreatedAt time.Time
	// Transport is "tcp" or "ws".
	Transport  string
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection, transport string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		Ordinal:    -1,
		CreatedAt:  now,
		Transport:  transport,
		lastActive: now,
	}
}

// Send writes one line to the client.
func (s *Session) Send(text string) error {
	return s.Conn.SendLine(text)
}

// Touch records activity from the client.
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) GetID() string {
	return s.ID
}

// RemoteAddr is the peer address of the command connection.
func (s *Session) RemoteAddr() net.Addr {
	return s.Conn.RemoteAddr()
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Remove(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every tracked connection, used on shutdown.
func (m *Manager) CloseAll() {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, s := range m.sessions {
		s.Close()
	}
}
