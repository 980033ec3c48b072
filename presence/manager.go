package presence

import (
	"sync"

	"go.uber.org/zap"
)

// Manager is the in-memory registry of players currently logged in. The
// realtime gateway owns connections; the core only tracks who holds an
// active session, for friend-list decoration and metrics.
type Manager struct {
	mu     sync.RWMutex
	online map[int64]struct{} // player ID → present
	logger *zap.Logger
}

// NewManager creates a new Manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		online: make(map[int64]struct{}),
		logger: logger,
	}
}

// SetOnline marks a player as logged in. Repeat logins are a no-op.
func (m *Manager) SetOnline(playerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.online[playerID]; ok {
		return
	}
	m.online[playerID] = struct{}{}
	m.logger.Info("player online", zap.Int64("player_id", playerID))
}

// SetOffline removes a player from the registry.
func (m *Manager) SetOffline(playerID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.online[playerID]; !ok {
		return
	}
	delete(m.online, playerID)
	m.logger.Info("player offline", zap.Int64("player_id", playerID))
}

// IsOnline reports whether a player currently holds a session.
func (m *Manager) IsOnline(playerID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.online[playerID]
	return ok
}

// Count returns the number of players currently online.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.online)
}

// Snapshot returns the IDs of all players currently online.
func (m *Manager) Snapshot() []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int64, 0, len(m.online))
	for id := range m.online {
		out = append(out, id)
	}
	return out
}
