package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/popolling/server/internal/models"
)

// MemoryStore keeps sessions in process. Suitable for a single instance and
// for tests; everything is lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]models.RefreshSession
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.RefreshSession), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, s *models.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return ErrSessionExists
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Find(_ context.Context, id string) (*models.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Revoke(_ context.Context, id, replacedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	m.revokeLocked(&s, replacedBy, m.now())
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) revokeLocked(s *models.RefreshSession, replacedBy string, at time.Time) {
	if !s.Revoked {
		s.Revoked = true
		s.RevokedAt = &at
	}
	if s.ReplacedBy == "" {
		s.ReplacedBy = replacedBy
	}
}

func (m *MemoryStore) Rotate(_ context.Context, oldID string, next *models.RefreshSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.sessions[oldID]
	if !ok {
		return ErrSessionNotFound
	}
	if old.Revoked {
		return ErrSessionRevoked
	}
	if _, dup := m.sessions[next.ID]; dup {
		return ErrSessionExists
	}
	m.revokeLocked(&old, next.ID, rotationTime(next, m.now))
	m.sessions[oldID] = old
	m.sessions[next.ID] = *next
	return nil
}

func (m *MemoryStore) ListActive(_ context.Context, userID string, now time.Time) ([]models.RefreshSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RefreshSession, 0)
	for _, s := range m.sessions {
		if s.UserID == userID && s.Active(now) {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) RevokeAllForUser(_ context.Context, userID, exceptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID != userID || id == exceptID || s.Revoked {
			continue
		}
		m.revokeLocked(&s, "", m.now())
		m.sessions[id] = s
	}
	return nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(s []models.RefreshSession) {
	sort.Slice(s, func(i, j int) bool { return s[i].CreatedAt.After(s[j].CreatedAt) })
}
