package repository

import (
	"context"
	"sync"
	"time"

	"github.com/detailongo/dotg-team/internal/models"
)

type memoryEntry struct {
	state     *models.SessionState
	expiresAt time.Time
}

// MemorySessionRepository keeps sessions in process. It backs the failover
// repository and single-instance deployments.
type MemorySessionRepository struct {
	sessions   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
	now        func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, sessionID string) (*models.SessionState, error) {
	val, ok := r.sessions.Load(sessionID)
	if !ok {
		return nil, nil
	}
	entry := val.(memoryEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.sessions.Delete(sessionID)
		return nil, nil
	}
	return entry.state, nil
}

func (r *MemorySessionRepository) SaveSession(ctx context.Context, state *models.SessionState) error {
	r.sessions.Store(state.SessionID, memoryEntry{state: state, expiresAt: r.now().Add(r.ttl)})
	return nil
}

func (r *MemorySessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	r.sessions.Delete(sessionID)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemorySessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}
	return entry.count <= limit, nil
}
