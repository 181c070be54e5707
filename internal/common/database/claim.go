// internal/common/database/claim.go
package database

import (
	"context"
	"sync"
	"time"

	"rehmat-agent/internal/common/config"
)

// RoomClaimer guarantees at most one agent session per room.
type RoomClaimer interface {
	Claim(ctx context.Context, room, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, room, owner string) error
}

// MemoryClaimer is a single-process RoomClaimer.
type MemoryClaimer struct {
	mu     sync.Mutex
	claims map[string]memoryClaim
	now    func() time.Time
}

type memoryClaim struct {
	owner   string
	expires time.Time
}

func NewMemoryClaimer() *MemoryClaimer {
	return &MemoryClaimer{claims: map[string]memoryClaim{}, now: time.Now}
}

func (m *MemoryClaimer) Claim(_ context.Context, room, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if c, ok := m.claims[room]; ok && now.Before(c.expires) {
		return false, nil
	}
	m.claims[room] = memoryClaim{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

func (m *MemoryClaimer) Release(_ context.Context, room, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.claims[room]; ok && c.owner == owner {
		delete(m.claims, room)
	}
	return nil
}

// NewRoomClaimer returns a Redis-backed claimer when an address is
// configured and a process-local one otherwise. The returned close func is
// never nil.
func NewRoomClaimer(cfg config.DispatchConfig) (RoomClaimer, func() error) {
	if cfg.Redis.Address == "" {
		return NewMemoryClaimer(), func() error { return nil }
	}
	rc := NewRedis(cfg.Redis)
	return rc, rc.Close
}
