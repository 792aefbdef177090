package degrade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"
	goredis "github.com/redis/go-redis/v9"
)

// LocalSessionTTL matches the lifetime of tokens issued to local identities.
const LocalSessionTTL = 24 * time.Hour

// SessionRegistry remembers the local identity minted for an email after a degraded login,
// so repeated degraded logins within the window resolve to the same local user.
type SessionRegistry interface {
	LocalID(ctx context.Context, email string) (string, bool, error)
	SetLocalID(ctx context.Context, email, localID string) error
}

type memorySession struct {
	localID   string
	expiresAt time.Time
}

type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	clock    clock.Clock
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		clock:    clock.WallClock,
	}
}

func (m *MemorySessions) LocalID(_ context.Context, email string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[email]
	if !ok {
		return "", false, nil
	}
	if !m.clock.Now().Before(s.expiresAt) {
		delete(m.sessions, email)
		return "", false, nil
	}
	return s.localID, true, nil
}

func (m *MemorySessions) SetLocalID(_ context.Context, email, localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[email] = memorySession{localID: localID, expiresAt: m.clock.Now().Add(m.ttl)}
	return nil
}

type RedisSessions struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessions connects to addr and pings it before returning.
func NewRedisSessions(ctx context.Context, addr, password string, ttl time.Duration) (*RedisSessions, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("rdb.Ping() > %w", err)
	}
	return &RedisSessions{rdb: rdb, ttl: ttl, prefix: "wandrr:local-session:"}, nil
}

func (r *RedisSessions) LocalID(ctx context.Context, email string) (string, bool, error) {
	id, err := r.rdb.Get(ctx, r.prefix+email).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("rdb.Get() > %w", err)
	}
	return id, true, nil
}

func (r *RedisSessions) SetLocalID(ctx context.Context, email, localID string) error {
	if err := r.rdb.Set(ctx, r.prefix+email, localID, r.ttl).Err(); err != nil {
		return fmt.Errorf("rdb.Set() > %w", err)
	}
	return nil
}

func (r *RedisSessions) Close() error {
	return r.rdb.Close()
}
