package usercache

import (
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/metrics"
	"github.com/at-ishikawa/wandrr/internal/user"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = 5 * time.Minute

	userKeyPrefix    = "user:"
	storeIDKeyPrefix = "shovId:"
)

func UserKey(userID string) string {
	return userKeyPrefix + userID
}

func StoreIDKey(userID string) string {
	return storeIDKeyPrefix + userID
}

type entry struct {
	data      any
	timestamp time.Time
}

type Stats struct {
	Total   int     `json:"total"`
	Valid   int     `json:"valid"`
	Expired int     `json:"expired"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hitRate"`
}

// Cache is a TTL cache keyed "<type>:<id>". Expired entries read as absent and are evicted
// lazily or by the sweeper.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	hits    uint64
	misses  uint64

	log     *logger.Logger
	metrics *metrics.Recorder
	clock   clock.Clock

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCache builds an empty cache. Entry ages and the sweeper both run on clk; nil means the
// wall clock.
func NewCache(ttl time.Duration, clk clock.Clock, log *logger.Logger, m *metrics.Recorder) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.WallClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		log:     log.With("component", "usercache"),
		metrics: m,
		clock:   clk,
	}
}

func (c *Cache) valid(e entry, now time.Time) bool {
	return now.Sub(e.timestamp) < c.ttl
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !c.valid(e, c.clock.Now()) {
		delete(c.entries, key)
		ok = false
	}
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.metrics.CacheLookup(ok)
	if !ok {
		return nil, false
	}
	return e.data, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: value, timestamp: c.clock.Now()}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) GetUser(userID string) (user.User, bool) {
	v, ok := c.Get(UserKey(userID))
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}

func (c *Cache) SetUser(u user.User) {
	c.Set(UserKey(u.ID), u)
}

// GetStoreID returns the cached store id of a remote user.
func (c *Cache) GetStoreID(userID string) (string, bool) {
	v, ok := c.Get(StoreIDKey(userID))
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func (c *Cache) SetStoreID(userID, storeID string) {
	if storeID == "" {
		return
	}
	c.Set(StoreIDKey(userID), storeID)
}

// Invalidate removes every entry of the user.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, UserKey(userID))
	delete(c.entries, StoreIDKey(userID))
}

// Clear removes all entries, or only those whose key starts with prefix.
func (c *Cache) Clear(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Sweep removes expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	removed := 0
	for key, e := range c.entries {
		if !c.valid(e, now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	stats := Stats{
		Total:  len(c.entries),
		Hits:   c.hits,
		Misses: c.misses,
	}
	for _, e := range c.entries {
		if c.valid(e, now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	if lookups := c.hits + c.misses; lookups > 0 {
		stats.HitRate = float64(c.hits) / float64(lookups)
	}
	return stats
}

// Start runs Sweep every interval until Stop is called. It must be called at most once.
func (c *Cache) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		for {
			select {
			case <-c.stop:
				return
			case <-c.clock.After(interval):
				if removed := c.Sweep(); removed > 0 {
					c.log.Debug("swept expired cache entries", "removed", removed)
				}
			}
		}
	}()
}

// Stop ends the sweeper started by Start and waits for it to exit.
func (c *Cache) Stop() {
	if c.stop == nil {
		return
	}
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}
