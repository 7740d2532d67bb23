package geocoding

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/logger"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
)

const (
	defaultMemoryCapacity = 500
	// evicted as a chunk so a full cache does not pay a scan per insert
	evictChunk = 50
)

type memEntry struct {
	coord    Coordinate
	storedAt time.Time
}

// CacheStore is the two-tier coordinate cache: a bounded in-process map
// in front of the persistent geocode_cache tier. Both tiers share one
// identity, the SHA1 of the normalized address. A nil persistent tier
// degrades the store to memory-only, which is also how most tests
// construct it.
type CacheStore struct {
	persist PersistentCache

	mu       sync.Mutex
	mem      map[string]memEntry
	capacity int

	memTTL time.Duration
	dbTTL  time.Duration

	now func() time.Time
}

// CacheConfig carries the tier tuning knobs
type CacheConfig struct {
	Capacity  int
	MemoryTTL time.Duration
	DBTTL     time.Duration
}

func NewCacheStore(persist PersistentCache, cfg CacheConfig) *CacheStore {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultMemoryCapacity
	}
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = time.Hour
	}
	if cfg.DBTTL <= 0 {
		cfg.DBTTL = 30 * 24 * time.Hour
	}
	return &CacheStore{
		persist:  persist,
		mem:      make(map[string]memEntry),
		capacity: cfg.Capacity,
		memTTL:   cfg.MemoryTTL,
		dbTTL:    cfg.DBTTL,
		now:      time.Now,
	}
}

// Get looks an address up in the memory tier first and falls back to
// the persistent tier, promoting persistent hits into memory. Expired
// entries in either tier are treated as absent.
func (c *CacheStore) Get(ctx context.Context, address string) (Coordinate, bool) {
	log := logger.GetLogger("geocache")
	key := CacheKey(address)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.mem[key]; ok {
		if now.Sub(e.storedAt) < c.memTTL {
			c.mu.Unlock()
			cacheHits.WithLabelValues("memory").Inc()
			return e.coord, true
		}
		delete(c.mem, key)
	}
	c.mu.Unlock()

	if c.persist == nil {
		return Coordinate{}, false
	}

	row, err := c.persist.Lookup(ctx, key, now.Add(-c.dbTTL))
	if err != nil || row == nil {
		return Coordinate{}, false
	}

	coord := Coordinate{Lat: row.Lat, Lng: row.Lng}
	c.put(key, coord)
	cacheHits.WithLabelValues("db").Inc()

	// refresh usage counters without holding up the caller
	hits := row.HitCount + 1
	go func() {
		if err := c.persist.Touch(context.WithoutCancel(ctx), key, hits, now); err != nil {
			log.Warnf("Failed to refresh cache row usage: %v", err)
		}
	}()

	return coord, true
}

// Set writes to the memory tier synchronously and upserts the
// persistent tier in the background. A persistence failure is logged
// and the entry stays memory-only; it is never surfaced to the caller.
func (c *CacheStore) Set(ctx context.Context, address string, coord Coordinate) {
	log := logger.GetLogger("geocache")
	key := CacheKey(address)
	c.put(key, coord)

	if c.persist == nil {
		return
	}

	row := models.GeocodeCache{
		AddressHash: key,
		Address:     Normalize(address),
		Lat:         coord.Lat,
		Lng:         coord.Lng,
		LastUsedAt:  c.now(),
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		if err := c.persist.Upsert(bg, &row); err != nil {
			log.Warnf("[geocode_cache] PUT failed, entry stays memory-only: %v", err)
			return
		}
		log.Infof("[geocode_cache] PUT %s -> %s", row.Address, coord)
	}()
}

// put inserts into the memory tier, evicting the oldest chunk when full
func (c *CacheStore) put(key string, coord Coordinate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.mem[key]; !exists && len(c.mem) >= c.capacity {
		c.evictOldestLocked(evictChunk)
	}
	c.mem[key] = memEntry{coord: coord, storedAt: c.now()}
}

func (c *CacheStore) evictOldestLocked(n int) {
	type aged struct {
		key      string
		storedAt time.Time
	}
	entries := make([]aged, 0, len(c.mem))
	for k, e := range c.mem {
		entries = append(entries, aged{k, e.storedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].storedAt.Before(entries[j].storedAt)
	})
	if n > len(entries) {
		n = len(entries)
	}
	for _, e := range entries[:n] {
		delete(c.mem, e.key)
	}
}

// MemorySize returns the number of live memory-tier entries
func (c *CacheStore) MemorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mem)
}

// DBSize counts persistent rows, zero when the table is missing
func (c *CacheStore) DBSize(ctx context.Context) int64 {
	if c.persist == nil {
		return 0
	}
	count, err := c.persist.Count(ctx)
	if err != nil {
		return 0
	}
	return count
}

// Sweep purges expired rows from the persistent tier and drops stale
// memory entries
func (c *CacheStore) Sweep(ctx context.Context) {
	log := logger.GetLogger("geocache")
	now := c.now()

	c.mu.Lock()
	for k, e := range c.mem {
		if now.Sub(e.storedAt) >= c.memTTL {
			delete(c.mem, k)
		}
	}
	c.mu.Unlock()

	if c.persist == nil {
		return
	}
	purged, err := c.persist.DeleteUnusedSince(ctx, now.Add(-c.dbTTL))
	if err != nil {
		log.Warnf("[geocode_cache] sweep failed: %v", err)
		return
	}
	if purged > 0 {
		log.Infof("[geocode_cache] sweep purged %d expired rows", purged)
	}
}

// StartSweeper runs Sweep on a ticker until ctx is cancelled
func (c *CacheStore) StartSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 6 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep(ctx)
			}
		}
	}()
}
