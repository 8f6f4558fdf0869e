package cache

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/todohub/internal/domain/todo"
	"github.com/geocoder89/todohub/internal/utils"
)

// MemoryListCache keeps todo listings in this process only. It is correct only
// when a single API instance serves all writes.
type MemoryListCache struct {
	entries *TTL[[]todo.Todo]

	mu   sync.Mutex
	gens map[string]int64
}

// NewMemoryListCache keeps at most maxEntries listings (0 for no bound).
func NewMemoryListCache(ttl time.Duration, maxEntries int) *MemoryListCache {
	return &MemoryListCache{
		entries: NewTTL[[]todo.Todo](ttl, maxEntries),
		gens:    make(map[string]int64),
	}
}

func (c *MemoryListCache) generation(userID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID]
}

func (c *MemoryListCache) Get(ctx context.Context, userID string, f todo.Filter) ([]todo.Todo, int64, bool) {
	gen := c.generation(userID)

	items, ok := c.entries.Get(utils.BuildTodosListCacheKey(userID, gen, f.Key()))
	if !ok {
		return nil, gen, false
	}

	return append(make([]todo.Todo, 0, len(items)), items...), gen, true
}

func (c *MemoryListCache) Set(ctx context.Context, userID string, f todo.Filter, gen int64, items []todo.Todo) {
	if gen != c.generation(userID) {
		return
	}

	c.entries.Set(utils.BuildTodosListCacheKey(userID, gen, f.Key()), append(make([]todo.Todo, 0, len(items)), items...))
}

func (c *MemoryListCache) InvalidateOwner(ctx context.Context, userID string) {
	c.mu.Lock()
	old := c.gens[userID]
	c.gens[userID] = old + 1
	c.mu.Unlock()

	for _, f := range []string{"all", "completed", "pending"} {
		c.entries.Delete(utils.BuildTodosListCacheKey(userID, old, f))
	}
}
