package amplitude

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheCapacity bounds the in-memory amplitude list
const DefaultCacheCapacity = 100

// Cache keeps the most recent amplitudes in memory and writes keyed
// snapshots to an optional durable store
type Cache struct {
	mu       sync.Mutex
	capacity int
	values   []float64
	last     float64
	lastKey  string

	// storeMu serializes durable writes without holding mu during I/O
	storeMu sync.Mutex
	store   SnapshotStore
}

// NewCache creates a cache. store may be nil for memory-only operation.
func NewCache(capacity int, store SnapshotStore) *Cache {
	if capacity < 1 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		values:   make([]float64, 0, capacity),
		store:    store,
	}
}

// CacheAmplitude appends v, evicting the oldest entry when full
func (c *Cache) CacheAmplitude(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.appendLocked(v)
	c.last = v
	c.lastKey = ""
}

func (c *Cache) appendLocked(v float64) {
	if len(c.values) >= c.capacity {
		n := copy(c.values, c.values[len(c.values)-c.capacity+1:])
		c.values = c.values[:n]
	}
	c.values = append(c.values, v)
}

// Get returns a chronological copy of the cached amplitudes
func (c *Cache) Get() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]float64, len(c.values))
	copy(out, c.values)
	return out
}

// Last returns the most recently cached amplitude
func (c *Cache) Last() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Put replaces memory with the tail of values and persists a snapshot.
// It returns the snapshot key.
func (c *Cache) Put(ctx context.Context, values []float64) (string, error) {
	if len(values) > c.capacity {
		values = values[len(values)-c.capacity:]
	}
	key := SnapshotKey(values)

	c.mu.Lock()
	c.values = append(c.values[:0], values...)
	if len(values) > 0 {
		c.last = values[len(values)-1]
	}
	c.lastKey = key
	c.mu.Unlock()

	if c.store == nil {
		return key, nil
	}

	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	if err := c.store.Put(ctx, key, values); err != nil {
		return key, fmt.Errorf("failed to persist waveform snapshot: %w", err)
	}
	return key, nil
}

// GetFromCache returns the snapshot stored under key. On a memory miss it
// falls back to the durable store and repopulates memory from the result.
func (c *Cache) GetFromCache(ctx context.Context, key string) ([]float64, bool, error) {
	c.mu.Lock()
	if key != "" && key == c.lastKey {
		out := make([]float64, len(c.values))
		copy(out, c.values)
		c.mu.Unlock()
		return out, true, nil
	}
	c.mu.Unlock()

	if c.store == nil {
		return nil, false, nil
	}

	c.storeMu.Lock()
	values, ok, err := c.store.Get(ctx, key)
	c.storeMu.Unlock()
	if err != nil {
		return nil, false, fmt.Errorf("failed to load waveform snapshot: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	if len(values) > c.capacity {
		values = values[len(values)-c.capacity:]
	}

	c.mu.Lock()
	c.values = append(c.values[:0], values...)
	if len(values) > 0 {
		c.last = values[len(values)-1]
	}
	c.lastKey = key
	c.mu.Unlock()

	out := make([]float64, len(values))
	copy(out, values)
	return out, true, nil
}

// Clear empties memory and the durable namespace
func (c *Cache) Clear(ctx context.Context) error {
	c.ClearMemory()
	return c.ClearStore(ctx)
}

// ClearMemory empties the in-memory list only
func (c *Cache) ClearMemory() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = c.values[:0]
	c.last = 0
	c.lastKey = ""
}

// ClearStore wipes the durable namespace
func (c *Cache) ClearStore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.storeMu.Lock()
	defer c.storeMu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear waveform snapshots: %w", err)
	}
	return nil
}

// SnapshotKey derives a stable key from a sample sequence
func SnapshotKey(values []float64) string {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		d.Write(buf[:])
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
