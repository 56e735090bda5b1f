// Package depcache tracks, per (lesson, component metric), which
// auto-compute aggregates must be recomputed when a new component
// event lands.
package depcache

import (
	"sync"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aaelog"
	"go.uber.org/atomic"
)

// invalidationLogger rate-limits the invalidation/rebuild warnings
// UpdateDependencyCache logs, which would otherwise fire once per
// incoming assessment event under a hot component metric. Built lazily
// so it picks up whatever aaelog.Logger is current when invalidation
// first runs, rather than whatever it was at package-init time (before
// main has called aaelog.Init).
var (
	invalidationLoggerOnce sync.Once
	invalidationLogger     *aaelog.RateLimitedLogger
)

func getInvalidationLogger() *aaelog.RateLimitedLogger {
	invalidationLoggerOnce.Do(func() {
		invalidationLogger = aaelog.NewRateLimitedLogger(5, aaelog.Logger)
	})
	return invalidationLogger
}

// Cache is the process-wide mutable structure holding a forest of plan
// lists keyed by (lessonId, componentMetric), plus an index set of
// persisted aggregate keys currently referenced by any plan. Reads and
// writes to one forest entry are serialized by a per-key lock so
// concurrent updates to unrelated lessons never contend; index
// mutation takes a short exclusive lock over the whole cache.
type Cache struct {
	keyLocks sync.Map // forestKey -> *sync.Mutex

	mu     sync.RWMutex
	forest map[string][]Plan
	index  map[string]bool

	// builds/hits are lock-free counters exposed via Stats.
	builds *atomic.Int64
	hits   *atomic.Int64
}

// New returns an empty dependency cache.
func New() *Cache {
	return &Cache{
		forest: make(map[string][]Plan),
		index:  make(map[string]bool),
		builds: atomic.NewInt64(0),
		hits:   atomic.NewInt64(0),
	}
}

// Stats reports how many plan-list builds and cache hits EnsurePlans has
// served since construction.
func (c *Cache) Stats() (builds, hits int64) {
	return c.builds.Load(), c.hits.Load()
}

func forestKey(lessonID instance.EntityID, componentMetric string) string {
	return string(lessonID) + "-" + componentMetric
}

func (c *Cache) lockFor(key string) *sync.Mutex {
	actual, _ := c.keyLocks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// plansLocked returns the currently cached plan list for key, if any.
func (c *Cache) plansLocked(key string) ([]Plan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plans, ok := c.forest[key]
	return plans, ok
}

// setPlans replaces the plan list for key wholesale (plans themselves
// are immutable once built) and records every persisted key the new
// plans reference in the index.
func (c *Cache) setPlans(key string, plans []Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forest[key] = plans
	for _, p := range plans {
		for _, k := range p.indexKeys() {
			c.index[k] = true
		}
	}
}

// dropPlans removes key's plan list entirely and stops tracking any
// index entries that only its plans referenced (a conservative
// removal: entries shared with other plans are left alone, since the
// index only gates invalidation eligibility, not persistence).
func (c *Cache) dropPlans(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := c.forest[key]
	delete(c.forest, key)

	stillReferenced := make(map[string]bool)
	for _, plans := range c.forest {
		for _, p := range plans {
			for _, k := range p.indexKeys() {
				stillReferenced[k] = true
			}
		}
	}
	for _, p := range dropped {
		for _, k := range p.indexKeys() {
			if !stillReferenced[k] {
				delete(c.index, k)
			}
		}
	}
}

// indexed reports whether key is currently tracked by the index.
func (c *Cache) indexed(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index[key]
}

func (c *Cache) removeFromIndex(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.index, key)
}

// Snapshot returns a read-only, serialization-friendly view of every
// cached plan list, keyed the same way the forest is. Used by
// cmd/aaeserver's debug endpoint; callers must not mutate the returned
// slices.
func (c *Cache) Snapshot() map[string][]PlanDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]PlanDescriptor, len(c.forest))
	for key, plans := range c.forest {
		descriptors := make([]PlanDescriptor, len(plans))
		for i, p := range plans {
			descriptors[i] = p.describe()
		}
		out[key] = descriptors
	}
	return out
}

// CompletionKey re-exports store.CompletionKey for callers that only
// import depcache.
func CompletionKey(level instance.Level, entity instance.EntityID, metricName string) string {
	return store.CompletionKey(level, entity, metricName)
}
