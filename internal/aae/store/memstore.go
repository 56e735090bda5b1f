package store

import (
	"context"
	"sort"
	"sync"

	"github.com/isle-project/aae/internal/aaeerr"
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
)

// MemStore is an in-memory reference Store implementation, used by the
// engine's own tests and by the demonstration cmd/aaeserver binary: a
// few in-memory maps and an event slice guarded by one RWMutex, no I/O.
type MemStore struct {
	mu sync.RWMutex

	entities map[string]metric.Entity // key: "<level>-<id>"
	events   []Event
	users    map[instance.UserID]User
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		entities: make(map[string]metric.Entity),
		events:   nil,
		users:    make(map[instance.UserID]User),
	}
}

func entityKey(level instance.Level, id instance.EntityID) string {
	return string(level) + "-" + string(id)
}

// PutEntity registers or replaces an entity for later GetEntity calls.
func (m *MemStore) PutEntity(level instance.Level, e metric.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entityKey(level, e.ID)] = e
}

// PutEvent appends a raw assessment event. SeqNo is assigned in
// insertion order if the caller leaves it at zero.
func (m *MemStore) PutEvent(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.SeqNo == 0 {
		e.SeqNo = int64(len(m.events)) + 1
	}
	m.events = append(m.events, e)
}

func (m *MemStore) GetEntity(_ context.Context, level instance.Level, id instance.EntityID) (metric.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[entityKey(level, id)]
	if !ok {
		return metric.Entity{}, aaeerr.Persistencef(nil, "entity %s/%s not found", level, id)
	}
	return e, nil
}

func (m *MemStore) ListChildComponents(_ context.Context, lessonID instance.EntityID, users []instance.UserID) ([]instance.EntityID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var allowed map[instance.UserID]bool
	if users != nil {
		allowed = make(map[instance.UserID]bool, len(users))
		for _, u := range users {
			allowed[u] = true
		}
	}

	seen := make(map[instance.EntityID]bool)
	var out []instance.EntityID
	for _, e := range m.events {
		if e.Lesson != lessonID {
			continue
		}
		if allowed != nil && !allowed[e.User] {
			continue
		}
		if !seen[e.Component] {
			seen[e.Component] = true
			out = append(out, e.Component)
		}
	}
	return out, nil
}

func (m *MemStore) QueryEvents(_ context.Context, filter EventFilter, direction SortDirection) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	componentSet := make(map[instance.EntityID]bool, len(filter.Components))
	for _, c := range filter.Components {
		componentSet[c] = true
	}
	userSet := make(map[instance.UserID]bool, len(filter.Users))
	for _, u := range filter.Users {
		userSet[u] = true
	}

	var out []Event
	for _, e := range m.events {
		if filter.Lesson != "" && e.Lesson != filter.Lesson {
			continue
		}
		if len(componentSet) > 0 && !componentSet[e.Component] {
			continue
		}
		if len(userSet) > 0 && !userSet[e.User] {
			continue
		}
		if e.Time < filter.Time.StartMs || e.Time > filter.Time.EndMs {
			continue
		}
		if filter.MetricName != "" && e.MetricName != filter.MetricName {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			if direction == SortDescending {
				return out[i].Time > out[j].Time
			}
			return out[i].Time < out[j].Time
		}
		// Tie-break deterministically by insertion order regardless of
		// direction.
		return out[i].SeqNo < out[j].SeqNo
	})
	return out, nil
}

func (m *MemStore) LoadUser(_ context.Context, id instance.UserID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{ID: id, Completions: make(map[string]instance.Instance)}, nil
	}
	cloned := User{ID: u.ID, Completions: make(map[string]instance.Instance, len(u.Completions))}
	for k, v := range u.Completions {
		cloned.Completions[k] = v
	}
	return cloned, nil
}

func (m *MemStore) SaveUser(_ context.Context, user User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := User{ID: user.ID, Completions: make(map[string]instance.Instance, len(user.Completions))}
	for k, v := range user.Completions {
		cloned.Completions[k] = v
	}
	m.users[user.ID] = cloned
	return nil
}

var _ Store = (*MemStore)(nil)
