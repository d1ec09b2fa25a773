package alerts

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]Alert
}

// NewMemoryRepository constructs an in-memory repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{alerts: make(map[string]Alert)}
}

func (r *memoryRepository) Create(_ context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[a.ID] = a
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.OwnerID != ownerID {
		return ErrAlertNotFound
	}
	delete(r.alerts, id)
	return nil
}

func (r *memoryRepository) ListByOwner(_ context.Context, ownerID string) ([]Alert, error) {
	return r.list(func(a Alert) bool { return a.OwnerID == ownerID }), nil
}

func (r *memoryRepository) ListActive(context.Context) ([]Alert, error) {
	return r.list(Alert.Active), nil
}

func (r *memoryRepository) MarkTriggered(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	at = at.UTC()
	a.Triggered = true
	a.LastTriggered = &at
	r.alerts[id] = a
	return nil
}

func (r *memoryRepository) list(keep func(Alert) bool) []Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Alert
	for _, a := range r.alerts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
