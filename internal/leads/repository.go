package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the lead log: every advisor notification that went out.
type Repository interface {
	Record(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id string) (*Notification, error)
}

// InMemoryRepository keeps the lead log in process. Used when no database is
// configured.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Notification
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries: make(map[string]*Notification),
	}
}

func (r *InMemoryRepository) Record(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now().UTC()
	}
	stored := *n

	r.mu.Lock()
	r.entries[n.ID] = &stored
	r.mu.Unlock()
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.entries[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	out := *n
	return &out, nil
}

// Len reports how many notifications have been recorded.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
