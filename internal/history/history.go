// Package history keeps a log of remote sync operations so the admin can
// see what was pushed where and when.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("history entry not found")
)

const (
	OpPush   = "push"
	OpPull   = "pull"
	OpCreate = "create"
)

// Entry is one completed remote operation.
type Entry struct {
	ID        string    `bson:"id" json:"id"`
	Op        string    `bson:"op" json:"op"`
	Backend   string    `bson:"backend" json:"backend"`
	Container string    `bson:"container" json:"container"`
	Revision  string    `bson:"revision" json:"revision"`
	Bytes     int       `bson:"bytes" json:"bytes"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Repository stores entries; List returns the newest first.
type Repository interface {
	Record(ctx context.Context, e *Entry) error
	List(ctx context.Context, limit int) ([]*Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
}

// stamp fills id and timestamp on a new entry.
func stamp(e *Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
}

// MemoryRepo keeps the most recent entries up to a fixed capacity.
type MemoryRepo struct {
	mu      sync.RWMutex
	entries []*Entry
	max     int
}

const DefaultCapacity = 200

func NewMemoryRepo(capacity int) *MemoryRepo {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryRepo{max: capacity}
}

func (m *MemoryRepo) Record(_ context.Context, e *Entry) error {
	stamp(e)
	c := *e
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, &c)
	if len(m.entries) > m.max {
		m.entries = m.entries[len(m.entries)-m.max:]
	}
	return nil
}

func (m *MemoryRepo) List(_ context.Context, limit int) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]*Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		c := *m.entries[i]
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if e.ID == id {
			c := *e
			return &c, nil
		}
	}
	return nil, ErrNotFound
}
