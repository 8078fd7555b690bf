package template

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// MemoryStore keeps templates in process, newest last.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Template
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Template)}
}

func (m *MemoryStore) Save(ctx context.Context, t *Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	cp := *t
	cp.Elements = slices.Clone(t.Elements)
	m.items[t.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *t
	cp.Elements = slices.Clone(t.Elements)
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return lo.Map(m.order, func(id string, _ int) Template {
		return *m.items[id]
	}), nil
}
