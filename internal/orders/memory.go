package orders

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Repository for local runs and tests. Uniqueness is enforced
// under the same lock as the insert, so concurrent duplicates cannot both succeed.
type MemoryStore struct {
	mu          sync.RWMutex
	items       map[string]Order
	byISBN      map[string]string
	titleAuthor map[string]string
	daily       map[string]int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:       make(map[string]Order),
		byISBN:      make(map[string]string),
		titleAuthor: make(map[string]string),
		daily:       make(map[string]int),
	}
}

// Add stores a new order unless its id, ISBN or (title, author) pair is taken.
func (m *MemoryStore) Add(ctx context.Context, o Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[o.ID]; exists {
		return ErrConflict
	}
	if _, exists := m.byISBN[o.ISBN]; exists {
		return ErrDuplicateISBN
	}
	ta := titleAuthorKey(o.Title, o.Author)
	if _, exists := m.titleAuthor[ta]; exists {
		return ErrDuplicateTitleAuthor
	}

	m.items[o.ID] = o
	m.byISBN[o.ISBN] = o.ID
	m.titleAuthor[ta] = o.ID
	m.daily[dayKey(o.CreatedAt)]++
	return nil
}

// Get returns (nil, nil) when the order does not exist.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *MemoryStore) FindByISBN(ctx context.Context, isbn string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byISBN[NormalizeISBN(isbn)]
	if !ok {
		return nil, nil
	}
	o := m.items[id]
	return &o, nil
}

func (m *MemoryStore) ExistsByTitleAuthor(ctx context.Context, title, author string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.titleAuthor[titleAuthorKey(title, author)]
	return ok, nil
}

func (m *MemoryStore) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.daily[dayKey(day)], nil
}

// ListAll returns every order, oldest first.
func (m *MemoryStore) ListAll(ctx context.Context) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Order, 0, len(m.items))
	for _, o := range m.items {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
