package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/alecthomas/types/optional"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[int64]model.Item
	order  []int64
	lastID int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]model.Item),
	}
}

// Insert adds a new item to the store and returns the created item with generated ID.
func (s *MemoryStore) Insert(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("insert item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("insert item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	newItem := model.Item{
		ID:          s.lastID,
		Name:        item.Name,
		Description: item.Description,
	}

	s.items[newItem.ID] = newItem
	s.order = append(s.order, newItem.ID)

	return &newItem, nil
}

// FindByID retrieves an item by its ID.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (optional.Option[model.Item], error) {
	select {
	case <-ctx.Done():
		return optional.None[model.Item](), fmt.Errorf("find item: %w", ctx.Err())
	default:
	}

	if err := validID(id); err != nil {
		return optional.None[model.Item](), err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		return optional.None[model.Item](), nil
	}

	return optional.Some(item), nil
}

// FindAll returns all items in insertion order.
func (s *MemoryStore) FindAll(ctx context.Context) ([]model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.items[id])
	}

	return items, nil
}

// ExistsByID reports whether an item with the given ID is stored.
func (s *MemoryStore) ExistsByID(ctx context.Context, id int64) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("exists item: %w", ctx.Err())
	default:
	}

	if err := validID(id); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.items[id]
	return exists, nil
}

// DeleteByID removes an item from the store by its ID.
func (s *MemoryStore) DeleteByID(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	if err := validID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return ErrNotFound
	}

	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return nil
}

// Update overwrites an existing item in the store.
func (s *MemoryStore) Update(ctx context.Context, item *model.Item) (*model.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	if err := validID(item.ID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; !exists {
		return nil, ErrNotFound
	}

	updated := *item
	s.items[item.ID] = updated

	return &updated, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
