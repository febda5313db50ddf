// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/alecthomas/types/optional"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrInvalidID = errors.New("invalid item ID")
	ErrNilItem   = errors.New("item cannot be nil")
)

// Store defines the interface for item storage operations.
//
// Implementations must be safe for concurrent use and must never hand out the
// same ID twice.
type Store interface {
	// Insert adds a new item and returns it with a generated ID.
	// Any ID already set on the argument is ignored.
	Insert(ctx context.Context, item *model.Item) (*model.Item, error)

	// FindByID retrieves an item by its ID. A missing item is None, not an error.
	FindByID(ctx context.Context, id int64) (optional.Option[model.Item], error)

	// FindAll returns all items in insertion order.
	FindAll(ctx context.Context) ([]model.Item, error)

	// ExistsByID reports whether an item with the ID exists.
	ExistsByID(ctx context.Context, id int64) (bool, error)

	// DeleteByID removes an item by its ID.
	DeleteByID(ctx context.Context, id int64) error

	// Update overwrites the stored record matching item.ID.
	Update(ctx context.Context, item *model.Item) (*model.Item, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

func validID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return nil
}
