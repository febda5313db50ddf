// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/types/optional"
)

// Validation errors for Item.
var (
	ErrEmptyName          = errors.New("name cannot be blank")
	ErrDescriptionTooLong = errors.New("description cannot exceed 500 characters")
)

// MaxDescriptionLength is the maximum number of characters in a description.
const MaxDescriptionLength = 500

// Item is the single persisted entity.
//
// ID is zero until the item has been inserted into a store.
type Item struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Description optional.Option[string] `json:"description"`
}

// Validate checks if the Item has valid field values.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}

	return validateDescription(i.Description)
}

// Apply merges a partial update into the item.
//
// Name is only overwritten by a present, non-blank value. Description is
// overwritten by any present value, including the empty string.
func (i *Item) Apply(patch ItemPatch) {
	if name, ok := patch.Name.Get(); ok && strings.TrimSpace(name) != "" {
		i.Name = name
	}

	if description, ok := patch.Description.Get(); ok {
		i.Description = optional.Some(description)
	}
}

// ItemInput is the request body for creating an item.
type ItemInput struct {
	Name        string                  `json:"name"`
	Description optional.Option[string] `json:"description"`
}

// Validate checks the input before it reaches the store.
func (in *ItemInput) Validate() error {
	item := in.Item()
	return item.Validate()
}

// Item converts the input into an Item without an ID.
func (in *ItemInput) Item() Item {
	return Item{
		Name:        in.Name,
		Description: in.Description,
	}
}

// ItemPatch is the request body for a partial update.
// A field that is omitted or null decodes to None and keeps its stored value.
type ItemPatch struct {
	Name        optional.Option[string] `json:"name"`
	Description optional.Option[string] `json:"description"`
}

func validateDescription(description optional.Option[string]) error {
	if d, ok := description.Get(); ok && utf8.RuneCountInString(d) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}

	return nil
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
