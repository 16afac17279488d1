package blueprint

import (
	"context"
	"errors"
)

// ErrBlueprintNotFound is returned when a blueprint record is not found.
var ErrBlueprintNotFound = errors.New("blueprint not found")

// ErrBlueprintExists is returned when a blueprint with the same identity
// already exists.
var ErrBlueprintExists = errors.New("blueprint already exists")

// Repository provides CRUD operations on the blueprints table.
// Blueprints are immutable — there is no Update method.
type Repository interface {
	Create(ctx context.Context, bp *Blueprint) error
	GetByID(ctx context.Context, id string) (*Blueprint, error)
	List(ctx context.Context) ([]Blueprint, error)
	Delete(ctx context.Context, id string) error
}
