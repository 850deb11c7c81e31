package subject

import (
	"context"
	"errors"
)

// Repository defines the operations for persisting and retrieving Subject entities.
type Repository interface {
	Create(ctx context.Context, s *Subject) error
	GetByID(ctx context.Context, id string) (*Subject, error)
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]*Subject, error)
}

// ErrNotFound is returned by repositories when no subject has the given ID.
var ErrNotFound = errors.New("subject not found")
