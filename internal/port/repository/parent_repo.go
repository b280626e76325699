package repository

import (
	"context"

	"github.com/motorline/catalog-service/internal/entity"
)

type ParentRepository interface {
	Create(ctx context.Context, kind entity.ParentKind, parent *entity.Parent) (string, error)
	FindByID(ctx context.Context, kind entity.ParentKind, id string) (*entity.Parent, error)
	Rename(ctx context.Context, kind entity.ParentKind, id, name string) error

	// IncrementCarCount applies a store-level atomic delta to the parent's
	// listing counter. Concurrent adjustments never lose an update.
	IncrementCarCount(ctx context.Context, kind entity.ParentKind, id string, delta int) error

	// Delete removes the parent, refusing with ErrParentInUse while its
	// listing count is positive.
	Delete(ctx context.Context, kind entity.ParentKind, id string) error
}
