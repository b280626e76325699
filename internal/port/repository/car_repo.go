package repository

import (
	"context"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/query"
)

type CarRepository interface {
	Create(ctx context.Context, car *entity.Car) (string, error)
	Update(ctx context.Context, car *entity.Car) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Car, error)
	FindBySlug(ctx context.Context, slug string) (*entity.Car, error)

	// Find and Count take the same compiled filter and have no ordering
	// dependency on each other; callers may dispatch them concurrently.
	Find(ctx context.Context, filter query.Filter, sort []query.SortKey, skip, limit int) ([]*entity.Car, error)
	Count(ctx context.Context, filter query.Filter) (int64, error)

	// UpdateParentName rewrites the denormalized name copy on every car
	// referencing the given parent. Best-effort bulk update; returns the
	// number of cars touched.
	UpdateParentName(ctx context.Context, kind entity.ParentKind, parentID, name string) (int64, error)
}
