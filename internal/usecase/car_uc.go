package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/platform/metrics"
	"github.com/motorline/catalog-service/internal/port/cache"
	"github.com/motorline/catalog-service/internal/port/repository"
	"github.com/motorline/catalog-service/internal/query"
)

var ErrInvalidPriceRange = errors.New("price range min must not exceed max")

// EventPublisher decouples the usecases from the NATS adapter.
type EventPublisher interface {
	PublishCarCreated(ctx context.Context, car *entity.Car) error
	PublishCarUpdated(ctx context.Context, car *entity.Car) error
	PublishCarDeleted(ctx context.Context, carID string) error
	PublishParentRenamed(ctx context.Context, kind entity.ParentKind, parentID, name string) error
}

// AggregateNotifier is the fire-and-forget side of the aggregate maintainer.
// None of its methods return errors: the car write has already succeeded by
// the time these run, and counter failures must not undo it.
type AggregateNotifier interface {
	CarCreated(car *entity.Car)
	CarUpdated(prev, next *entity.Car)
	CarDeleted(car *entity.Car)
}

type CarUseCase struct {
	cars       repository.CarRepository
	parents    repository.ParentRepository
	aggregates AggregateNotifier
	cacheRepo  cache.CacheRepository
	publisher  EventPublisher
	metrics    *metrics.Manager
	logger     *zap.Logger
	now        func() time.Time
}

func NewCarUseCase(
	cars repository.CarRepository,
	parents repository.ParentRepository,
	aggregates AggregateNotifier,
	cr cache.CacheRepository,
	pub EventPublisher,
	m *metrics.Manager,
	log *zap.Logger,
) *CarUseCase {
	return &CarUseCase{
		cars:       cars,
		parents:    parents,
		aggregates: aggregates,
		cacheRepo:  cr,
		publisher:  pub,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

func carCacheKey(carID string) string {
	return fmt.Sprintf("car:%s", carID)
}

const carCacheTTL = 5 * time.Minute

type CreateCarInput struct {
	Name            string
	BrandID         string
	ModelID         string
	BodyTypeID      string
	VendorID        string
	PriceMin        float64
	PriceMax        float64
	IsNegotiable    bool
	LaunchedAt      time.Time
	Tags            []string
	Cities          []string
	SeatingCapacity int
	FuelType        string
}

// CreateCar validates parent references by lookup (the store has no
// referential integrity), denormalizes their display names onto the new car,
// writes it, and dispatches the counter increments. The write is the commit
// point: everything after it is best-effort.
func (uc *CarUseCase) CreateCar(ctx context.Context, input CreateCarInput) (*entity.Car, error) {
	if input.PriceMin > input.PriceMax {
		return nil, ErrInvalidPriceRange
	}

	brand, err := uc.parents.FindByID(ctx, entity.ParentBrand, input.BrandID)
	if err != nil {
		return nil, fmt.Errorf("CarUseCase.CreateCar: brand lookup: %w", err)
	}
	model, err := uc.parents.FindByID(ctx, entity.ParentModel, input.ModelID)
	if err != nil {
		return nil, fmt.Errorf("CarUseCase.CreateCar: model lookup: %w", err)
	}
	bodyType, err := uc.parents.FindByID(ctx, entity.ParentBodyType, input.BodyTypeID)
	if err != nil {
		return nil, fmt.Errorf("CarUseCase.CreateCar: body type lookup: %w", err)
	}
	if _, err := uc.parents.FindByID(ctx, entity.ParentVendor, input.VendorID); err != nil {
		return nil, fmt.Errorf("CarUseCase.CreateCar: vendor lookup: %w", err)
	}

	now := uc.now()
	car := &entity.Car{
		Name:            input.Name,
		Slug:            makeSlug(input.Name),
		Brand:           entity.EntityRef{ID: brand.ID, Name: brand.Name},
		Model:           entity.EntityRef{ID: model.ID, Name: model.Name},
		BodyType:        entity.EntityRef{ID: bodyType.ID, Name: bodyType.Name},
		VendorID:        input.VendorID,
		Price:           entity.PriceRange{Min: input.PriceMin, Max: input.PriceMax, IsNegotiable: input.IsNegotiable},
		LaunchedAt:      input.LaunchedAt,
		Tags:            input.Tags,
		Cities:          withCityAll(input.Cities),
		SeatingCapacity: input.SeatingCapacity,
		FuelType:        input.FuelType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	createdID, err := uc.cars.Create(ctx, car)
	if err != nil {
		uc.logger.Error("Failed to create car in repository", zap.Error(err), zap.String("name", input.Name))
		return nil, fmt.Errorf("CarUseCase.CreateCar: failed to create car in repo: %w", err)
	}
	car.ID = createdID

	if uc.metrics != nil {
		uc.metrics.CarsCreatedTotal.Inc()
	}
	uc.aggregates.CarCreated(car)
	uc.cacheCar(ctx, car)

	if uc.publisher != nil {
		if errPub := uc.publisher.PublishCarCreated(ctx, car); errPub != nil {
			uc.logger.Warn("Failed to publish car created event",
				zap.Error(errPub),
				zap.String("car_id", car.ID),
			)
		}
	}

	return car, nil
}

type UpdateCarInput struct {
	ID              string
	Name            *string
	BrandID         *string
	ModelID         *string
	BodyTypeID      *string
	VendorID        *string
	PriceMin        *float64
	PriceMax        *float64
	IsNegotiable    *bool
	LaunchedAt      *time.Time
	Tags            *[]string
	Cities          *[]string
	SeatingCapacity *int
	FuelType        *string
}

// UpdateCar reads the previous document before writing the new one: the
// counter delta needs both sides of the change. The slug is immutable.
func (uc *CarUseCase) UpdateCar(ctx context.Context, input UpdateCarInput) (*entity.Car, error) {
	prev, err := uc.cars.FindByID(ctx, input.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Error("Failed to get car for update", zap.Error(err), zap.String("car_id", input.ID))
		}
		return nil, fmt.Errorf("CarUseCase.UpdateCar: failed to get car for update: %w", err)
	}

	next := *prev
	if input.Name != nil {
		next.Name = *input.Name
	}
	if input.BrandID != nil && *input.BrandID != prev.Brand.ID {
		brand, err := uc.parents.FindByID(ctx, entity.ParentBrand, *input.BrandID)
		if err != nil {
			return nil, fmt.Errorf("CarUseCase.UpdateCar: brand lookup: %w", err)
		}
		next.Brand = entity.EntityRef{ID: brand.ID, Name: brand.Name}
	}
	if input.ModelID != nil && *input.ModelID != prev.Model.ID {
		model, err := uc.parents.FindByID(ctx, entity.ParentModel, *input.ModelID)
		if err != nil {
			return nil, fmt.Errorf("CarUseCase.UpdateCar: model lookup: %w", err)
		}
		next.Model = entity.EntityRef{ID: model.ID, Name: model.Name}
	}
	if input.BodyTypeID != nil && *input.BodyTypeID != prev.BodyType.ID {
		bodyType, err := uc.parents.FindByID(ctx, entity.ParentBodyType, *input.BodyTypeID)
		if err != nil {
			return nil, fmt.Errorf("CarUseCase.UpdateCar: body type lookup: %w", err)
		}
		next.BodyType = entity.EntityRef{ID: bodyType.ID, Name: bodyType.Name}
	}
	if input.VendorID != nil && *input.VendorID != prev.VendorID {
		if _, err := uc.parents.FindByID(ctx, entity.ParentVendor, *input.VendorID); err != nil {
			return nil, fmt.Errorf("CarUseCase.UpdateCar: vendor lookup: %w", err)
		}
		next.VendorID = *input.VendorID
	}
	if input.PriceMin != nil {
		next.Price.Min = *input.PriceMin
	}
	if input.PriceMax != nil {
		next.Price.Max = *input.PriceMax
	}
	if input.IsNegotiable != nil {
		next.Price.IsNegotiable = *input.IsNegotiable
	}
	if next.Price.Min > next.Price.Max {
		return nil, ErrInvalidPriceRange
	}
	if input.LaunchedAt != nil {
		next.LaunchedAt = *input.LaunchedAt
	}
	if input.Tags != nil {
		next.Tags = *input.Tags
	}
	if input.Cities != nil {
		next.Cities = withCityAll(*input.Cities)
	}
	if input.SeatingCapacity != nil {
		next.SeatingCapacity = *input.SeatingCapacity
	}
	if input.FuelType != nil {
		next.FuelType = *input.FuelType
	}
	next.UpdatedAt = uc.now()

	if err := uc.cars.Update(ctx, &next); err != nil {
		uc.logger.Error("Failed to update car in repository", zap.Error(err), zap.String("car_id", next.ID))
		return nil, fmt.Errorf("CarUseCase.UpdateCar: failed to update car in repo: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.CarsUpdatedTotal.Inc()
	}
	uc.aggregates.CarUpdated(prev, &next)
	uc.invalidateCar(ctx, next.ID)

	if uc.publisher != nil {
		if errPub := uc.publisher.PublishCarUpdated(ctx, &next); errPub != nil {
			uc.logger.Warn("Failed to publish car updated event",
				zap.Error(errPub),
				zap.String("car_id", next.ID),
			)
		}
	}

	return &next, nil
}

func (uc *CarUseCase) DeleteCar(ctx context.Context, id string) error {
	car, err := uc.cars.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("CarUseCase.DeleteCar: car to delete not found or error getting it: %w", err)
	}

	if err := uc.cars.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Error("Failed to delete car from repository", zap.Error(err), zap.String("car_id", id))
		}
		return fmt.Errorf("CarUseCase.DeleteCar: failed to delete car from repo: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.CarsDeletedTotal.Inc()
	}
	uc.aggregates.CarDeleted(car)
	uc.invalidateCar(ctx, id)

	if uc.publisher != nil {
		if errPub := uc.publisher.PublishCarDeleted(ctx, id); errPub != nil {
			uc.logger.Warn("Failed to publish car deleted event",
				zap.Error(errPub),
				zap.String("car_id", id),
			)
		}
	}
	return nil
}

func (uc *CarUseCase) GetCarByID(ctx context.Context, id string) (*entity.Car, error) {
	if uc.cacheRepo != nil {
		key := carCacheKey(id)
		cachedBytes, err := uc.cacheRepo.Get(ctx, key)
		if err == nil {
			var fromCache entity.Car
			if unmarshalErr := json.Unmarshal(cachedBytes, &fromCache); unmarshalErr == nil {
				uc.logger.Debug("Car fetched from cache", zap.String("key", key))
				return &fromCache, nil
			}
			if delErr := uc.cacheRepo.Delete(ctx, key); delErr != nil {
				uc.logger.Warn("Failed to delete corrupted car from cache", zap.String("key", key), zap.Error(delErr))
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			uc.logger.Warn("Failed to get car from cache", zap.Error(err), zap.String("key", key))
		}
	}

	car, err := uc.cars.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Error("Failed to get car by ID from repository", zap.Error(err), zap.String("car_id", id))
		}
		return nil, fmt.Errorf("CarUseCase.GetCarByID: failed to get car from repo: %w", err)
	}

	uc.cacheCar(ctx, car)
	return car, nil
}

func (uc *CarUseCase) GetCarBySlug(ctx context.Context, s string) (*entity.Car, error) {
	car, err := uc.cars.FindBySlug(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("CarUseCase.GetCarBySlug: failed to get car from repo: %w", err)
	}
	return car, nil
}

// SearchOutput is the page-shaped search result.
type SearchOutput struct {
	Cars []*entity.Car
	query.PageMeta
}

// Search compiles the raw parameters into a plan and executes it. The count
// and the page fetch have no data dependency, so they are dispatched
// concurrently; catalog display tolerates the slight inconsistency between
// them under concurrent writes. Read-only.
func (uc *CarUseCase) Search(ctx context.Context, params map[string]string) (*SearchOutput, error) {
	plan, err := query.BuildPlan(params, uc.now())
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		start := time.Now()
		defer func() {
			uc.metrics.SearchLatency.Observe(time.Since(start).Seconds())
		}()
	}

	var (
		cars  []*entity.Car
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var findErr error
		cars, findErr = uc.cars.Find(gctx, plan.Filter, plan.Sort, plan.Pagination.Skip(), plan.Pagination.Limit)
		return findErr
	})
	g.Go(func() error {
		var countErr error
		total, countErr = uc.cars.Count(gctx, plan.Filter)
		return countErr
	})
	if err := g.Wait(); err != nil {
		uc.logger.Error("Failed to execute search", zap.Error(err))
		return nil, fmt.Errorf("CarUseCase.Search: failed to query cars: %w", err)
	}

	return &SearchOutput{
		Cars:     cars,
		PageMeta: query.NewPageMeta(total, plan.Pagination),
	}, nil
}

func (uc *CarUseCase) cacheCar(ctx context.Context, car *entity.Car) {
	if uc.cacheRepo == nil || car == nil {
		return
	}
	carBytes, err := json.Marshal(car)
	if err != nil {
		uc.logger.Warn("Failed to marshal car for caching", zap.Error(err), zap.String("car_id", car.ID))
		return
	}
	key := carCacheKey(car.ID)
	if setErr := uc.cacheRepo.Set(ctx, key, carBytes, carCacheTTL); setErr != nil {
		uc.logger.Warn("Failed to set car in cache", zap.Error(setErr), zap.String("key", key))
	}
}

func (uc *CarUseCase) invalidateCar(ctx context.Context, id string) {
	if uc.cacheRepo == nil {
		return
	}
	key := carCacheKey(id)
	if delErr := uc.cacheRepo.Delete(ctx, key); delErr != nil {
		uc.logger.Warn("Failed to delete car from cache", zap.Error(delErr), zap.String("key", key))
	}
}

// makeSlug derives the immutable slug: the slugified name plus a short random
// suffix to keep it unique without a lookup.
func makeSlug(name string) string {
	return slug.Make(name) + "-" + uuid.NewString()[:8]
}

func withCityAll(cities []string) []string {
	for _, c := range cities {
		if c == entity.CityAll {
			return cities
		}
	}
	return append([]string{entity.CityAll}, cities...)
}
