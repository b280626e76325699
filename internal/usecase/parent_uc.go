package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/port/repository"
)

// ParentUseCase covers brand, model, vendor and body-type administration.
type ParentUseCase struct {
	parents   repository.ParentRepository
	cars      repository.CarRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewParentUseCase(
	parents repository.ParentRepository,
	cars repository.CarRepository,
	pub EventPublisher,
	log *zap.Logger,
) *ParentUseCase {
	return &ParentUseCase{
		parents:   parents,
		cars:      cars,
		publisher: pub,
		logger:    log,
	}
}

type CreateParentInput struct {
	Kind entity.ParentKind
	Name string
	// BrandID links a model to its brand; empty for the other kinds.
	BrandID string
}

func (uc *ParentUseCase) CreateParent(ctx context.Context, input CreateParentInput) (*entity.Parent, error) {
	if input.Kind == entity.ParentModel && input.BrandID != "" {
		if _, err := uc.parents.FindByID(ctx, entity.ParentBrand, input.BrandID); err != nil {
			return nil, fmt.Errorf("ParentUseCase.CreateParent: brand lookup for model: %w", err)
		}
	}

	parent := &entity.Parent{
		Kind:    input.Kind,
		Name:    input.Name,
		BrandID: input.BrandID,
	}
	createdID, err := uc.parents.Create(ctx, input.Kind, parent)
	if err != nil {
		uc.logger.Error("Failed to create parent in repository",
			zap.Error(err), zap.String("kind", string(input.Kind)), zap.String("name", input.Name))
		return nil, fmt.Errorf("ParentUseCase.CreateParent: failed to create %s in repo: %w", input.Kind, err)
	}
	parent.ID = createdID
	return parent, nil
}

func (uc *ParentUseCase) GetParent(ctx context.Context, kind entity.ParentKind, id string) (*entity.Parent, error) {
	parent, err := uc.parents.FindByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("ParentUseCase.GetParent: failed to get %s from repo: %w", kind, err)
	}
	return parent, nil
}

// labeledKinds are the parents whose display name is copied onto every car
// referencing them. Vendors are referenced by id only.
var labeledKinds = map[entity.ParentKind]bool{
	entity.ParentBrand:    true,
	entity.ParentModel:    true,
	entity.ParentBodyType: true,
}

// RenameParent renames the parent and then fans the new name out to the
// denormalized copies on every referencing car. The fan-out is best-effort
// and not transactional with the rename: a failure leaves stale labels until
// the next rename, never a failed rename.
func (uc *ParentUseCase) RenameParent(ctx context.Context, kind entity.ParentKind, id, name string) error {
	if err := uc.parents.Rename(ctx, kind, id, name); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Error("Failed to rename parent in repository",
				zap.Error(err), zap.String("kind", string(kind)), zap.String("parent_id", id))
		}
		return fmt.Errorf("ParentUseCase.RenameParent: failed to rename %s in repo: %w", kind, err)
	}

	if labeledKinds[kind] {
		touched, err := uc.cars.UpdateParentName(ctx, kind, id, name)
		if err != nil {
			uc.logger.Warn("Label fan-out failed, car labels are stale until next rename",
				zap.Error(err),
				zap.String("kind", string(kind)),
				zap.String("parent_id", id),
			)
		} else {
			uc.logger.Debug("Label fan-out complete",
				zap.String("kind", string(kind)),
				zap.String("parent_id", id),
				zap.Int64("cars_touched", touched),
			)
		}
	}

	if uc.publisher != nil {
		if errPub := uc.publisher.PublishParentRenamed(ctx, kind, id, name); errPub != nil {
			uc.logger.Warn("Failed to publish parent renamed event",
				zap.Error(errPub),
				zap.String("kind", string(kind)),
				zap.String("parent_id", id),
			)
		}
	}
	return nil
}

// DeleteParent removes a parent. The repository refuses while the parent's
// listing count is positive; that refusal surfaces as ErrParentInUse.
func (uc *ParentUseCase) DeleteParent(ctx context.Context, kind entity.ParentKind, id string) error {
	if err := uc.parents.Delete(ctx, kind, id); err != nil {
		if errors.Is(err, repository.ErrParentInUse) {
			uc.logger.Info("Refused to delete parent still referenced by listings",
				zap.String("kind", string(kind)), zap.String("parent_id", id))
		} else if !errors.Is(err, repository.ErrNotFound) {
			uc.logger.Error("Failed to delete parent from repository",
				zap.Error(err), zap.String("kind", string(kind)), zap.String("parent_id", id))
		}
		return fmt.Errorf("ParentUseCase.DeleteParent: failed to delete %s from repo: %w", kind, err)
	}
	return nil
}
