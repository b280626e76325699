package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/motorline/catalog-service/internal/entity"
	"github.com/motorline/catalog-service/internal/port/repository"
	"github.com/motorline/catalog-service/internal/query"
)

type CampaignUseCase struct {
	campaigns repository.CampaignRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewCampaignUseCase(campaigns repository.CampaignRepository, log *zap.Logger) *CampaignUseCase {
	return &CampaignUseCase{
		campaigns: campaigns,
		logger:    log,
		now:       time.Now,
	}
}

// CampaignItemInput is one entry of the mixed list a caller submits. The Type
// discriminator decides which homogeneous pool the item lands in.
type CampaignItemInput struct {
	CarID            string
	Type             entity.CarKind
	PromotionalPrice float64
}

type CreateCampaignInput struct {
	Title     string
	Type      entity.CarKind
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
	Items     []CampaignItemInput
}

// CreateCampaign splits the mixed item list into the new and used pools
// before constructing the record; the two pools reference different
// collections and cannot be stored mixed.
func (uc *CampaignUseCase) CreateCampaign(ctx context.Context, input CreateCampaignInput) (*entity.Campaign, error) {
	newItems, usedItems, err := splitCampaignItems(input.Items)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	campaign := &entity.Campaign{
		Title:        input.Title,
		Type:         input.Type,
		StartDate:    input.StartDate,
		EndDate:      input.EndDate,
		IsActive:     input.IsActive,
		NewCarItems:  newItems,
		UsedCarItems: usedItems,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	createdID, err := uc.campaigns.Create(ctx, campaign)
	if err != nil {
		uc.logger.Error("Failed to create campaign in repository", zap.Error(err), zap.String("title", input.Title))
		return nil, fmt.Errorf("CampaignUseCase.CreateCampaign: failed to create campaign in repo: %w", err)
	}
	campaign.ID = createdID
	return campaign, nil
}

func splitCampaignItems(items []CampaignItemInput) (newItems, usedItems []entity.CampaignItem, err error) {
	for i, item := range items {
		entry := entity.CampaignItem{CarID: item.CarID, PromotionalPrice: item.PromotionalPrice}
		switch item.Type {
		case entity.CarKindNew:
			newItems = append(newItems, entry)
		case entity.CarKindUsed:
			usedItems = append(usedItems, entry)
		default:
			return nil, nil, &query.ValidationError{Fields: []query.FieldError{{
				Field:   fmt.Sprintf("items[%d].type", i),
				Message: "unknown listing kind: " + string(item.Type),
			}}}
		}
	}
	return newItems, usedItems, nil
}

func (uc *CampaignUseCase) GetCampaign(ctx context.Context, id string) (*entity.Campaign, error) {
	campaign, err := uc.campaigns.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("CampaignUseCase.GetCampaign: failed to get campaign from repo: %w", err)
	}
	return campaign, nil
}

// ListActive returns campaigns of the given type still inside their date
// window. An absent status applies no active-flag restriction; "hidden"
// restricts to inactive ones; anything else, including unrecognized values,
// restricts to active ones. The fallback for unrecognized values is kept as
// documented behavior.
func (uc *CampaignUseCase) ListActive(ctx context.Context, campaignType entity.CarKind, status string) ([]*entity.Campaign, error) {
	var isActive *bool
	switch status {
	case "":
		// no restriction
	case "hidden":
		hidden := false
		isActive = &hidden
	default:
		active := true
		isActive = &active
	}

	campaigns, err := uc.campaigns.FindActive(ctx, campaignType, isActive, uc.now())
	if err != nil {
		uc.logger.Error("Failed to list campaigns from repository",
			zap.Error(err), zap.String("type", string(campaignType)), zap.String("status", status))
		return nil, fmt.Errorf("CampaignUseCase.ListActive: failed to list campaigns from repo: %w", err)
	}
	return campaigns, nil
}
