package repository

import (
	"context"
	"time"

	"github.com/motorline/catalog-service/internal/entity"
)

type CampaignRepository interface {
	Create(ctx context.Context, campaign *entity.Campaign) (string, error)
	FindByID(ctx context.Context, id string) (*entity.Campaign, error)

	// FindActive returns campaigns of the given type whose end date has not
	// passed. isActive further restricts by the active flag when non-nil.
	FindActive(ctx context.Context, campaignType entity.CarKind, isActive *bool, now time.Time) ([]*entity.Campaign, error)
}
